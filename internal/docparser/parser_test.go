package docparser

import "testing"

const sampleDoc = `# Sequoia Log

## President
full_name: Franklin D. Roosevelt
party: Democratic
term_start: 1933-03-04
term_end: 1945-04-12

## Voyage
title: Potomac Inspection Trip
start_date: 1933-04-23
end_date: 1933-04-23
origin: Washington Navy Yard
destination: Mount Vernon
vessel_name: USS Sequoia
voyage_type: official
summary: |
  A short inspection cruise down the Potomac.
  Attended by cabinet staff.
source_urls: https://example.org/a, https://example.org/b

## Passengers
- slug: harold-ickes
  full_name: Harold Ickes
  role_title: Secretary of the Interior
  capacity_role: guest

- slug: frances-perkins
  full_name: Frances Perkins
  capacity_role: guest

## Media
- credit: White House Photographer
  date: 1933-04-23
  title: Deck view
  google_drive_link: https://drive.google.com/file/d/abc123/view

## Voyage
title: Second Trip
start_date: 1933-04-23

## Media
- credit: White House Photographer
  date: 1933-04-23
  title: Another deck view
  google_drive_link: https://drive.google.com/file/d/def456/view
`

func TestParseFullDocument(t *testing.T) {
	result := Parse(sampleDoc)

	if len(result.Presidents) != 1 {
		t.Fatalf("expected 1 president, got %d", len(result.Presidents))
	}
	pres := result.Presidents[0]
	if pres.PresidentSlug != "franklin-d-roosevelt" {
		t.Errorf("unexpected president slug: %s", pres.PresidentSlug)
	}

	if len(result.Bundles) != 2 {
		t.Fatalf("expected 2 voyage bundles, got %d", len(result.Bundles))
	}

	first := result.Bundles[0]
	if first.Voyage.VoyageSlug != "1933-04-23-franklin-d-roosevelt-potomac-inspection-trip" {
		t.Errorf("unexpected first voyage slug: %s", first.Voyage.VoyageSlug)
	}
	if first.Voyage.PresidentSlug != "franklin-d-roosevelt" {
		t.Errorf("first voyage should inherit the open president context: %s", first.Voyage.PresidentSlug)
	}
	if len(first.Passengers) != 2 {
		t.Fatalf("expected 2 passengers, got %d", len(first.Passengers))
	}
	if len(first.Media) != 1 {
		t.Fatalf("expected 1 media item, got %d", len(first.Media))
	}
	if first.Media[0].MediaSlug == "" {
		t.Error("media slug should have been generated")
	}

	second := result.Bundles[1]
	if second.Voyage.PresidentSlug != "franklin-d-roosevelt" {
		t.Errorf("second voyage should still inherit the running president context: %s", second.Voyage.PresidentSlug)
	}
	if second.Voyage.VoyageSlug == first.Voyage.VoyageSlug {
		t.Error("voyages sharing (start_date, president) with different titles should get distinct slugs")
	}
	if len(second.Passengers) != 0 {
		t.Errorf("second voyage should have no passengers (none declared), got %d", len(second.Passengers))
	}
}

func TestParseDuplicateVoyageSlugDisambiguation(t *testing.T) {
	doc := `## President
full_name: Grover Cleveland

## Voyage
title: Morning Cruise
start_date: 1890-06-01

## Voyage
title: Morning Cruise
start_date: 1890-06-01
`
	result := Parse(doc)
	if len(result.Bundles) != 2 {
		t.Fatalf("expected 2 bundles, got %d", len(result.Bundles))
	}
	if result.Bundles[0].Voyage.VoyageSlug == result.Bundles[1].Voyage.VoyageSlug {
		t.Fatal("identical (start_date, president, title) voyages must get disambiguated slugs")
	}
	if result.Bundles[1].Voyage.VoyageSlug[len(result.Bundles[1].Voyage.VoyageSlug)-3:] != "-02" {
		t.Errorf("second duplicate should get -02 suffix, got %s", result.Bundles[1].Voyage.VoyageSlug)
	}
}

func TestParseOwnerlessSectionsWarn(t *testing.T) {
	doc := `## Passengers
- slug: nobody
  full_name: Nobody
`
	result := Parse(doc)
	if len(result.Bundles) != 0 {
		t.Fatalf("expected no bundles, got %d", len(result.Bundles))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning about ownerless passengers section, got %d", len(result.Warnings))
	}
}

func TestParsePresidentWithoutFullNameDropped(t *testing.T) {
	doc := `## President
party: Independent
`
	result := Parse(doc)
	if len(result.Presidents) != 0 {
		t.Fatalf("expected president with no full_name to be dropped, got %d", len(result.Presidents))
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
	}
}

func TestParseExplicitVoyageSlugOverride(t *testing.T) {
	doc := `## Voyage
title: Unresolvable Trip
voyage_slug: manual-override-slug
`
	result := Parse(doc)
	if len(result.Bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(result.Bundles))
	}
	if result.Bundles[0].Voyage.VoyageSlug != "manual-override-slug" {
		t.Errorf("expected explicit voyage_slug to be used when start_date/president can't resolve, got %s", result.Bundles[0].Voyage.VoyageSlug)
	}
}
