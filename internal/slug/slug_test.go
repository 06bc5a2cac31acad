package slug

import "testing"

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Franklin D. Roosevelt": "franklin-d-roosevelt",
		"  leading/trailing  ":  "leading-trailing",
		"multiple---dashes":     "multiple-dashes",
		"":                      "unknown",
		"!!!":                   "unknown",
	}
	for input, want := range cases {
		if got := Slugify(input); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeSourceAliases(t *testing.T) {
	cases := map[string]string{
		"White House Photographer": "white-house",
		"National Archives":        "national-archives",
		"Natl Archives":            "national-archives",
		"Some Random Photographer": "some-random-photographer",
		"":                         "unknown-source",
		"   ":                     "unknown-source",
	}
	for input, want := range cases {
		if got := NormalizeSource(input); got != want {
			t.Errorf("NormalizeSource(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestTokenizeDate(t *testing.T) {
	cases := map[string]string{
		"1933-04-23": "1933-04-23",
		"April 1933": "april-1933",
		"":           "undated",
	}
	for input, want := range cases {
		if got := TokenizeDate(input); got != want {
			t.Errorf("TokenizeDate(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestGenerateMediaSlugsSequenceAndDeterminism(t *testing.T) {
	items := []*MediaSlugItem{
		{Date: "1933-04-23", Credit: "White House Photographer"},
		{Date: "1933-04-23", Credit: "White House Photographer"},
		{Date: "1933-04-23", Credit: "National Archives"},
	}
	GenerateMediaSlugs(items, "1933-04-23-roosevelt-inspection")

	if items[0].Slug != "1933-04-23-white-house-1933-04-23-roosevelt-inspection-01" {
		t.Errorf("unexpected first slug: %s", items[0].Slug)
	}
	if items[1].Slug != "1933-04-23-white-house-1933-04-23-roosevelt-inspection-02" {
		t.Errorf("unexpected second slug (sequence should increment within same group): %s", items[1].Slug)
	}
	if items[2].Slug == items[0].Slug {
		t.Errorf("different source should not collide with first group's slug")
	}
	if items[0].SourceSlug != "white-house" {
		t.Errorf("SourceSlug not set: %s", items[0].SourceSlug)
	}

	// Re-running with the same inputs produces the same slugs (determinism).
	items2 := []*MediaSlugItem{
		{Date: "1933-04-23", Credit: "White House Photographer"},
		{Date: "1933-04-23", Credit: "White House Photographer"},
		{Date: "1933-04-23", Credit: "National Archives"},
	}
	GenerateMediaSlugs(items2, "1933-04-23-roosevelt-inspection")
	for i := range items {
		if items[i].Slug != items2[i].Slug {
			t.Errorf("slug generation is not deterministic: %s != %s", items[i].Slug, items2[i].Slug)
		}
	}
}

func TestGenerateMediaSlugsPreservesExisting(t *testing.T) {
	items := []*MediaSlugItem{
		{Slug: "already-set", Date: "1933-04-23", Credit: "anyone"},
	}
	GenerateMediaSlugs(items, "v")
	if items[0].Slug != "already-set" {
		t.Errorf("existing slug should not be overwritten, got %s", items[0].Slug)
	}
}

func TestPresidentFromVoyageSlug(t *testing.T) {
	known := []string{"franklin-d-roosevelt", "franklin-pierce"}

	if got := PresidentFromVoyageSlug("1933-04-23-franklin-d-roosevelt-inspection", known); got != "franklin-d-roosevelt" {
		t.Errorf("got %s, want longest-matching known president", got)
	}
	if got := PresidentFromVoyageSlug("1933-04-23-unknown-guy-trip", known); got != "unknown" {
		t.Errorf("got %s, want fallback to first hyphen token", got)
	}
	if got := PresidentFromVoyageSlug("not-a-dated-slug", known); got != "unknown-president" {
		t.Errorf("got %s, want unknown-president for non-dated slug", got)
	}
}
