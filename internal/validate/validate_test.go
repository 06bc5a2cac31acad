package validate

import (
	"testing"

	"github.com/sequoia-archive/voyage-ingest/internal/model"
)

func baseVoyage() model.Voyage {
	return model.Voyage{
		VoyageSlug:    "1933-04-23-franklin-d-roosevelt-potomac-trip",
		Title:         "Potomac Trip",
		StartDate:     "1933-04-23",
		President:     "Franklin D. Roosevelt",
		PresidentSlug: "franklin-d-roosevelt",
		VoyageType:    "official",
	}
}

func registry() PresidentRegistry {
	return PresidentRegistry{
		KnownSlugs:     map[string]bool{"franklin-d-roosevelt": true},
		FullNameToSlug: map[string]string{"franklin d. roosevelt": "franklin-d-roosevelt"},
	}
}

func TestValidateBundleValid(t *testing.T) {
	b := model.Bundle{Voyage: baseVoyage()}
	issues := ValidateBundle(b, registry())
	if HasErrors(issues) {
		t.Fatalf("expected no errors, got %v", issues)
	}
}

func TestValidateBundleMissingRequiredFields(t *testing.T) {
	b := model.Bundle{Voyage: model.Voyage{}}
	issues := ValidateBundle(b, registry())
	if !HasErrors(issues) {
		t.Fatal("expected errors for empty voyage")
	}
	want := map[string]bool{
		"missing required field: voyage_slug": false,
		"missing required field: title":       false,
		"missing required field: start_date":  false,
		"missing required field: president":   false,
	}
	for _, i := range issues {
		if _, ok := want[i.Message]; ok {
			want[i.Message] = true
		}
	}
	for msg, found := range want {
		if !found {
			t.Errorf("expected issue %q", msg)
		}
	}
}

func TestValidateBundleBadDateFormat(t *testing.T) {
	v := baseVoyage()
	v.StartDate = "04/23/1933"
	b := model.Bundle{Voyage: v}
	issues := ValidateBundle(b, registry())
	if !HasErrors(issues) {
		t.Fatal("expected an error for malformed start_date")
	}
}

func TestValidateBundleVoyageSlugDateMismatch(t *testing.T) {
	v := baseVoyage()
	v.StartDate = "1933-04-24"
	b := model.Bundle{Voyage: v}
	issues := ValidateBundle(b, registry())
	if !HasErrors(issues) {
		t.Fatal("expected an error when voyage_slug date disagrees with start_date")
	}
}

func TestValidateBundleUnknownPresidentSlug(t *testing.T) {
	v := baseVoyage()
	b := model.Bundle{Voyage: v}
	issues := ValidateBundle(b, PresidentRegistry{
		KnownSlugs:     map[string]bool{"some-other-president": true},
		FullNameToSlug: map[string]string{"franklin d. roosevelt": "franklin-d-roosevelt"},
	})
	if !HasErrors(issues) {
		t.Fatal("expected an error when president_slug is not in the known registry")
	}
}

func TestValidateBundleEmptyRegistrySkipsCrossRef(t *testing.T) {
	b := model.Bundle{Voyage: baseVoyage()}
	issues := ValidateBundle(b, PresidentRegistry{})
	if HasErrors(issues) {
		t.Fatalf("empty registry should skip cross-reference checks, got %v", issues)
	}
}

func TestValidateBundleMediaChecks(t *testing.T) {
	b := model.Bundle{
		Voyage: baseVoyage(),
		Media: []model.Media{
			{
				MediaSlug:       "bad-slug-shape",
				Title:           "Deck view",
				Credit:          "White House Photographer",
				Date:            "1933-04-23",
				GoogleDriveLink: "https://example.com/not-a-drive-link",
			},
			{
				Title: "",
			},
		},
	}
	issues := ValidateBundle(b, registry())
	if !HasErrors(issues) {
		t.Fatal("expected errors for unsupported media link and missing fields")
	}

	foundWarning := false
	for _, i := range issues {
		if i.Severity == SeverityWarning {
			foundWarning = true
		}
	}
	if !foundWarning {
		t.Error("expected a warning-level issue for the mismatched media slug shape")
	}
}

func TestValidateBundlePassengerBadSlugAndYear(t *testing.T) {
	b := model.Bundle{
		Voyage: baseVoyage(),
		Passengers: []model.Person{
			{PersonSlug: "NOT_VALID!", BirthYear: "not-a-year"},
		},
	}
	issues := ValidateBundle(b, registry())
	if !HasErrors(issues) {
		t.Fatal("expected errors for invalid person slug and non-integer birth_year")
	}
}

func TestHasErrorsDistinguishesWarnings(t *testing.T) {
	issues := []Issue{{Severity: SeverityWarning, Message: "w"}}
	if HasErrors(issues) {
		t.Fatal("warnings alone should not count as errors")
	}
	issues = append(issues, Issue{Severity: SeverityError, Message: "e"})
	if !HasErrors(issues) {
		t.Fatal("an error among warnings should be detected")
	}
}
