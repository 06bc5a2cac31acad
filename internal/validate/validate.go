// Package validate checks a parsed bundle against the structural and
// referential rules the downstream writers depend on: date/time formats,
// voyage_slug shape, media link shape, and president-registry
// cross-references.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sequoia-archive/voyage-ingest/internal/model"
	"github.com/sequoia-archive/voyage-ingest/internal/slug"
)

// Severity distinguishes issues that block a voyage from being written
// (Error) from ones that are surfaced but don't block ingest (Warning).
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding against a specific path within a bundle.
type Issue struct {
	Path     string
	Message  string
	Severity Severity
}

func (i Issue) String() string {
	return fmt.Sprintf("[%s] %s: %s", i.Path, i.Severity, i.Message)
}

var (
	dateRe            = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe            = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
	voyageSlugCapture = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})-([a-z0-9-]+)-([a-z0-9-]+)$`)
	personSlugRe      = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)+(?:-[a-z0-9]+)?$`)
)

var validVoyageTypes = map[string]bool{
	"official": true, "private": true, "maintenance": true, "other": true,
}

// PresidentRegistry is the subset of the presidents master list the
// validator needs to cross-check a voyage's derived president_slug.
type PresidentRegistry struct {
	// KnownSlugs is every president_slug currently on record.
	KnownSlugs map[string]bool
	// FullNameToSlug maps lower(full_name) -> president_slug.
	FullNameToSlug map[string]string
}

func errf(path, format string, args ...interface{}) Issue {
	return Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityError}
}

func warnf(path, format string, args ...interface{}) Issue {
	return Issue{Path: path, Message: fmt.Sprintf(format, args...), Severity: SeverityWarning}
}

func isSupportedMediaLink(s string) bool {
	l := strings.ToLower(s)
	return strings.Contains(l, "/file/d/") || strings.Contains(l, "dropbox.com")
}

// ValidateBundle checks one voyage bundle (voyage + passengers + media) and
// returns every issue found. An empty registry skips the presidents
// cross-reference checks rather than failing on every voyage.
func ValidateBundle(b model.Bundle, reg PresidentRegistry) []Issue {
	var issues []Issue
	v := b.Voyage

	if strings.TrimSpace(v.VoyageSlug) == "" {
		issues = append(issues, errf("voyage", "missing required field: voyage_slug"))
	}
	if strings.TrimSpace(v.Title) == "" {
		issues = append(issues, errf("voyage", "missing required field: title"))
	}
	if strings.TrimSpace(v.StartDate) == "" {
		issues = append(issues, errf("voyage", "missing required field: start_date"))
	}
	if strings.TrimSpace(v.President) == "" {
		issues = append(issues, errf("voyage", "missing required field: president"))
	}

	if v.StartDate != "" && !dateRe.MatchString(v.StartDate) {
		issues = append(issues, errf("voyage", "invalid date for start_date: %s (YYYY-MM-DD)", v.StartDate))
	}
	if v.EndDate != "" && !dateRe.MatchString(v.EndDate) {
		issues = append(issues, errf("voyage", "invalid date for end_date: %s (YYYY-MM-DD)", v.EndDate))
	}
	if v.StartTime != "" && !timeRe.MatchString(v.StartTime) {
		issues = append(issues, errf("voyage", "invalid time for start_time: %s (HH:MM or HH:MM:SS)", v.StartTime))
	}
	if v.EndTime != "" && !timeRe.MatchString(v.EndTime) {
		issues = append(issues, errf("voyage", "invalid time for end_time: %s (HH:MM or HH:MM:SS)", v.EndTime))
	}
	if v.VoyageType != "" && !validVoyageTypes[strings.ToLower(v.VoyageType)] {
		issues = append(issues, errf("voyage", "invalid value for voyage_type: %s", v.VoyageType))
	}

	vslug := strings.TrimSpace(v.VoyageSlug)
	if vslug != "" {
		m := voyageSlugCapture.FindStringSubmatch(vslug)
		if m == nil {
			issues = append(issues, errf("voyage", "invalid voyage_slug format: %s (expected YYYY-MM-DD-<president>-<descriptor>)", vslug))
		} else {
			datePart := m[1]
			if v.StartDate != "" && datePart != v.StartDate {
				issues = append(issues, errf("voyage", "voyage_slug date %s != start_date %s", datePart, v.StartDate))
			}

			presFull := strings.ToLower(strings.TrimSpace(v.President))
			expectedSlug := ""
			if presFull != "" {
				if s, ok := reg.FullNameToSlug[presFull]; ok {
					expectedSlug = s
				} else {
					expectedSlug = slug.Slugify(presFull)
				}
			}
			if expectedSlug != "" && !strings.HasPrefix(vslug, datePart+"-"+expectedSlug+"-") {
				issues = append(issues, errf("voyage", "voyage_slug '%s' does not start with '%s-%s-' for president '%s'", vslug, datePart, expectedSlug, presFull))
			}
			if len(reg.KnownSlugs) > 0 && expectedSlug != "" && !reg.KnownSlugs[expectedSlug] {
				issues = append(issues, errf("voyage", "president '%s' not found in presidents registry", expectedSlug))
			}
		}
	}

	for i, p := range b.Passengers {
		path := fmt.Sprintf("passengers #%d", i+1)
		ps := strings.TrimSpace(p.PersonSlug)
		if ps != "" && !personSlugRe.MatchString(ps) {
			issues = append(issues, errf(path, "invalid person slug: %s", ps))
		}
		for _, field := range []struct {
			name string
			val  string
		}{{"birth_year", p.BirthYear}, {"death_year", p.DeathYear}} {
			val := strings.TrimSpace(field.val)
			if val != "" {
				if _, err := strconv.Atoi(val); err != nil {
					issues = append(issues, errf(path, "%s must be an integer if provided", field.name))
				}
			}
		}
	}

	for i, m := range b.Media {
		path := fmt.Sprintf("media #%d", i+1)
		if strings.TrimSpace(m.Title) == "" {
			issues = append(issues, errf(path, "missing required field: title"))
		}
		if strings.TrimSpace(m.Credit) == "" {
			issues = append(issues, errf(path, "missing required field: credit"))
		}
		if strings.TrimSpace(m.Date) == "" {
			issues = append(issues, errf(path, "missing required field: date"))
		}
		if strings.TrimSpace(m.GoogleDriveLink) == "" {
			issues = append(issues, errf(path, "missing required field: google_drive_link"))
		}
		if m.Date != "" && !dateRe.MatchString(m.Date) {
			issues = append(issues, errf(path, "invalid date for date: %s (YYYY-MM-DD)", m.Date))
		}
		link := strings.TrimSpace(m.GoogleDriveLink)
		if link != "" && !isSupportedMediaLink(link) {
			issues = append(issues, errf(path, "media link must be a Google Drive '/file/d/<ID>/...' or a Dropbox shared link"))
		}

		mslug := strings.TrimSpace(m.MediaSlug)
		if mslug != "" && vslug != "" {
			expected := expectedMediaSlugPattern(m.Date, vslug)
			if !expected.MatchString(mslug) {
				issues = append(issues, warnf(path, "media slug '%s' does not match '<date>-<source>-%s-NN'", mslug, vslug))
			}
		}
	}

	return issues
}

// expectedMediaSlugPattern builds the per-media regex matching the
// date-source-voyage-NN shape GenerateMediaSlugs produces.
func expectedMediaSlugPattern(date, voyageSlug string) *regexp.Regexp {
	d := regexp.QuoteMeta(strings.TrimSpace(date))
	v := regexp.QuoteMeta(voyageSlug)
	return regexp.MustCompile("^" + d + `-[a-z0-9-]+-` + v + `-\d{2}$`)
}

// HasErrors reports whether any issue in the slice is an Error (as opposed
// to a Warning).
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
