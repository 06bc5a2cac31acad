package orchestrator

import (
	"strconv"
	"strings"

	"github.com/sequoia-archive/voyage-ingest/internal/model"
)

func joinURLs(urls []string) string {
	return strings.Join(urls, ", ")
}

func presidentFields(p model.President) map[string]string {
	return map[string]string{
		"president_slug": p.PresidentSlug,
		"full_name":      p.FullName,
		"party":          p.Party,
		"term_start":     p.TermStart,
		"term_end":       p.TermEnd,
		"wikipedia_url":  p.WikipediaURL,
		"tags":           p.Tags,
	}
}

func voyageFields(v model.Voyage) map[string]string {
	return map[string]string{
		"voyage_slug":       v.VoyageSlug,
		"title":             v.Title,
		"start_date":        v.StartDate,
		"end_date":          v.EndDate,
		"origin":            v.Origin,
		"destination":       v.Destination,
		"vessel_name":       v.VesselName,
		"voyage_type":       v.VoyageType,
		"summary_markdown":  v.SummaryMarkdown,
		"source_urls":       joinURLs(v.SourceURLs),
		"tags":              v.Tags,
	}
}

func passengerFields(p model.Person) map[string]string {
	return map[string]string{
		"person_slug":   p.PersonSlug,
		"full_name":     p.FullName,
		"role_title":    p.RoleTitle,
		"organization":  p.Organization,
		"birth_year":    p.BirthYear,
		"death_year":    p.DeathYear,
		"wikipedia_url": p.WikipediaURL,
		"tags":          p.Tags,
	}
}

func mediaFields(m model.Media, loc model.MediaLocation) map[string]string {
	return map[string]string{
		"media_slug":             m.MediaSlug,
		"title":                  m.Title,
		"media_type":             m.MediaType,
		"s3_url":                 loc.PrivateURL,
		"thumbnail_s3_url":       loc.ThumbnailURL,
		"credit":                 m.Credit,
		"date":                   m.Date,
		"description_markdown":   m.DescriptionMarkdown,
		"tags":                   m.Tags,
		"copyright_restrictions": "",
		"google_drive_link":      m.GoogleDriveLink,
	}
}

func voyagePassengerFields(voyageSlug string, p model.Person) map[string]string {
	return map[string]string{
		"voyage_slug":   voyageSlug,
		"person_slug":   p.PersonSlug,
		"capacity_role": p.CapacityRole,
		"notes":         p.Notes,
	}
}

func voyageMediaFields(voyageSlug string, m model.Media) map[string]string {
	sortOrder := ""
	if i := strings.LastIndex(m.MediaSlug, "-"); i >= 0 && i < len(m.MediaSlug)-1 {
		if _, err := strconv.Atoi(m.MediaSlug[i+1:]); err == nil {
			sortOrder = m.MediaSlug[i+1:]
		}
	}
	return map[string]string{
		"voyage_slug": voyageSlug,
		"media_slug":  m.MediaSlug,
		"sort_order":  sortOrder,
		"notes":       m.Notes,
	}
}

func voyagePresidentFields(voyageSlug, presidentSlug string) map[string]string {
	return map[string]string{
		"voyage_slug":    voyageSlug,
		"president_slug": presidentSlug,
		"notes":          "",
	}
}
