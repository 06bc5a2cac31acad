// Package model holds the normalized entity types produced by the parser
// and consumed by every downstream writer. Records are tagged structs, not
// loosely-typed maps — parsers emit records.
package model

// VoyageType enumerates the allowed values of Voyage.VoyageType.
type VoyageType string

const (
	VoyageOfficial    VoyageType = "official"
	VoyagePrivate     VoyageType = "private"
	VoyageMaintenance VoyageType = "maintenance"
	VoyageOther       VoyageType = "other"
)

// MediaType enumerates the allowed values of Media.MediaType.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
	MediaAudio MediaType = "audio"
	MediaPDF   MediaType = "pdf"
	MediaOther MediaType = "other"
)

// President is the presidents registry master row.
type President struct {
	PresidentSlug string
	FullName      string
	Party         string
	TermStart     string
	TermEnd       string
	WikipediaURL  string
	Tags          string
}

// Voyage is a single voyage master row, plus the fields derived during
// parsing (VoyageSlug, PresidentSlug) that are not present verbatim in the
// source document.
type Voyage struct {
	VoyageSlug       string
	Title            string
	StartDate        string
	EndDate          string
	StartTime        string
	EndTime          string
	Origin           string
	Destination      string
	VesselName       string
	VoyageType       string
	SummaryMarkdown  string
	SourceURLs       []string
	Tags             string
	President        string // full name, as written in the document
	PresidentSlug    string // derived
}

// Person is a passenger master row.
type Person struct {
	PersonSlug   string
	FullName     string
	RoleTitle    string
	Organization string
	BirthYear    string
	DeathYear    string
	WikipediaURL string
	Tags         string

	// Per-voyage join fields, set while parsing a Passengers entry.
	CapacityRole string
	Notes        string
}

// Media is a media master row, plus parse-time provenance fields.
type Media struct {
	MediaSlug           string
	Title               string
	MediaType           string
	S3URL               string
	PublicDerivativeURL string
	Credit              string
	Date                string
	DescriptionMarkdown string
	Tags                string
	GoogleDriveLink     string

	// Derived during slug generation; persisted for key computation.
	SourceSlug string

	// Per-voyage join field.
	Notes string
}

// Bundle is the in-memory structured object the parser produces for one
// voyage: the voyage itself, its passengers, and its media.
type Bundle struct {
	Voyage     Voyage
	Passengers []Person
	Media      []Media
}

// VoyagePassenger is the voyage_passengers join row.
type VoyagePassenger struct {
	VoyageSlug   string
	PersonSlug   string
	CapacityRole string
	Notes        string
}

// VoyageMedia is the voyage_media join row.
type VoyageMedia struct {
	VoyageSlug string
	MediaSlug  string
	SortOrder  *int
	Notes      string
}

// MediaLocation is the result of fetching and storing one media item:
// its private object-store URL and, for images, the public preview and
// thumbnail URLs.
type MediaLocation struct {
	PrivateURL   string
	PublicURL    string
	ThumbnailURL string
}
