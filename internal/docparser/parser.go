// Package docparser turns the free-form structured document into a
// normalized list of presidents and voyage bundles. The document is a
// sequence of "## President | Voyage | Passengers | Media" sections
// (case-insensitive, repeatable) parsed with two mini-languages: a KV
// block (President, Voyage) and a list block (Passengers, Media).
package docparser

import (
	"strconv"
	"strings"

	"github.com/sequoia-archive/voyage-ingest/internal/model"
	"github.com/sequoia-archive/voyage-ingest/internal/slug"
)

// Result is everything the parser produces from one document.
type Result struct {
	Presidents []model.President
	Bundles    []model.Bundle
	Warnings   []string
}

type presidentCtx struct {
	fullName string
	slug     string
}

// state accumulates parse progress across sections in document order.
type state struct {
	presidents  []model.President
	fullToSlug  map[string]string // lower(full_name) -> president_slug, for known presidents so far
	currentPres *presidentCtx

	bundles []model.Bundle
	current *model.Bundle // in-progress voyage, nil if none open

	voyageCounters map[[2]string]int // (start_date, president_slug) -> count

	warnings []string
}

// Parse parses raw document text (Markdown with literal "## Name" section
// headers) into a Result.
func Parse(source string) Result {
	st := &state{
		fullToSlug:     map[string]string{},
		voyageCounters: map[[2]string]int{},
	}

	for _, sec := range splitSections([]byte(source)) {
		switch sec.kind {
		case sectionPresident:
			st.flushVoyage()
			st.handlePresident(sec.body)
		case sectionVoyage:
			st.flushVoyage()
			st.openVoyage(sec.body)
		case sectionPassengers:
			st.handlePassengers(sec.body)
		case sectionMedia:
			st.handleMedia(sec.body)
		}
	}
	st.flushVoyage()

	return Result{
		Presidents: st.presidents,
		Bundles:    st.bundles,
		Warnings:   st.warnings,
	}
}

func (st *state) handlePresident(body string) {
	kv := parseKVBlock(splitLinesTrimmed(body))
	fullName := strings.TrimSpace(kv["full_name"])
	if fullName == "" {
		st.warnings = append(st.warnings, "dropped ## President section with no full_name")
		return
	}
	presSlug := strings.TrimSpace(kv["president_slug"])
	if presSlug == "" {
		presSlug = slug.Slugify(fullName)
	}
	st.presidents = append(st.presidents, model.President{
		PresidentSlug: presSlug,
		FullName:      fullName,
		Party:         kv["party"],
		TermStart:     kv["term_start"],
		TermEnd:       kv["term_end"],
		WikipediaURL:  kv["wikipedia_url"],
		Tags:          kv["tags"],
	})
	st.fullToSlug[strings.ToLower(fullName)] = presSlug
	st.currentPres = &presidentCtx{fullName: fullName, slug: presSlug}
}

func (st *state) openVoyage(body string) {
	kv := parseKVBlock(splitLinesTrimmed(body))

	presFull := strings.TrimSpace(kv["president"])
	if presFull == "" && st.currentPres != nil {
		presFull = st.currentPres.fullName
	}
	presSlug := ""
	if presFull != "" {
		if s, ok := st.fullToSlug[strings.ToLower(presFull)]; ok {
			presSlug = s
		} else {
			presSlug = slug.Slugify(presFull)
		}
	}

	startDate := strings.TrimSpace(kv["start_date"])
	title := strings.TrimSpace(kv["title"])

	voyageSlug := strings.TrimSpace(kv["voyage_slug"])
	if startDate != "" && presSlug != "" {
		descriptor := firstNWordsSlug(title, 5)
		if descriptor == "" {
			descriptor = "voyage"
		}
		base := startDate + "-" + presSlug + "-" + descriptor
		key := [2]string{startDate, presSlug}
		st.voyageCounters[key]++
		n := st.voyageCounters[key]
		if n > 1 {
			voyageSlug = base + "-" + pad2(n)
		} else {
			voyageSlug = base
		}
	}

	v := model.Voyage{
		VoyageSlug:      voyageSlug,
		Title:           title,
		StartDate:       startDate,
		EndDate:         strings.TrimSpace(kv["end_date"]),
		StartTime:       strings.TrimSpace(kv["start_time"]),
		EndTime:         strings.TrimSpace(kv["end_time"]),
		Origin:          kv["origin"],
		Destination:     kv["destination"],
		VesselName:      kv["vessel_name"],
		VoyageType:      strings.ToLower(strings.TrimSpace(kv["voyage_type"])),
		SummaryMarkdown: firstNonEmpty(kv["summary_markdown"], kv["summary"]),
		SourceURLs:      splitSourceURLs(firstNonEmpty(kv["source_urls"], kv["sources"])),
		Tags:            kv["tags"],
		President:       presFull,
		PresidentSlug:   presSlug,
	}

	st.current = &model.Bundle{Voyage: v}
}

func (st *state) handlePassengers(body string) {
	if st.current == nil {
		st.warnings = append(st.warnings, "dropped ownerless ## Passengers section (no active voyage)")
		return
	}
	for _, entry := range splitEntriesBlock(splitLinesTrimmed(body)) {
		kv := parseKVBlock(entry)
		personSlug := firstNonEmpty(kv["slug"], kv["person_slug"])
		st.current.Passengers = append(st.current.Passengers, model.Person{
			PersonSlug:   personSlug,
			FullName:     kv["full_name"],
			RoleTitle:    kv["role_title"],
			Organization: kv["organization"],
			BirthYear:    kv["birth_year"],
			DeathYear:    kv["death_year"],
			WikipediaURL: kv["wikipedia_url"],
			Tags:         kv["tags"],
			CapacityRole: kv["capacity_role"],
			Notes:        kv["notes"],
		})
	}
}

func (st *state) handleMedia(body string) {
	if st.current == nil {
		st.warnings = append(st.warnings, "dropped ownerless ## Media section (no active voyage)")
		return
	}
	for _, entry := range splitEntriesBlock(splitLinesTrimmed(body)) {
		kv := parseKVBlock(entry)
		st.current.Media = append(st.current.Media, model.Media{
			MediaSlug:           firstNonEmpty(kv["slug"], kv["media_slug"]),
			Title:               kv["title"],
			Credit:              kv["credit"],
			Date:                kv["date"],
			DescriptionMarkdown: firstNonEmpty(kv["description_markdown"], kv["description"]),
			Tags:                kv["tags"],
			GoogleDriveLink:     kv["google_drive_link"],
			Notes:               kv["notes"],
		})
	}
}

// flushVoyage appends the in-progress voyage (if any) to bundles, running
// media slug generation first.
func (st *state) flushVoyage() {
	if st.current == nil {
		return
	}
	items := make([]*slug.MediaSlugItem, len(st.current.Media))
	for i := range st.current.Media {
		items[i] = &slug.MediaSlugItem{
			Slug:   st.current.Media[i].MediaSlug,
			Date:   st.current.Media[i].Date,
			Credit: st.current.Media[i].Credit,
		}
	}
	slug.GenerateMediaSlugs(items, st.current.Voyage.VoyageSlug)
	for i := range st.current.Media {
		st.current.Media[i].MediaSlug = items[i].Slug
		st.current.Media[i].SourceSlug = items[i].SourceSlug
	}

	st.bundles = append(st.bundles, *st.current)
	st.current = nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstNWordsSlug(title string, n int) string {
	fields := strings.Fields(title)
	if len(fields) > n {
		fields = fields[:n]
	}
	return slug.Slugify(strings.Join(fields, " "))
}

func splitSourceURLs(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r' || r == '\t' || r == ' '
	})
	var out []string
	for _, f := range fields {
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
