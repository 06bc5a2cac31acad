// Package store writes the normalized parser output to Postgres: the
// presidents registry, and per-voyage, voyages/people/media plus their
// join tables. All writes for one voyage happen inside a single
// transaction in the order voyage -> people -> media -> joins so a
// failure partway through never leaves a voyage half-written.
package store

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/sequoia-archive/voyage-ingest/internal/media"
	"github.com/sequoia-archive/voyage-ingest/internal/model"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}(:\d{2})?$`)
)

// Store is the Postgres-backed writer for the normalized ingest model.
type Store struct {
	pool   *pgxpool.Pool
	schema string
	logger zerolog.Logger
}

// New builds a Store bound to pool, scoping every session to schema via
// search_path.
func New(pool *pgxpool.Pool, schema string, logger zerolog.Logger) *Store {
	return &Store{pool: pool, schema: schema, logger: logger.With().Str("component", "store").Logger()}
}

func (s *Store) setSearchPath(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, fmt.Sprintf("SET search_path = %s, public", s.schema))
	return err
}

// ns normalizes a string field to nil when blank, matching the
// nullable-text convention every writer column uses.
func ns(v string) interface{} {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return v
}

// nd normalizes and validates a YYYY-MM-DD date field, returning nil (and
// logging a warning) for a non-empty value that doesn't match.
func (s *Store) nd(v, path string) interface{} {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if !dateRe.MatchString(v) {
		s.logger.Warn().Str("path", path).Str("value", v).Msg("ignoring non-YYYY-MM-DD date")
		return nil
	}
	return v
}

// nt normalizes and validates an HH:MM[:SS] time field.
func (s *Store) nt(v, path string) interface{} {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	if !timeRe.MatchString(v) {
		s.logger.Warn().Str("path", path).Str("value", v).Msg("ignoring non-HH:MM[:SS] time")
		return nil
	}
	return v
}

func ni(v string) interface{} {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return n
}

// UpsertPresidents upserts every president row by president_slug inside
// tx. ResetPresidentsSafe calls it with the document's own President
// sections; UpsertVoyageBundle does not write presidents.
func (s *Store) UpsertPresidents(ctx context.Context, tx pgx.Tx, presidents []model.President) error {
	for _, p := range presidents {
		_, err := tx.Exec(ctx, `
			INSERT INTO presidents (president_slug, full_name, party, term_start, term_end, wikipedia_url, tags)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (president_slug) DO UPDATE SET
				full_name = EXCLUDED.full_name,
				party = EXCLUDED.party,
				term_start = EXCLUDED.term_start,
				term_end = EXCLUDED.term_end,
				wikipedia_url = EXCLUDED.wikipedia_url,
				tags = EXCLUDED.tags
		`, ns(p.PresidentSlug), ns(p.FullName), ns(p.Party), s.nd(p.TermStart, "president.term_start"), s.nd(p.TermEnd, "president.term_end"), ns(p.WikipediaURL), ns(p.Tags))
		if err != nil {
			return fmt.Errorf("upsert president %s: %w", p.PresidentSlug, err)
		}
	}
	return nil
}

// ResetPresidentsSafe upserts the given presidents and deletes any
// president row that is neither in the incoming list nor referenced by
// any voyage. It never truncates: a president referenced by an existing
// voyage is preserved even if the current document omits it.
func (s *Store) ResetPresidentsSafe(ctx context.Context, presidents []model.President) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.setSearchPath(ctx, tx); err != nil {
		return err
	}
	if err := s.UpsertPresidents(ctx, tx, presidents); err != nil {
		return err
	}

	slugs := make([]string, 0, len(presidents))
	for _, p := range presidents {
		if strings.TrimSpace(p.PresidentSlug) != "" {
			slugs = append(slugs, p.PresidentSlug)
		}
	}

	if len(slugs) > 0 {
		_, err = tx.Exec(ctx, `
			DELETE FROM presidents p
			WHERE p.president_slug <> ALL($1)
			  AND NOT EXISTS (
			      SELECT 1 FROM voyages v WHERE v.president_slug = p.president_slug
			  )
		`, slugs)
	} else {
		_, err = tx.Exec(ctx, `
			DELETE FROM presidents p
			WHERE NOT EXISTS (
			    SELECT 1 FROM voyages v WHERE v.president_slug = p.president_slug
			)
		`)
	}
	if err != nil {
		return fmt.Errorf("prune presidents: %w", err)
	}

	return tx.Commit(ctx)
}

// UpsertVoyageBundle writes one voyage and its passengers, media, and
// join rows in a single transaction. mediaLocations maps media_slug to
// the object-store location computed by the media fetcher for this run.
func (s *Store) UpsertVoyageBundle(ctx context.Context, bundle model.Bundle, mediaLocations map[string]model.MediaLocation) error {
	v := bundle.Voyage

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := s.setSearchPath(ctx, tx); err != nil {
		return err
	}

	sourceURLs := interface{}(nil)
	if len(v.SourceURLs) > 0 {
		sourceURLs = v.SourceURLs
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO voyages (
			voyage_slug, title, start_date, end_date, start_time, end_time,
			origin, destination, vessel_name, voyage_type,
			summary_markdown, source_urls, tags, president_slug
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		ON CONFLICT (voyage_slug) DO UPDATE SET
			title = EXCLUDED.title,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			origin = EXCLUDED.origin,
			destination = EXCLUDED.destination,
			vessel_name = EXCLUDED.vessel_name,
			voyage_type = EXCLUDED.voyage_type,
			summary_markdown = EXCLUDED.summary_markdown,
			source_urls = EXCLUDED.source_urls,
			tags = EXCLUDED.tags,
			president_slug = EXCLUDED.president_slug
	`,
		ns(v.VoyageSlug), ns(v.Title), s.nd(v.StartDate, "voyage.start_date"), s.nd(v.EndDate, "voyage.end_date"),
		s.nt(v.StartTime, "voyage.start_time"), s.nt(v.EndTime, "voyage.end_time"), ns(v.Origin), ns(v.Destination),
		ns(v.VesselName), ns(v.VoyageType), ns(v.SummaryMarkdown), sourceURLs, ns(v.Tags), ns(v.PresidentSlug))
	if err != nil {
		return fmt.Errorf("upsert voyage %s: %w", v.VoyageSlug, err)
	}

	for _, p := range bundle.Passengers {
		_, err = tx.Exec(ctx, `
			INSERT INTO people (person_slug, full_name, role_title, organization, birth_year, death_year, wikipedia_url, tags)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (person_slug) DO UPDATE SET
				full_name = EXCLUDED.full_name,
				role_title = EXCLUDED.role_title,
				organization = EXCLUDED.organization,
				birth_year = EXCLUDED.birth_year,
				death_year = EXCLUDED.death_year,
				wikipedia_url = EXCLUDED.wikipedia_url,
				tags = EXCLUDED.tags
		`, ns(p.PersonSlug), ns(p.FullName), ns(p.RoleTitle), ns(p.Organization), ni(p.BirthYear), ni(p.DeathYear), ns(p.WikipediaURL), ns(p.Tags))
		if err != nil {
			return fmt.Errorf("upsert person %s: %w", p.PersonSlug, err)
		}
	}

	for _, m := range bundle.Media {
		loc := mediaLocations[m.MediaSlug]
		_, err = tx.Exec(ctx, `
			INSERT INTO media (media_slug, title, media_type, s3_url, public_derivative_url, credit, date, description_markdown, tags, google_drive_link)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (media_slug) DO UPDATE SET
				title = EXCLUDED.title,
				media_type = EXCLUDED.media_type,
				s3_url = EXCLUDED.s3_url,
				public_derivative_url = EXCLUDED.public_derivative_url,
				credit = EXCLUDED.credit,
				date = EXCLUDED.date,
				description_markdown = EXCLUDED.description_markdown,
				tags = EXCLUDED.tags,
				google_drive_link = EXCLUDED.google_drive_link
		`, ns(m.MediaSlug), ns(m.Title), ns(m.MediaType), ns(loc.PrivateURL), ns(loc.PublicURL), ns(m.Credit), s.nd(m.Date, "media.date"), ns(m.DescriptionMarkdown), ns(m.Tags), ns(m.GoogleDriveLink))
		if err != nil {
			return fmt.Errorf("upsert media %s: %w", m.MediaSlug, err)
		}
	}

	for _, p := range bundle.Passengers {
		_, err = tx.Exec(ctx, `
			INSERT INTO voyage_passengers (voyage_slug, person_slug, capacity_role, notes)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (voyage_slug, person_slug) DO UPDATE SET
				capacity_role = EXCLUDED.capacity_role,
				notes = EXCLUDED.notes
		`, v.VoyageSlug, p.PersonSlug, ns(p.CapacityRole), ns(p.Notes))
		if err != nil {
			return fmt.Errorf("upsert voyage_passengers %s/%s: %w", v.VoyageSlug, p.PersonSlug, err)
		}
	}

	for _, m := range bundle.Media {
		_, err = tx.Exec(ctx, `
			INSERT INTO voyage_media (voyage_slug, media_slug, sort_order, notes)
			VALUES ($1,$2,$3,$4)
			ON CONFLICT (voyage_slug, media_slug) DO UPDATE SET
				sort_order = COALESCE(EXCLUDED.sort_order, voyage_media.sort_order),
				notes = EXCLUDED.notes
		`, v.VoyageSlug, m.MediaSlug, sortOrderFromSlug(m.MediaSlug), ns(m.Notes))
		if err != nil {
			return fmt.Errorf("upsert voyage_media %s/%s: %w", v.VoyageSlug, m.MediaSlug, err)
		}
	}

	return tx.Commit(ctx)
}

// sortOrderFromSlug recovers the trailing -NN sequence number a media
// slug was assigned during generation, used as its default display order
// within a voyage.
func sortOrderFromSlug(mediaSlug string) interface{} {
	i := strings.LastIndex(mediaSlug, "-")
	if i < 0 || i == len(mediaSlug)-1 {
		return nil
	}
	n, err := strconv.Atoi(mediaSlug[i+1:])
	if err != nil {
		return nil
	}
	return n
}

// ExistingMediaLocation looks up a previously-stored media row by its
// source link, for the media fetcher's move-on-rename path.
func (s *Store) ExistingMediaLocation(ctx context.Context, googleDriveLink string) (*media.ExistingLocation, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	if err := s.setSearchPath(ctx, tx); err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT m.s3_url, m.media_type, m.credit, m.media_slug, COALESCE(vm.voyage_slug, '')
		FROM media m
		LEFT JOIN voyage_media vm ON vm.media_slug = m.media_slug
		WHERE lower(m.google_drive_link) = lower($1)
		LIMIT 1
	`, googleDriveLink)

	var loc media.ExistingLocation
	if err := row.Scan(&loc.S3URL, &loc.MediaType, &loc.Credit, &loc.MediaSlug, &loc.VoyageSlug); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &loc, nil
}

// PresidentSlugs returns every president_slug currently on record, for
// the validator's registry cross-check.
func (s *Store) PresidentSlugs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT president_slug FROM %s.presidents", s.schema))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return nil, err
		}
		out[slug] = true
	}
	return out, rows.Err()
}

// PresidentFullNameToSlug returns a lower(full_name) -> president_slug
// map, for the validator's president-slug cross-check.
func (s *Store) PresidentFullNameToSlug(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf("SELECT full_name, president_slug FROM %s.presidents", s.schema))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var full, slug string
		if err := rows.Scan(&full, &slug); err != nil {
			return nil, err
		}
		out[strings.ToLower(full)] = slug
	}
	return out, rows.Err()
}

// VoyageJoinPruneResult reports how many rows PruneVoyageJoins removed, so
// the caller can fold exact counts into the audit log instead of leaving
// its db_deleted_* columns blank.
type VoyageJoinPruneResult struct {
	VoyagePassengersDeleted int64
	VoyageMediaDeleted      int64
	PeopleDeleted           int64
	MediaDeleted            int64
}

// PruneVoyageJoins deletes voyage_passengers/voyage_media rows for
// voyageSlug whose person_slug/media_slug is no longer in the bundle's
// current set, and optionally prunes now-unreferenced master rows when
// pruneMasters is true (guarded by the same NOT EXISTS check used for
// presidents).
func (s *Store) PruneVoyageJoins(ctx context.Context, voyageSlug string, currentPersonSlugs, currentMediaSlugs []string, pruneMasters bool) (VoyageJoinPruneResult, error) {
	var result VoyageJoinPruneResult

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer tx.Rollback(ctx)
	if err := s.setSearchPath(ctx, tx); err != nil {
		return result, err
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM voyage_passengers
		WHERE voyage_slug = $1 AND person_slug <> ALL($2)
	`, voyageSlug, currentPersonSlugs)
	if err != nil {
		return result, fmt.Errorf("prune voyage_passengers for %s: %w", voyageSlug, err)
	}
	result.VoyagePassengersDeleted = tag.RowsAffected()

	tag, err = tx.Exec(ctx, `
		DELETE FROM voyage_media
		WHERE voyage_slug = $1 AND media_slug <> ALL($2)
	`, voyageSlug, currentMediaSlugs)
	if err != nil {
		return result, fmt.Errorf("prune voyage_media for %s: %w", voyageSlug, err)
	}
	result.VoyageMediaDeleted = tag.RowsAffected()

	if pruneMasters {
		tag, err = tx.Exec(ctx, `
			DELETE FROM people p
			WHERE NOT EXISTS (SELECT 1 FROM voyage_passengers vp WHERE vp.person_slug = p.person_slug)
		`)
		if err != nil {
			return result, fmt.Errorf("prune unreferenced people: %w", err)
		}
		result.PeopleDeleted = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `
			DELETE FROM media m
			WHERE NOT EXISTS (SELECT 1 FROM voyage_media vm WHERE vm.media_slug = m.media_slug)
		`)
		if err != nil {
			return result, fmt.Errorf("prune unreferenced media: %w", err)
		}
		result.MediaDeleted = tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return result, err
	}
	return result, nil
}

// PruneGlobalVoyages deletes every voyage (and, via ON DELETE CASCADE on
// the join tables, its join rows) whose voyage_slug is not in
// keepSlugs. Object-store media is never touched by this prune; only the
// database and, separately, the spreadsheet are kept in sync with the
// document's voyage set.
func (s *Store) PruneGlobalVoyages(ctx context.Context, keepSlugs []string) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)
	if err := s.setSearchPath(ctx, tx); err != nil {
		return 0, err
	}

	tag, err := tx.Exec(ctx, `DELETE FROM voyages WHERE voyage_slug <> ALL($1)`, keepSlugs)
	if err != nil {
		return 0, fmt.Errorf("prune global voyages: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
