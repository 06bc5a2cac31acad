// Package orchestrator runs one ingest pass end to end: parse the
// document, reconcile voyages the document no longer mentions, then for
// every remaining voyage validate, fetch media, and write the database
// and spreadsheet, logging one audit row per voyage plus a final summary
// row. A Session holds no package-level state — every dependency is
// threaded through its constructor. The dependencies are concrete client
// types, not interfaces.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sequoia-archive/voyage-ingest/internal/docparser"
	"github.com/sequoia-archive/voyage-ingest/internal/media"
	"github.com/sequoia-archive/voyage-ingest/internal/model"
	"github.com/sequoia-archive/voyage-ingest/internal/reconcile"
	"github.com/sequoia-archive/voyage-ingest/internal/sheets"
	"github.com/sequoia-archive/voyage-ingest/internal/store"
	"github.com/sequoia-archive/voyage-ingest/internal/validate"
)

// Options controls how a run behaves, independent of which clients it's
// wired to.
type Options struct {
	// DocID identifies the source document in the audit log only; the
	// document body itself is passed to Run.
	DocID string
	// DryRun parses and validates but performs no media fetch, no
	// database write, and no spreadsheet write other than the ingest_log
	// audit rows (which record dry_run=TRUE).
	DryRun bool
	// PruneMasters additionally deletes people/media master rows left
	// unreferenced by any voyage after per-voyage join pruning.
	PruneMasters bool
	// SyncMode is carried into the audit log verbatim (e.g. "full",
	// "incremental"); the orchestrator does not interpret it.
	SyncMode string
}

// Session threads one run's clients and accumulates its Stats. Build one
// per invocation; it is not meant to be reused across documents.
type Session struct {
	opts Options

	store      *store.Store
	sheet      *sheets.Writer // nil disables all spreadsheet writes
	fetcher    *media.Fetcher
	reconciler *reconcile.Reconciler

	logger zerolog.Logger
	Stats  *Stats
}

// New builds a Session. sheet may be nil to run database-only (the
// reconciler then also skips its spreadsheet side automatically).
func New(opts Options, st *store.Store, sheet *sheets.Writer, fetcher *media.Fetcher, reconciler *reconcile.Reconciler, logger zerolog.Logger) *Session {
	return &Session{
		opts:       opts,
		store:      st,
		sheet:      sheet,
		fetcher:    fetcher,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		Stats:      &Stats{},
	}
}

// Run executes one full ingest pass over source and returns the
// accumulated stats for the run. It does not return an error for
// per-voyage failures — those are recorded in Stats and the audit log —
// only for failures that abort the whole run (building the president
// registry, resetting the presidents table or tab, the global reconcile
// pass, or the final log write).
func (s *Session) Run(ctx context.Context, source string) (Snapshot, error) {
	started := time.Now()
	result := docparser.Parse(source)
	for _, w := range result.Warnings {
		s.logger.Warn().Str("stage", "parse").Msg(w)
		s.Stats.WarningsCount.Add(1)
	}

	reg, err := s.buildRegistry(ctx, result.Presidents)
	if err != nil {
		return s.Stats.Snapshot(), fmt.Errorf("build president registry: %w", err)
	}

	if !s.opts.DryRun {
		if err := s.store.ResetPresidentsSafe(ctx, result.Presidents); err != nil {
			return s.Stats.Snapshot(), fmt.Errorf("reset presidents in db: %w", err)
		}
		if s.sheet != nil {
			rows := make([]map[string]string, len(result.Presidents))
			for i, p := range result.Presidents {
				rows[i] = presidentFields(p)
			}
			if err := s.sheet.ResetPresidentsTab(ctx, rows); err != nil {
				return s.Stats.Snapshot(), fmt.Errorf("reset presidents tab: %w", err)
			}
		}
	}

	keepSlugs := make([]string, 0, len(result.Bundles))
	for _, b := range result.Bundles {
		keepSlugs = append(keepSlugs, b.Voyage.VoyageSlug)
	}

	if !s.opts.DryRun {
		global, err := s.reconciler.Global(ctx, keepSlugs)
		if err != nil {
			return s.Stats.Snapshot(), fmt.Errorf("global reconcile: %w", err)
		}
		s.Stats.DBVoyagesPruned.Add(global.DBVoyagesDeleted)
		s.Stats.SheetVoyagesPruned.Add(int64(global.SheetVoyagesDeleted))
		s.Stats.SheetVoyagePassengersPruned.Add(int64(global.SheetVoyagePassengersDeleted))
		s.Stats.SheetVoyageMediaPruned.Add(int64(global.SheetVoyageMediaDeleted))
	}

	for _, bundle := range result.Bundles {
		s.processVoyage(ctx, bundle, reg)
	}

	snap := s.Stats.Snapshot()
	if s.sheet != nil {
		fields := map[string]string{
			"timestamp_iso":   sheets.TimestampCell(started),
			"doc_id":          s.opts.DocID,
			"voyage_slug":     "[GLOBAL]",
			"status":          globalStatus(snap),
			"errors_count":    sheets.IntCell(int(snap.ErrorsCount)),
			"warnings_count":  sheets.IntCell(int(snap.WarningsCount)),
			"media_declared":  sheets.IntCell(int(snap.MediaDeclared)),
			"media_uploaded":  sheets.IntCell(int(snap.MediaUploaded)),
			"thumbs_uploaded": sheets.IntCell(int(snap.ThumbsUploaded)),
			"sync_mode":         s.opts.SyncMode,
			"dry_run":           sheets.BoolCell(s.opts.DryRun),
			"s3_deleted":        sheets.IntCell(int(snap.S3Deleted)),
			"s3_archived":       sheets.IntCell(int(snap.S3Archived)),
			"sheets_deleted_vp": sheets.IntCell(int(snap.SheetVoyagePassengersPruned)),
			"sheets_deleted_vm": sheets.IntCell(int(snap.SheetVoyageMediaPruned)),
			"db_deleted_vm":     sheets.IntCell(int(snap.DBVoyageMediaPruned)),
			"db_deleted_vp":     sheets.IntCell(int(snap.DBVoyagePassengersPruned)),
			"db_deleted_media":  sheets.IntCell(int(snap.DBMediaPruned)),
			"db_deleted_people": sheets.IntCell(int(snap.DBPeoplePruned)),
			"notes":             fmt.Sprintf("voyages processed=%d failed=%d db_voyages_pruned=%d sheet_voyages_pruned=%d", snap.VoyagesProcessed, snap.VoyagesFailed, snap.DBVoyagesPruned, snap.SheetVoyagesPruned),
		}
		if err := s.sheet.AppendLogRow(ctx, fields); err != nil {
			return snap, fmt.Errorf("append global log row: %w", err)
		}
	}

	return snap, nil
}

func globalStatus(snap Snapshot) string {
	if snap.VoyagesFailed > 0 {
		return "ERROR"
	}
	if snap.WarningsCount > 0 {
		return "WITH_WARNINGS"
	}
	return "OK"
}

// buildRegistry merges the president registry already on record with the
// presidents the current document declares, so a brand-new president
// introduced in this run still validates against its own document.
func (s *Session) buildRegistry(ctx context.Context, docPresidents []model.President) (validate.PresidentRegistry, error) {
	slugs, err := s.store.PresidentSlugs(ctx)
	if err != nil {
		return validate.PresidentRegistry{}, err
	}
	fullToSlug, err := s.store.PresidentFullNameToSlug(ctx)
	if err != nil {
		return validate.PresidentRegistry{}, err
	}
	for _, p := range docPresidents {
		slugs[p.PresidentSlug] = true
		fullToSlug[strings.ToLower(p.FullName)] = p.PresidentSlug
	}
	return validate.PresidentRegistry{KnownSlugs: slugs, FullNameToSlug: fullToSlug}, nil
}

// processVoyage runs the per-voyage pipeline: validate, fetch media,
// write the sheet, prune stale joins, write the database, append a log
// row. A voyage with any validation error is skipped entirely — nothing
// is written for it — but still gets a log row recording why.
func (s *Session) processVoyage(ctx context.Context, bundle model.Bundle, reg validate.PresidentRegistry) {
	voyageSlug := bundle.Voyage.VoyageSlug
	logFields := map[string]string{
		"timestamp_iso": sheets.TimestampCell(time.Now()),
		"doc_id":        s.opts.DocID,
		"voyage_slug":   voyageSlug,
		"sync_mode":     s.opts.SyncMode,
		"dry_run":       sheets.BoolCell(s.opts.DryRun),
	}

	issues := validate.ValidateBundle(bundle, reg)
	var errCount, warnCount int
	for _, issue := range issues {
		if issue.Severity == validate.SeverityError {
			errCount++
			s.logger.Error().Str("voyage_slug", voyageSlug).Msg(issue.String())
		} else {
			warnCount++
			s.logger.Warn().Str("voyage_slug", voyageSlug).Msg(issue.String())
		}
	}
	s.Stats.ErrorsCount.Add(int64(errCount))
	s.Stats.WarningsCount.Add(int64(warnCount))
	logFields["errors_count"] = sheets.IntCell(errCount)
	logFields["warnings_count"] = sheets.IntCell(warnCount)
	logFields["media_declared"] = sheets.IntCell(len(bundle.Media))
	s.Stats.MediaDeclared.Add(int64(len(bundle.Media)))

	if validate.HasErrors(issues) {
		s.Stats.VoyagesFailed.Add(1)
		logFields["status"] = "ERROR"
		logFields["media_uploaded"] = "0"
		logFields["thumbs_uploaded"] = "0"
		s.appendLog(ctx, logFields)
		return
	}

	mediaLocations := map[string]model.MediaLocation{}
	var mediaUploaded, thumbsUploaded, s3Deleted, s3Archived int
	var fetchWarnings []string

	if !s.opts.DryRun && len(bundle.Media) > 0 {
		jobs := make([]media.Job, len(bundle.Media))
		for i, m := range bundle.Media {
			job := media.Job{Media: m, VoyageSlug: voyageSlug, PresidentSlug: bundle.Voyage.PresidentSlug}
			if existing, err := s.store.ExistingMediaLocation(ctx, m.GoogleDriveLink); err == nil {
				job.Existing = existing
			} else {
				s.logger.Warn().Err(err).Str("voyage_slug", voyageSlug).Msg("failed to look up existing media location")
			}
			jobs[i] = job
		}
		for _, result := range s.fetcher.ProcessAll(ctx, jobs) {
			if result.Warning != "" {
				fetchWarnings = append(fetchWarnings, result.Warning)
				continue
			}
			mediaLocations[result.MediaSlug] = result.Location
			if result.Moved {
				s3Archived += result.S3Archived
				continue
			}
			if result.Location.PrivateURL != "" {
				mediaUploaded++
			}
			if result.Location.ThumbnailURL != "" {
				thumbsUploaded++
			}
		}
	}
	for _, w := range fetchWarnings {
		s.logger.Warn().Str("voyage_slug", voyageSlug).Msg(w)
	}
	s.Stats.WarningsCount.Add(int64(len(fetchWarnings)))
	s.Stats.MediaUploaded.Add(int64(mediaUploaded))
	s.Stats.ThumbsUploaded.Add(int64(thumbsUploaded))
	s.Stats.S3Deleted.Add(int64(s3Deleted))
	s.Stats.S3Archived.Add(int64(s3Archived))
	logFields["media_uploaded"] = sheets.IntCell(mediaUploaded)
	logFields["thumbs_uploaded"] = sheets.IntCell(thumbsUploaded)
	logFields["s3_deleted"] = sheets.IntCell(s3Deleted)
	logFields["s3_archived"] = sheets.IntCell(s3Archived)
	logFields["warnings_count"] = sheets.IntCell(warnCount + len(fetchWarnings))

	if !s.opts.DryRun {
		if err := s.writeSheetRows(ctx, bundle, mediaLocations); err != nil {
			s.logger.Error().Err(err).Str("voyage_slug", voyageSlug).Msg("failed to write spreadsheet rows")
		}

		personSlugs := make([]string, len(bundle.Passengers))
		for i, p := range bundle.Passengers {
			personSlugs[i] = p.PersonSlug
		}
		mediaSlugs := make([]string, len(bundle.Media))
		for i, m := range bundle.Media {
			mediaSlugs[i] = m.MediaSlug
		}
		joinResult, err := s.reconciler.Voyage(ctx, voyageSlug, personSlugs, mediaSlugs, s.opts.PruneMasters)
		if err != nil {
			s.logger.Error().Err(err).Str("voyage_slug", voyageSlug).Msg("failed to reconcile voyage joins")
		} else {
			s.Stats.SheetVoyagePassengersPruned.Add(int64(joinResult.SheetVoyagePassengersDeleted))
			s.Stats.SheetVoyageMediaPruned.Add(int64(joinResult.SheetVoyageMediaDeleted))
			s.Stats.DBVoyagePassengersPruned.Add(joinResult.DBVoyagePassengersDeleted)
			s.Stats.DBVoyageMediaPruned.Add(joinResult.DBVoyageMediaDeleted)
			s.Stats.DBPeoplePruned.Add(joinResult.DBPeopleDeleted)
			s.Stats.DBMediaPruned.Add(joinResult.DBMediaDeleted)
			logFields["sheets_deleted_vp"] = sheets.IntCell(joinResult.SheetVoyagePassengersDeleted)
			logFields["sheets_deleted_vm"] = sheets.IntCell(joinResult.SheetVoyageMediaDeleted)
			logFields["db_deleted_vp"] = sheets.IntCell(int(joinResult.DBVoyagePassengersDeleted))
			logFields["db_deleted_vm"] = sheets.IntCell(int(joinResult.DBVoyageMediaDeleted))
			logFields["db_deleted_people"] = sheets.IntCell(int(joinResult.DBPeopleDeleted))
			logFields["db_deleted_media"] = sheets.IntCell(int(joinResult.DBMediaDeleted))
		}

		if err := s.store.UpsertVoyageBundle(ctx, bundle, mediaLocations); err != nil {
			s.Stats.VoyagesFailed.Add(1)
			logFields["status"] = "ERROR"
			logFields["notes"] = err.Error()
			s.appendLog(ctx, logFields)
			return
		}
	}

	s.Stats.VoyagesProcessed.Add(1)
	totalWarnings := warnCount + len(fetchWarnings)
	if totalWarnings > 0 {
		logFields["status"] = "WITH_WARNINGS"
	} else {
		logFields["status"] = "OK"
	}
	s.appendLog(ctx, logFields)
}

func (s *Session) writeSheetRows(ctx context.Context, bundle model.Bundle, mediaLocations map[string]model.MediaLocation) error {
	if s.sheet == nil {
		return nil
	}
	voyageSlug := bundle.Voyage.VoyageSlug

	if err := s.sheet.EnsureTab(ctx, sheets.TabVoyages, sheets.VoyagesHeaders); err != nil {
		return err
	}
	if err := s.sheet.UpsertRow(ctx, sheets.TabVoyages, sheets.VoyagesHeaders, []string{"voyage_slug"}, voyageFields(bundle.Voyage)); err != nil {
		return err
	}

	if err := s.sheet.EnsureTab(ctx, sheets.TabPassengers, sheets.PassengersHeaders); err != nil {
		return err
	}
	if err := s.sheet.EnsureTab(ctx, sheets.TabVoyagePassengers, sheets.VoyagePassengersHeaders); err != nil {
		return err
	}
	for _, p := range bundle.Passengers {
		if err := s.sheet.UpsertRow(ctx, sheets.TabPassengers, sheets.PassengersHeaders, []string{"person_slug"}, passengerFields(p)); err != nil {
			return err
		}
		if err := s.sheet.UpsertRow(ctx, sheets.TabVoyagePassengers, sheets.VoyagePassengersHeaders, []string{"voyage_slug", "person_slug"}, voyagePassengerFields(voyageSlug, p)); err != nil {
			return err
		}
	}

	if err := s.sheet.EnsureTab(ctx, sheets.TabMedia, sheets.MediaHeaders); err != nil {
		return err
	}
	if err := s.sheet.EnsureTab(ctx, sheets.TabVoyageMedia, sheets.VoyageMediaHeaders); err != nil {
		return err
	}
	for _, m := range bundle.Media {
		loc := mediaLocations[m.MediaSlug]
		if err := s.sheet.UpsertRow(ctx, sheets.TabMedia, sheets.MediaHeaders, []string{"media_slug"}, mediaFields(m, loc)); err != nil {
			return err
		}
		if err := s.sheet.UpsertRow(ctx, sheets.TabVoyageMedia, sheets.VoyageMediaHeaders, []string{"voyage_slug", "media_slug"}, voyageMediaFields(voyageSlug, m)); err != nil {
			return err
		}
	}

	if bundle.Voyage.PresidentSlug != "" {
		if err := s.sheet.EnsureTab(ctx, sheets.TabVoyagePresidents, sheets.VoyagePresidentsHeaders); err != nil {
			return err
		}
		if err := s.sheet.UpsertRow(ctx, sheets.TabVoyagePresidents, sheets.VoyagePresidentsHeaders, []string{"voyage_slug", "president_slug"}, voyagePresidentFields(voyageSlug, bundle.Voyage.PresidentSlug)); err != nil {
			return err
		}
	}

	return nil
}

func (s *Session) appendLog(ctx context.Context, fields map[string]string) {
	if s.sheet == nil {
		return
	}
	if err := s.sheet.AppendLogRow(ctx, fields); err != nil {
		s.logger.Error().Err(err).Str("voyage_slug", fields["voyage_slug"]).Msg("failed to append log row")
	}
}
