// Package reconcile prunes rows that the current document no longer
// declares — per-voyage join rows, and optionally whole voyages — from
// both the database and the spreadsheet. It never touches the object
// store: an orphaned media object is a cheap, recoverable byproduct of a
// renamed slug or a dropped reference, while deleting from S3 on every
// run would turn a parsing mistake into data loss.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sequoia-archive/voyage-ingest/internal/sheets"
	"github.com/sequoia-archive/voyage-ingest/internal/store"
)

// VoyageResult reports what a per-voyage reconcile removed.
type VoyageResult struct {
	SheetVoyagePassengersDeleted int
	SheetVoyageMediaDeleted      int
	DBVoyagePassengersDeleted    int64
	DBVoyageMediaDeleted         int64
	DBPeopleDeleted              int64
	DBMediaDeleted               int64
	PruneMasters                 bool
}

// GlobalResult reports what a whole-document reconcile removed.
type GlobalResult struct {
	DBVoyagesDeleted             int64
	SheetVoyagesDeleted          int
	SheetVoyagePassengersDeleted int
	SheetVoyageMediaDeleted      int
}

// Reconciler prunes stale rows from the database and the spreadsheet in
// lockstep, keeping both in sync with the document's current contents.
type Reconciler struct {
	store  *store.Store
	sheet  *sheets.Writer
	logger zerolog.Logger
}

// New builds a Reconciler. sheet may be nil to skip the spreadsheet side
// entirely (e.g. a validate-only run).
func New(st *store.Store, sheet *sheets.Writer, logger zerolog.Logger) *Reconciler {
	return &Reconciler{store: st, sheet: sheet, logger: logger.With().Str("component", "reconciler").Logger()}
}

// Voyage prunes voyage_passengers/voyage_media rows (DB and sheet) for
// voyageSlug down to exactly currentPersonSlugs/currentMediaSlugs, and,
// when pruneMasters is true, also deletes any people/media master rows
// left with no remaining voyage reference anywhere in the document.
// pruneMasters is an operator-controlled option precisely because it is
// irreversible outside this one run's document: a master row dropped
// from every voyage's passenger/media list is removed from the registry
// entirely, not just unlinked.
func (r *Reconciler) Voyage(ctx context.Context, voyageSlug string, currentPersonSlugs, currentMediaSlugs []string, pruneMasters bool) (VoyageResult, error) {
	result := VoyageResult{PruneMasters: pruneMasters}

	dbPruned, err := r.store.PruneVoyageJoins(ctx, voyageSlug, currentPersonSlugs, currentMediaSlugs, pruneMasters)
	if err != nil {
		return result, fmt.Errorf("prune db joins for %s: %w", voyageSlug, err)
	}
	result.DBVoyagePassengersDeleted = dbPruned.VoyagePassengersDeleted
	result.DBVoyageMediaDeleted = dbPruned.VoyageMediaDeleted
	result.DBPeopleDeleted = dbPruned.PeopleDeleted
	result.DBMediaDeleted = dbPruned.MediaDeleted

	if r.sheet == nil {
		return result, nil
	}

	stale, err := r.staleSecondColumn(ctx, sheets.TabVoyagePassengers, voyageSlug, currentPersonSlugs)
	if err != nil {
		return result, fmt.Errorf("find stale voyage_passengers rows for %s: %w", voyageSlug, err)
	}
	n, err := r.sheet.DeleteRowsByKeys(ctx, sheets.TabVoyagePassengers, []string{"voyage_slug", "person_slug"}, stale)
	if err != nil {
		return result, fmt.Errorf("delete stale voyage_passengers rows for %s: %w", voyageSlug, err)
	}
	result.SheetVoyagePassengersDeleted = n

	stale, err = r.staleSecondColumn(ctx, sheets.TabVoyageMedia, voyageSlug, currentMediaSlugs)
	if err != nil {
		return result, fmt.Errorf("find stale voyage_media rows for %s: %w", voyageSlug, err)
	}
	n, err = r.sheet.DeleteRowsByKeys(ctx, sheets.TabVoyageMedia, []string{"voyage_slug", "media_slug"}, stale)
	if err != nil {
		return result, fmt.Errorf("delete stale voyage_media rows for %s: %w", voyageSlug, err)
	}
	result.SheetVoyageMediaDeleted = n

	return result, nil
}

// Global deletes every voyage (database) and every voyage row (sheet,
// across the voyages tab and the per-voyage join tabs) whose
// voyage_slug is not in keepSlugs. It runs once per document, before the
// per-voyage pass, so a voyage removed from the document entirely is
// fully retired rather than left as an orphaned shell.
func (r *Reconciler) Global(ctx context.Context, keepSlugs []string) (GlobalResult, error) {
	var result GlobalResult

	deleted, err := r.store.PruneGlobalVoyages(ctx, keepSlugs)
	if err != nil {
		return result, fmt.Errorf("prune global voyages in db: %w", err)
	}
	result.DBVoyagesDeleted = deleted

	if r.sheet == nil {
		return result, nil
	}

	keep := toSet(keepSlugs)

	allVoyageSlugs, err := r.sheet.AllKeys(ctx, sheets.TabVoyages, []string{"voyage_slug"})
	if err != nil {
		return result, fmt.Errorf("list voyages rows: %w", err)
	}
	var staleVoyages []string
	for _, slug := range allVoyageSlugs {
		if !keep[slug] {
			staleVoyages = append(staleVoyages, slug)
		}
	}
	n, err := r.sheet.DeleteRowsByKeys(ctx, sheets.TabVoyages, []string{"voyage_slug"}, staleVoyages)
	if err != nil {
		return result, fmt.Errorf("delete stale voyages rows: %w", err)
	}
	result.SheetVoyagesDeleted = n

	joinTabs := map[string][]string{
		sheets.TabVoyagePassengers: {"voyage_slug", "person_slug"},
		sheets.TabVoyageMedia:      {"voyage_slug", "media_slug"},
		sheets.TabVoyagePresidents: {"voyage_slug", "president_slug"},
	}
	for tab, keyCols := range joinTabs {
		keys, err := r.sheet.AllKeys(ctx, tab, keyCols)
		if err != nil {
			return result, fmt.Errorf("list %s rows: %w", tab, err)
		}
		var stale []string
		for _, key := range keys {
			voyageSlug := strings.SplitN(key, "|", 2)[0]
			if !keep[voyageSlug] {
				stale = append(stale, key)
			}
		}
		n, err := r.sheet.DeleteRowsByKeys(ctx, tab, keyCols, stale)
		if err != nil {
			return result, fmt.Errorf("delete stale %s rows: %w", tab, err)
		}
		switch tab {
		case sheets.TabVoyagePassengers:
			result.SheetVoyagePassengersDeleted = n
		case sheets.TabVoyageMedia:
			result.SheetVoyageMediaDeleted = n
		}
	}

	return result, nil
}

// staleSecondColumn returns the composite keys of every row in tab whose
// voyage_slug is voyageSlug but whose second key-column value is not in
// keep, by splitting each row's already-joined key rather than
// re-reading columns.
func (r *Reconciler) staleSecondColumn(ctx context.Context, tab, voyageSlug string, keep []string) ([]string, error) {
	keepSet := toSet(keep)
	keys, err := r.sheet.AllKeys(ctx, tab, secondKeyColFor(tab))
	if err != nil {
		return nil, err
	}
	var stale []string
	for _, key := range keys {
		parts := strings.SplitN(key, "|", 2)
		if len(parts) != 2 {
			continue
		}
		if parts[0] == voyageSlug && !keepSet[parts[1]] {
			stale = append(stale, key)
		}
	}
	return stale, nil
}

func secondKeyColFor(tab string) []string {
	switch tab {
	case sheets.TabVoyageMedia:
		return []string{"voyage_slug", "media_slug"}
	default:
		return []string{"voyage_slug", "person_slug"}
	}
}

func toSet(vals []string) map[string]bool {
	set := make(map[string]bool, len(vals))
	for _, v := range vals {
		set[v] = true
	}
	return set
}
