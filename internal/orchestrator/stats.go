package orchestrator

import "sync/atomic"

// Stats accumulates counters across one run. Every field is an
// atomic.Int64 so per-voyage processing (each voyage's media fetch runs
// its own internal worker pool) can update them without a shared mutex.
type Stats struct {
	VoyagesProcessed atomic.Int64
	VoyagesFailed    atomic.Int64

	MediaDeclared  atomic.Int64
	MediaUploaded  atomic.Int64
	ThumbsUploaded atomic.Int64

	ErrorsCount   atomic.Int64
	WarningsCount atomic.Int64

	// S3Deleted counts objects removed from the object store with no
	// prior copy (there is no trash bucket in this system, so this stays
	// 0; see DESIGN.md). S3Archived counts objects copied to their new
	// key and then deleted from their old one by the move-on-rename path.
	S3Deleted   atomic.Int64
	S3Archived  atomic.Int64

	DBVoyagesPruned           atomic.Int64
	DBVoyagePassengersPruned  atomic.Int64
	DBVoyageMediaPruned       atomic.Int64
	DBPeoplePruned            atomic.Int64
	DBMediaPruned             atomic.Int64

	SheetVoyagesPruned          atomic.Int64
	SheetVoyagePassengersPruned atomic.Int64
	SheetVoyageMediaPruned      atomic.Int64
}

// Snapshot is a point-in-time, non-atomic copy of Stats for logging and
// the final [GLOBAL] summary row.
type Snapshot struct {
	VoyagesProcessed int64
	VoyagesFailed    int64
	MediaDeclared    int64
	MediaUploaded    int64
	ThumbsUploaded   int64
	ErrorsCount      int64
	WarningsCount    int64

	S3Deleted  int64
	S3Archived int64

	DBVoyagesPruned          int64
	DBVoyagePassengersPruned int64
	DBVoyageMediaPruned      int64
	DBPeoplePruned           int64
	DBMediaPruned            int64

	SheetVoyagesPruned          int64
	SheetVoyagePassengersPruned int64
	SheetVoyageMediaPruned      int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		VoyagesProcessed: s.VoyagesProcessed.Load(),
		VoyagesFailed:    s.VoyagesFailed.Load(),
		MediaDeclared:    s.MediaDeclared.Load(),
		MediaUploaded:    s.MediaUploaded.Load(),
		ThumbsUploaded:   s.ThumbsUploaded.Load(),
		ErrorsCount:      s.ErrorsCount.Load(),
		WarningsCount:    s.WarningsCount.Load(),

		S3Deleted:  s.S3Deleted.Load(),
		S3Archived: s.S3Archived.Load(),

		DBVoyagesPruned:          s.DBVoyagesPruned.Load(),
		DBVoyagePassengersPruned: s.DBVoyagePassengersPruned.Load(),
		DBVoyageMediaPruned:      s.DBVoyageMediaPruned.Load(),
		DBPeoplePruned:           s.DBPeoplePruned.Load(),
		DBMediaPruned:            s.DBMediaPruned.Load(),

		SheetVoyagesPruned:          s.SheetVoyagesPruned.Load(),
		SheetVoyagePassengersPruned: s.SheetVoyagePassengersPruned.Load(),
		SheetVoyageMediaPruned:      s.SheetVoyageMediaPruned.Load(),
	}
}
