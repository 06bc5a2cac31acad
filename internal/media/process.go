// Package media fetches media originals from Google Drive or Dropbox,
// writes them (and, for images, their derivatives) to the object store
// under their canonical keys, and handles the move-on-rename case where a
// previously-ingested link's canonical key has shifted.
package media

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/drive/v3"

	"github.com/sequoia-archive/voyage-ingest/internal/model"
	"github.com/sequoia-archive/voyage-ingest/internal/objectstore"
	"github.com/sequoia-archive/voyage-ingest/internal/rpc"
	"github.com/sequoia-archive/voyage-ingest/internal/slug"
)

// ExistingLocation describes a media item's previously-recorded storage
// location, read from the database, used to detect and execute a
// move-on-rename instead of a redundant re-download.
type ExistingLocation struct {
	S3URL      string
	MediaType  string
	Credit     string
	VoyageSlug string
	MediaSlug  string
}

// Job is one media item to process, plus the voyage/president context its
// canonical key is derived from.
type Job struct {
	Media         model.Media
	VoyageSlug    string
	PresidentSlug string
	Existing      *ExistingLocation
}

// Result is the outcome of processing one Job.
type Result struct {
	MediaSlug string
	Location  model.MediaLocation
	Warning   string
	// Moved is true when this result came from the move-on-rename path
	// (copy+delete of an already-ingested object) rather than a fresh
	// download, so the caller can keep media_uploaded/thumbs_uploaded
	// counting only real uploads.
	Moved bool
	// S3Archived counts objects copied to their new key and then deleted
	// from their old one during a move. There is no trash-bucket concept
	// in this system, so every move-on-rename delete is an archive, never
	// a bare delete; S3Deleted stays 0 for every result.
	S3Archived int
}

// Config tunes the fetcher's worker pool sizes.
type Config struct {
	DownloadWorkers  int
	TranscodeWorkers int
	DropboxToken     string
	DropboxTimeout   time.Duration
}

// Fetcher downloads media originals and writes them to the object store.
type Fetcher struct {
	cfg     Config
	store   *objectstore.Store
	harness *rpc.Harness
	logger  zerolog.Logger

	drive   *driveDownloader
	dropbox *dropboxDownloader

	downloadSem  chan struct{}
	transcodeSem chan struct{}
}

// New builds a Fetcher. driveSvc may be nil if no job in the run
// references a Drive link.
func New(cfg Config, driveSvc *drive.Service, store *objectstore.Store, harness *rpc.Harness, logger zerolog.Logger) *Fetcher {
	if cfg.DownloadWorkers <= 0 {
		cfg.DownloadWorkers = 4
	}
	transcodeWorkers := cfg.TranscodeWorkers
	if transcodeWorkers <= 0 {
		transcodeWorkers = cfg.DownloadWorkers
	}

	f := &Fetcher{
		cfg:          cfg,
		store:        store,
		harness:      harness,
		logger:       logger.With().Str("component", "media_fetcher").Logger(),
		dropbox:      newDropboxDownloader(cfg.DropboxToken, cfg.DropboxTimeout),
		downloadSem:  make(chan struct{}, cfg.DownloadWorkers),
		transcodeSem: make(chan struct{}, transcodeWorkers),
	}
	if driveSvc != nil {
		f.drive = newDriveDownloader(driveSvc)
	}
	return f
}

// ProcessAll fetches and stores every job concurrently, bounded by the
// fetcher's download worker pool, with image transcoding bounded
// separately by its own CPU-bound pool so a burst of large video
// downloads doesn't starve image processing or vice versa.
func (f *Fetcher) ProcessAll(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))
	var wg sync.WaitGroup

	for i, job := range jobs {
		i, job := i, job
		wg.Add(1)
		f.downloadSem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-f.downloadSem }()
			results[i] = f.processOne(ctx, job)
		}()
	}
	wg.Wait()
	return results
}

func (f *Fetcher) processOne(ctx context.Context, job Job) Result {
	mslug := strings.TrimSpace(job.Media.MediaSlug)
	link := strings.TrimSpace(job.Media.GoogleDriveLink)
	if mslug == "" || link == "" {
		return Result{MediaSlug: mslug, Warning: fmt.Sprintf("media %s missing slug or link; skipping", mslug)}
	}

	if job.Existing != nil && job.Existing.S3URL != "" {
		if result, moved, err := f.tryMove(ctx, job); moved {
			if err != nil {
				return Result{MediaSlug: mslug, Warning: fmt.Sprintf("%s: failed to move existing object for same link: %v", mslug, err)}
			}
			return result
		}
	}

	kind, fileID := ClassifyLink(link)
	var dl downloaded
	var err error
	switch kind {
	case SourceDrive:
		if fileID == "" {
			return Result{MediaSlug: mslug, Warning: fmt.Sprintf("%s: invalid Google Drive link (no /file/d/<ID>/)", mslug)}
		}
		if f.drive == nil {
			return Result{MediaSlug: mslug, Warning: fmt.Sprintf("%s: no Drive client configured", mslug)}
		}
		var raw interface{}
		raw, err = f.harness.Do(ctx, "drive.download:"+mslug, func(ctx context.Context) (interface{}, error) {
			return f.drive.download(ctx, fileID)
		})
		if err == nil {
			dl = raw.(downloaded)
		}
	case SourceDropbox:
		var raw interface{}
		raw, err = f.harness.Do(ctx, "dropbox.download:"+mslug, func(ctx context.Context) (interface{}, error) {
			return f.dropbox.download(ctx, link)
		})
		if err == nil {
			dl = raw.(downloaded)
		}
	default:
		return Result{MediaSlug: mslug, Warning: fmt.Sprintf("%s: unsupported media link (not Drive/Dropbox)", mslug)}
	}
	if err != nil {
		return Result{MediaSlug: mslug, Warning: fmt.Sprintf("%s: failed to download: %v", mslug, err)}
	}

	mtype := strings.ToLower(strings.TrimSpace(job.Media.MediaType))
	if mtype == "" {
		mtype = DetectMediaType(dl.mimeType, job.Media.Title)
	}
	extHint := job.Media.Title
	if dl.extHint != "" {
		extHint = "." + dl.extHint
	}
	ext := GuessExtension(dl.mimeType, extHint)

	origKey := objectstore.OriginalKey(job.PresidentSlug, slug.NormalizeSource(job.Media.Credit), job.VoyageSlug, ext, mslug)
	privateURL, err := f.store.PutPrivate(ctx, origKey, dl.data, dl.mimeType)
	if err != nil {
		return Result{MediaSlug: mslug, Warning: fmt.Sprintf("%s: failed to upload original: %v", mslug, err)}
	}

	loc := model.MediaLocation{PrivateURL: privateURL}
	if mtype == "image" {
		f.transcodeSem <- struct{}{}
		prevURL, thumbURL, warn := f.transcodeAndStore(ctx, job, dl.data, ext, mslug)
		<-f.transcodeSem
		if warn != "" {
			return Result{MediaSlug: mslug, Location: loc, Warning: warn}
		}
		loc.PublicURL = prevURL
		loc.ThumbnailURL = thumbURL
	}

	return Result{MediaSlug: mslug, Location: loc}
}

func (f *Fetcher) transcodeAndStore(ctx context.Context, job Job, data []byte, ext, mslug string) (string, string, string) {
	derived, err := makeImageDerivatives(data)
	if err != nil {
		return "", "", fmt.Sprintf("%s: failed to create derivatives: %v", mslug, err)
	}
	source := slug.NormalizeSource(job.Media.Credit)
	prevKey := objectstore.DerivativeKey(job.PresidentSlug, source, job.VoyageSlug, ext, mslug, "preview")
	thumbKey := objectstore.DerivativeKey(job.PresidentSlug, source, job.VoyageSlug, ext, mslug, "thumb")

	thumbURL, err := f.store.PutPublic(ctx, thumbKey, derived.thumb, "image/jpeg")
	if err != nil {
		return "", "", fmt.Sprintf("%s: failed to upload thumb: %v", mslug, err)
	}
	prevURL, err := f.store.PutPublic(ctx, prevKey, derived.preview, "image/jpeg")
	if err != nil {
		return "", "", fmt.Sprintf("%s: failed to upload preview: %v", mslug, err)
	}
	return prevURL, thumbURL, ""
}

// tryMove attempts the move-on-rename path: the same source link already
// has a stored object, but this voyage's canonical key differs (because
// the voyage or media slug changed). Returns moved=false if there is
// nothing to move (no existing record, or the key is unchanged) so the
// caller falls through to a normal download.
func (f *Fetcher) tryMove(ctx context.Context, job Job) (Result, bool, error) {
	mslug := job.Media.MediaSlug
	existing := job.Existing
	bucket, oldKey, ok := objectstore.ParsePrivateURL(existing.S3URL)
	if !ok {
		return Result{}, false, nil
	}

	ext := extensionOf(oldKey)
	source := slug.NormalizeSource(firstNonEmptyLocal(job.Media.Credit, existing.Credit))

	newKey := objectstore.OriginalKey(job.PresidentSlug, source, job.VoyageSlug, ext, mslug)
	if newKey == oldKey {
		return Result{}, false, nil
	}

	if err := f.store.Copy(ctx, bucket, oldKey, f.store.PrivateBucket(), newKey, ""); err != nil {
		return Result{}, true, err
	}
	if err := f.store.Delete(ctx, bucket, oldKey); err != nil {
		return Result{}, true, err
	}
	archived := 1

	loc := model.MediaLocation{PrivateURL: objectstore.PrivateURL(f.store.PrivateBucket(), newKey)}

	oldPrevKey := objectstore.DerivativeKey(job.PresidentSlug, source, existing.VoyageSlug, ext, existing.MediaSlug, "preview")
	oldThumbKey := objectstore.DerivativeKey(job.PresidentSlug, source, existing.VoyageSlug, ext, existing.MediaSlug, "thumb")
	newPrevKey := objectstore.DerivativeKey(job.PresidentSlug, source, job.VoyageSlug, ext, mslug, "preview")
	newThumbKey := objectstore.DerivativeKey(job.PresidentSlug, source, job.VoyageSlug, ext, mslug, "thumb")

	if err := f.store.Copy(ctx, f.store.PublicBucket(), oldPrevKey, f.store.PublicBucket(), newPrevKey, "image/jpeg"); err == nil {
		_ = f.store.Delete(ctx, f.store.PublicBucket(), oldPrevKey)
		loc.PublicURL = objectstore.PublicURL(f.store.PublicBucket(), newPrevKey)
		archived++
	}
	if err := f.store.Copy(ctx, f.store.PublicBucket(), oldThumbKey, f.store.PublicBucket(), newThumbKey, "image/jpeg"); err == nil {
		_ = f.store.Delete(ctx, f.store.PublicBucket(), oldThumbKey)
		loc.ThumbnailURL = objectstore.PublicURL(f.store.PublicBucket(), newThumbKey)
		archived++
	}

	f.logger.Info().Str("media_slug", mslug).Str("key", newKey).Msg("renamed media for unchanged source link")
	return Result{MediaSlug: mslug, Location: loc, Moved: true, S3Archived: archived}, true, nil
}

func extensionOf(key string) string {
	i := strings.LastIndex(key, ".")
	if i < 0 || i == len(key)-1 {
		return "bin"
	}
	return key[i+1:]
}

func firstNonEmptyLocal(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
