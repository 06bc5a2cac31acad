// Package app builds the ingest engine's clients from configuration and
// exposes the handful of operations the CLI commands drive: a full run,
// a validate-only run, and a standalone reconcile.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/sequoia-archive/voyage-ingest/internal/config"
	"github.com/sequoia-archive/voyage-ingest/internal/docparser"
	"github.com/sequoia-archive/voyage-ingest/internal/logger"
	"github.com/sequoia-archive/voyage-ingest/internal/media"
	"github.com/sequoia-archive/voyage-ingest/internal/objectstore"
	"github.com/sequoia-archive/voyage-ingest/internal/orchestrator"
	"github.com/sequoia-archive/voyage-ingest/internal/reconcile"
	"github.com/sequoia-archive/voyage-ingest/internal/rpc"
	"github.com/sequoia-archive/voyage-ingest/internal/sheets"
	"github.com/sequoia-archive/voyage-ingest/internal/store"
)

// App holds every long-lived client a run needs. Build it once per
// process invocation and Close it on exit.
type App struct {
	cfg    *config.Config
	logger zerolog.Logger

	pool    *pgxpool.Pool
	redis   *redis.Client
	store   *store.Store
	sheet   *sheets.Writer
	fetcher *media.Fetcher
	recon   *reconcile.Reconciler
}

// Build loads configuration and constructs every client. A missing
// Google credentials path or Sheets spreadsheet ID degrades gracefully:
// the Sheets writer is left nil and every spreadsheet operation is
// skipped, so `validate` and database-only runs work without Sheets
// access configured.
func Build(ctx context.Context) (*App, error) {
	cfg := config.Load()
	log := logger.New(cfg)

	pool, err := pgxpool.New(ctx, fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName,
	))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	st := store.New(pool, cfg.DBSchema, log)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("invalid REDIS_URL; continuing without shared read cache")
		} else {
			redisClient = redis.NewClient(opts)
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Warn().Err(err).Msg("redis ping failed; continuing without shared read cache")
				redisClient = nil
			}
		}
	}

	harness := rpc.New(rpc.Config{
		MaxRetries:       cfg.MaxRetries,
		BackoffBase:      durationFromSeconds(cfg.BackoffBase),
		BackoffMax:       durationFromSeconds(cfg.BackoffMax),
		ThrottleInterval: durationFromSeconds(cfg.RateLimitSeconds),
		ThrottleBurst:    1,
	}, log, rpc.NewReadCache(5*time.Minute, redisClient, "voyage-ingest"))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	objStore := objectstore.New(s3.NewFromConfig(awsCfg), cfg.S3PrivateBucket, cfg.S3PublicBucket)

	var driveSvc *drive.Service
	var sheetsSvc *sheets.Service
	if cfg.GoogleCredentialsPath != "" {
		ts, err := googleTokenSource(ctx, cfg.GoogleCredentialsPath, drive.DriveReadonlyScope, sheets.SpreadsheetsScope)
		if err != nil {
			log.Warn().Err(err).Msg("google credentials not usable; Drive/Sheets access disabled")
		} else {
			driveSvc, err = drive.NewService(ctx, option.WithTokenSource(ts))
			if err != nil {
				return nil, fmt.Errorf("build drive client: %w", err)
			}
			sheetsSvc, err = sheets.NewService(ctx, option.WithTokenSource(ts))
			if err != nil {
				return nil, fmt.Errorf("build sheets client: %w", err)
			}
		}
	} else {
		log.Warn().Msg("GOOGLE_APPLICATION_CREDENTIALS not set; Drive/Sheets access disabled")
	}

	fetcher := media.New(media.Config{
		DownloadWorkers:  cfg.MediaWorkers,
		TranscodeWorkers: cfg.MediaTranscodeWorkers,
		DropboxToken:     cfg.DropboxAccessToken,
		DropboxTimeout:   cfg.DropboxTimeout,
	}, driveSvc, objStore, harness, log)

	var sheetWriter *sheets.Writer
	if sheetsSvc != nil && cfg.SpreadsheetID != "" {
		sheetWriter = sheets.New(sheetsSvc, cfg.SpreadsheetID, harness, log)
	} else {
		log.Warn().Msg("SPREADSHEET_ID not set or Sheets client unavailable; spreadsheet writes disabled")
	}

	recon := reconcile.New(st, sheetWriter, log)

	return &App{
		cfg:     cfg,
		logger:  log,
		pool:    pool,
		redis:   redisClient,
		store:   st,
		sheet:   sheetWriter,
		fetcher: fetcher,
		recon:   recon,
	}, nil
}

// Close releases every client's underlying connections.
func (a *App) Close() {
	a.pool.Close()
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// Run parses docPath and writes the result, unless the config's DryRun is
// set or syncMode is "validate" (as the validate subcommand passes), in
// which case the session runs as a dry run.
func (a *App) Run(ctx context.Context, docPath string, pruneMasters bool, syncMode string) (orchestrator.Snapshot, error) {
	source, err := os.ReadFile(docPath)
	if err != nil {
		return orchestrator.Snapshot{}, fmt.Errorf("read document: %w", err)
	}

	sess := orchestrator.New(orchestrator.Options{
		DocID:        a.cfg.DocID,
		DryRun:       a.cfg.DryRun || syncMode == "validate",
		PruneMasters: pruneMasters,
		SyncMode:     syncMode,
	}, a.store, a.sheet, a.fetcher, a.recon, a.logger)

	return sess.Run(ctx, string(source))
}

// Reconcile re-parses docPath to determine the current voyage set, then
// prunes any database or spreadsheet row for a voyage outside it,
// without re-validating or re-fetching media.
func (a *App) Reconcile(ctx context.Context, docPath string, pruneMasters bool) (reconcile.GlobalResult, error) {
	source, err := os.ReadFile(docPath)
	if err != nil {
		return reconcile.GlobalResult{}, fmt.Errorf("read document: %w", err)
	}

	result := docparser.Parse(string(source))
	keepSlugs := make([]string, 0, len(result.Bundles))
	for _, b := range result.Bundles {
		keepSlugs = append(keepSlugs, b.Voyage.VoyageSlug)
	}

	global, err := a.recon.Global(ctx, keepSlugs)
	if err != nil {
		return global, err
	}

	for _, b := range result.Bundles {
		personSlugs := make([]string, len(b.Passengers))
		for i, p := range b.Passengers {
			personSlugs[i] = p.PersonSlug
		}
		mediaSlugs := make([]string, len(b.Media))
		for i, m := range b.Media {
			mediaSlugs[i] = m.MediaSlug
		}
		if _, err := a.recon.Voyage(ctx, b.Voyage.VoyageSlug, personSlugs, mediaSlugs, pruneMasters); err != nil {
			return global, fmt.Errorf("reconcile voyage %s: %w", b.Voyage.VoyageSlug, err)
		}
	}

	return global, nil
}

func durationFromSeconds(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}

// googleTokenSource builds an oauth2.TokenSource from a service-account
// JSON key file, scoped to the given API scopes. Used for both the Drive
// and Sheets clients so a single key file grants both.
func googleTokenSource(ctx context.Context, credPath string, scopes ...string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read google credentials file: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	return creds.TokenSource, nil
}
