package services

import (
	"context"
	"log/slog"
	"time"

	"saasan/internal/cache"
	"saasan/internal/events"
	"saasan/internal/storage"
	"saasan/internal/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Options wires the services to their collaborators.
type Options struct {
	DB        *gorm.DB
	Store     storage.BlobStore
	Cache     cache.Cache
	Publisher events.Publisher
	Metrics   *Metrics
	Logger    *slog.Logger

	UploadTimeout     time.Duration
	MaxUploadBytes    int64
	MaxFilesPerUpload int

	// RefreshInterval batches stats cache rebuilds. Rebuilds only happen
	// while Services.Refresher.Run is running.
	RefreshInterval time.Duration
}

// Services groups every domain service over one shared core.
type Services struct {
	Reports     *ReportService
	Votes       *VoteService
	Evidence    *EvidenceService
	Stats       *StatsService
	Politicians *PoliticianService
	MajorCases  *MajorCaseService
	Refresher   *Refresher
}

type core struct {
	db        *gorm.DB
	locks     *utils.KeyedMutex
	publisher events.Publisher
	metrics   *Metrics
	logger    *slog.Logger
	stats     *StatsService
	now       func() time.Time
}

func New(opts Options) *Services {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics(nil)
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NewLogPublisher(opts.Logger)
	}
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 30 * time.Second
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 * 1024 * 1024
	}
	if opts.MaxFilesPerUpload <= 0 {
		opts.MaxFilesPerUpload = 10
	}

	c := &core{
		db:        opts.DB,
		locks:     utils.NewKeyedMutex(),
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		logger:    opts.Logger,
		now:       time.Now,
	}
	c.stats = &StatsService{core: c, cache: opts.Cache}
	c.stats.refresher = newRefresher(c.stats, opts.RefreshInterval)

	return &Services{
		Reports: &ReportService{core: c},
		Votes:   &VoteService{core: c},
		Evidence: &EvidenceService{
			core:          c,
			store:         opts.Store,
			uploadTimeout: opts.UploadTimeout,
			maxBytes:      opts.MaxUploadBytes,
			maxFiles:      opts.MaxFilesPerUpload,
		},
		Stats:       c.stats,
		Politicians: &PoliticianService{core: c},
		MajorCases:  &MajorCaseService{core: c},
		Refresher:   c.stats.refresher,
	}
}

// lockReport serializes report mutations (edits, status, evidence).
func (c *core) lockReport(id string) func() {
	return c.locks.Lock("report:" + id)
}

// lockVotes serializes the vote ledger of one report.
func (c *core) lockVotes(id string) func() {
	return c.locks.Lock("votes:" + id)
}

// forUpdate adds a row lock where the dialect supports it. SQLite already
// serializes writers.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// publish emits ev after commit. Failures are logged and swallowed.
func (c *core) publish(ctx context.Context, ev events.Event) {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = c.now().UTC()
	}
	if err := c.publisher.Publish(ctx, ev); err != nil {
		c.logger.WarnContext(ctx, "event publish failed", "type", ev.Type, "report_id", ev.ReportID, "error", err)
	}
}
