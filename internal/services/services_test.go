package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"saasan/internal/cache"
	"saasan/internal/models"
	"saasan/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	svc     *Services
	db      *gorm.DB
	store   *testutil.BlobStore
	events  *testutil.Recorder
	metrics *Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := testutil.NewDB(t)
	lru, err := cache.NewLRU(16, time.Minute)
	require.NoError(t, err)

	f := &fixture{
		db:      gdb,
		store:   testutil.NewBlobStore(),
		events:  &testutil.Recorder{},
		metrics: NewMetrics(nil),
	}
	f.svc = New(Options{
		DB:        gdb,
		Store:     f.store,
		Cache:     lru,
		Publisher: f.events,
		Metrics:   f.metrics,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return f
}

var (
	citizen      = Actor{ID: "U1", Role: RoleCitizen}
	otherCitizen = Actor{ID: "U2", Role: RoleCitizen}
	investigator = Actor{ID: "I1", Role: RoleInvestigator}
	moderator    = Actor{ID: "M1", Role: RoleModerator}
	admin        = Actor{ID: "A1", Role: RoleAdmin}
)

func (f *fixture) createReport(t *testing.T, in CreateReportInput) *models.Report {
	t.Helper()
	if in.Title == "" {
		in.Title = "Bribe at Ward Office"
	}
	if in.Description == "" {
		in.Description = "Officer asked for 5000 to process a land record."
	}
	if !in.IsAnonymous && in.ReporterID == "" {
		in.ReporterID = citizen.ID
	}
	r, err := f.svc.Reports.Create(context.Background(), in)
	require.NoError(t, err)
	return r
}

func (f *fixture) transition(t *testing.T, id string, statuses ...models.Status) {
	t.Helper()
	for _, s := range statuses {
		_, err := f.svc.Reports.AddStatusUpdate(context.Background(), id, StatusUpdateInput{Status: s}, investigator)
		require.NoError(t, err)
	}
}

func ptr[T any](v T) *T { return &v }

func (f *fixture) backdate(t *testing.T, id string, at time.Time) {
	t.Helper()
	require.NoError(t, f.db.Model(&models.Report{}).Where("id = ?", id).UpdateColumn("created_at", at).Error)
}

func pngBytes() []byte { return testutil.PNG }
