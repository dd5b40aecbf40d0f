package services

import (
	"context"
	"testing"
	"time"

	"saasan/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverviewEmpty(t *testing.T) {
	f := newFixture(t)
	ov, err := f.svc.Stats.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), ov.TotalReports)
	assert.Equal(t, 0.0, ov.ResolutionRate)
}

func TestOverviewCountsAndInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.createReport(t, CreateReportInput{})
	}
	resolved := f.createReport(t, CreateReportInput{})
	f.transition(t, resolved.ID, models.StatusUnderReview, models.StatusVerified, models.StatusResolved)

	_, err := f.svc.Politicians.Create(ctx, PoliticianInput{Name: "A", IsActive: true}, admin)
	require.NoError(t, err)
	_, err = f.svc.Politicians.Create(ctx, PoliticianInput{Name: "B"}, admin)
	require.NoError(t, err)

	ov, err := f.svc.Stats.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Overview{
		TotalReports:      4,
		ResolvedReports:   1,
		TotalPoliticians:  2,
		ActivePoliticians: 1,
		ResolutionRate:    25,
	}, ov)

	// a new report invalidates the cached projection
	f.createReport(t, CreateReportInput{})
	ov, err = f.svc.Stats.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ov.TotalReports)
	assert.Equal(t, 20.0, ov.ResolutionRate)
}

func TestResolutionRate(t *testing.T) {
	assert.Equal(t, 0.0, ResolutionRate(0, 0))
	assert.Equal(t, 100.0, ResolutionRate(3, 3))
	assert.Equal(t, 33.33, ResolutionRate(1, 3))
}

func TestCategoryBreakdown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.Stats.CategoryBreakdown(ctx)
	require.NoError(t, err)
	assert.Len(t, got, len(models.Categories))
	for _, c := range models.Categories {
		assert.Zero(t, got[c])
	}

	f.createReport(t, CreateReportInput{Category: models.CategoryBribery})
	f.createReport(t, CreateReportInput{Category: models.CategoryBribery})
	f.createReport(t, CreateReportInput{Category: models.CategoryNepotism})

	got, err = f.svc.Stats.CategoryBreakdown(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got[models.CategoryBribery])
	assert.Equal(t, int64(1), got[models.CategoryNepotism])
	assert.Equal(t, int64(0), got[models.CategoryCorruption])
}

func TestMajorCasesOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	small := f.createReport(t, CreateReportInput{AmountInvolved: ptr(1000.0)})
	bigOld := f.createReport(t, CreateReportInput{AmountInvolved: ptr(500000.0)})
	bigNew := f.createReport(t, CreateReportInput{AmountInvolved: ptr(500000.0)})
	none := f.createReport(t, CreateReportInput{})
	f.backdate(t, small.ID, base)
	f.backdate(t, bigOld.ID, base.Add(time.Hour))
	f.backdate(t, bigNew.ID, base.Add(2*time.Hour))
	f.backdate(t, none.ID, base.Add(3*time.Hour))

	got, err := f.svc.Stats.MajorCases(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	// equal severity: older first
	assert.Equal(t, []string{bigOld.ID, bigNew.ID, small.ID}, []string{got[0].ID, got[1].ID, got[2].ID})

	// upvotes raise severity and the vote invalidates the cache
	_, err = f.svc.Votes.Vote(ctx, bigNew.ID, "U5", models.PolarityUp)
	require.NoError(t, err)
	got, err = f.svc.Stats.MajorCases(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, bigNew.ID, got[0].ID)
	assert.Equal(t, none.ID, got[3].ID)
	assert.Equal(t, 0.0, got[3].Severity)
}

func TestPoliticiansAndMajorCases(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Politicians.Create(ctx, PoliticianInput{Name: "X"}, moderator)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.Politicians.Create(ctx, PoliticianInput{}, admin)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Politicians.Create(ctx, PoliticianInput{Name: "Ram", District: "Kathmandu", IsActive: true}, admin)
	require.NoError(t, err)
	_, err = f.svc.Politicians.Create(ctx, PoliticianInput{Name: "Sita", District: "Pokhara"}, admin)
	require.NoError(t, err)

	active := true
	ps, err := f.svc.Politicians.List(ctx, PoliticianFilter{Active: &active})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "Ram", ps[0].Name)
	ps, err = f.svc.Politicians.List(ctx, PoliticianFilter{District: "Pokhara"})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.False(t, ps[0].IsActive)

	_, err = f.svc.MajorCases.Create(ctx, MajorCaseInput{Title: "Airport tender"}, citizen)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.svc.MajorCases.Create(ctx, MajorCaseInput{Title: "Airport tender", Status: "closed"}, moderator)
	assert.ErrorIs(t, err, ErrValidation)

	mc, err := f.svc.MajorCases.Create(ctx, MajorCaseInput{Title: "Airport tender", AmountInvolved: ptr(1e9)}, moderator)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusOngoing, mc.Status)

	mc, err = f.svc.MajorCases.UpdateStatus(ctx, mc.ID, models.CaseStatusSolved, admin)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusSolved, mc.Status)
	_, err = f.svc.MajorCases.UpdateStatus(ctx, "missing", models.CaseStatusSolved, admin)
	assert.ErrorIs(t, err, ErrNotFound)

	cases, err := f.svc.MajorCases.List(ctx, models.CaseStatusSolved)
	require.NoError(t, err)
	assert.Len(t, cases, 1)
	cases, err = f.svc.MajorCases.List(ctx, models.CaseStatusUnsolved)
	require.NoError(t, err)
	assert.Empty(t, cases)

	// curated cases never count as reports
	ov, err := f.svc.Stats.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), ov.TotalReports)
}
