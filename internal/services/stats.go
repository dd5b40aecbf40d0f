package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"saasan/internal/cache"
	"saasan/internal/models"
	"saasan/internal/utils"

	"gorm.io/gorm"
)

const (
	cacheKeyOverview   = "stats:overview"
	cacheKeyCategories = "stats:categories"
	cacheKeyMajorCases = "stats:major-cases"

	DefaultMajorCases = 10
	MaxMajorCases     = 100
)

// StatsService answers the dashboard projections. Results may be cached and
// are invalidated explicitly by every mutating service.
//
// gen counts invalidations. A projection computed before an invalidation is
// never written back to the cache.
type StatsService struct {
	*core
	cache     cache.Cache
	refresher *Refresher
	gen       atomic.Uint64
	storeMu   sync.Mutex // orders store against Invalidate
}

type Overview struct {
	TotalReports      int64   `json:"totalReports"`
	ResolvedReports   int64   `json:"resolvedReports"`
	TotalPoliticians  int64   `json:"totalPoliticians"`
	ActivePoliticians int64   `json:"activePoliticians"`
	ResolutionRate    float64 `json:"resolutionRate"` // percent
}

// RankedReport is a report with its major-case severity.
type RankedReport struct {
	ID              string          `json:"id"`
	ReferenceNumber string          `json:"referenceNumber"`
	Title           string          `json:"title"`
	Category        models.Category `json:"category"`
	Status          models.Status   `json:"status"`
	District        string          `json:"district,omitempty"`
	AmountInvolved  *float64        `json:"amountInvolved,omitempty"`
	UpvotesCount    int64           `json:"upvotesCount"`
	CreatedAt       time.Time       `json:"createdAt"`
	Severity        float64         `json:"severity"`
}

// ResolutionRate is resolved/total as a percent, 0 when there are no reports.
func ResolutionRate(resolved, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(resolved)/float64(total)*10000) / 100
}

func (s *StatsService) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	if s.cached(ctx, cacheKeyOverview, &out) {
		return &out, nil
	}
	gen := s.gen.Load()
	ov, err := s.computeOverview(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cacheKeyOverview, gen, ov)
	return ov, nil
}

func (s *StatsService) computeOverview(ctx context.Context) (*Overview, error) {
	var out Overview
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Report{}).Count(&out.TotalReports).Error; err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	if err := db.Model(&models.Report{}).Where("status = ?", models.StatusResolved).Count(&out.ResolvedReports).Error; err != nil {
		return nil, fmt.Errorf("count resolved reports: %w", err)
	}
	if err := db.Model(&models.Politician{}).Count(&out.TotalPoliticians).Error; err != nil {
		return nil, fmt.Errorf("count politicians: %w", err)
	}
	if err := db.Model(&models.Politician{}).Where("is_active = ?", true).Count(&out.ActivePoliticians).Error; err != nil {
		return nil, fmt.Errorf("count active politicians: %w", err)
	}
	out.ResolutionRate = ResolutionRate(out.ResolvedReports, out.TotalReports)
	return &out, nil
}

// CategoryBreakdown counts reports per category. Every category is present,
// with zero when it has no reports.
func (s *StatsService) CategoryBreakdown(ctx context.Context) (map[models.Category]int64, error) {
	out := make(map[models.Category]int64, len(models.Categories))
	if s.cached(ctx, cacheKeyCategories, &out) {
		return out, nil
	}
	gen := s.gen.Load()
	out, err := s.computeCategories(ctx)
	if err != nil {
		return nil, err
	}
	s.store(ctx, cacheKeyCategories, gen, out)
	return out, nil
}

func (s *StatsService) computeCategories(ctx context.Context) (map[models.Category]int64, error) {
	type row struct {
		Category models.Category
		N        int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.Report{}).
		Select("category, count(*) AS n").
		Group("category").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("category breakdown: %w", err)
	}
	out := make(map[models.Category]int64, len(models.Categories))
	for _, c := range models.Categories {
		out[c] = 0
	}
	for _, r := range rows {
		out[r.Category] = r.N
	}
	return out, nil
}

// MajorCases returns the limit most severe reports. Severity grows with both
// amountInvolved and upvotes; ties go to the older report, then the lower id.
func (s *StatsService) MajorCases(ctx context.Context, limit int) ([]RankedReport, error) {
	if limit <= 0 {
		limit = DefaultMajorCases
	}
	limit = utils.Clamp(limit, 1, MaxMajorCases)

	var ranked []RankedReport
	if !s.cached(ctx, cacheKeyMajorCases, &ranked) {
		gen := s.gen.Load()
		var err error
		ranked, err = s.rankReports(ctx, MaxMajorCases)
		if err != nil {
			return nil, err
		}
		s.store(ctx, cacheKeyMajorCases, gen, ranked)
	}
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *StatsService) rankReports(ctx context.Context, keep int) ([]RankedReport, error) {
	top := make([]RankedReport, 0, keep)
	var batch []models.Report
	err := s.db.WithContext(ctx).Model(&models.Report{}).
		Select("id", "reference_number", "title", "category", "status", "district", "amount_involved", "upvotes_count", "created_at").
		FindInBatches(&batch, 500, func(tx *gorm.DB, _ int) error {
			for _, r := range batch {
				top = append(top, RankedReport{
					ID:              r.ID,
					ReferenceNumber: r.ReferenceNumber,
					Title:           r.Title,
					Category:        r.Category,
					Status:          r.Status,
					District:        r.District,
					AmountInvolved:  r.AmountInvolved,
					UpvotesCount:    r.UpvotesCount,
					CreatedAt:       r.CreatedAt,
					Severity:        utils.Severity(r.AmountInvolved, r.UpvotesCount),
				})
			}
			sortBySeverity(top)
			if len(top) > keep {
				top = top[:keep]
			}
			return nil
		}).Error
	if err != nil {
		return nil, fmt.Errorf("rank reports: %w", err)
	}
	return top, nil
}

func sortBySeverity(rs []RankedReport) {
	sort.SliceStable(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

// rebuild recomputes one projection and overwrites its cache entry, whatever
// the entry currently holds.
func (s *StatsService) rebuild(ctx context.Context, key string) error {
	gen := s.gen.Load()
	var (
		v   any
		err error
	)
	switch key {
	case cacheKeyOverview:
		v, err = s.computeOverview(ctx)
	case cacheKeyCategories:
		v, err = s.computeCategories(ctx)
	case cacheKeyMajorCases:
		v, err = s.rankReports(ctx, MaxMajorCases)
	default:
		return fmt.Errorf("unknown stats key %q", key)
	}
	if err != nil {
		return err
	}
	s.store(ctx, key, gen, v)
	return nil
}

// Invalidate drops every cached projection and queues a rebuild.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := []string{cacheKeyOverview, cacheKeyCategories, cacheKeyMajorCases}
	s.storeMu.Lock()
	s.gen.Add(1)
	s.cache.Delete(ctx, keys...)
	s.storeMu.Unlock()
	for _, key := range keys {
		s.refresher.Schedule(key)
	}
}

func (s *StatsService) cached(ctx context.Context, key string, v any) bool {
	if s.cache == nil {
		return false
	}
	data, ok := s.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.logger.WarnContext(ctx, "dropping undecodable cache entry", "key", key, "error", err)
		s.cache.Delete(ctx, key)
		return false
	}
	return true
}

// store caches v unless an invalidation happened since gen was read.
func (s *StatsService) store(ctx context.Context, key string, gen uint64, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.WarnContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	s.storeMu.Lock()
	defer s.storeMu.Unlock()
	if s.gen.Load() != gen {
		s.logger.DebugContext(ctx, "dropping stale stats projection", "key", key)
		return
	}
	s.cache.Set(ctx, key, data)
}
