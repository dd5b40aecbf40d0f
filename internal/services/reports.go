package services

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"saasan/internal/events"
	"saasan/internal/models"
	"saasan/internal/utils"

	"gorm.io/gorm"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 10000
	refNumberAttempts = 5

	DefaultPerPage = 30
	MaxPerPage     = 100
	// keeps (page-1)*perPage far from int overflow
	MaxPage = 10000
)

type ReportService struct {
	*core
}

type CreateReportInput struct {
	Title          string
	Description    string
	Category       models.Category
	IsAnonymous    bool
	ReporterID     string
	Location       string
	District       string
	AmountInvolved *float64
}

type UpdateReportInput struct {
	Title       *string
	Description *string
}

type ListFilter struct {
	Status   models.Status
	Category models.Category
	District string
	Page     int
	PerPage  int
}

type ReportPage struct {
	Items   []models.Report `json:"items"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"perPage"`
}

func cleanText(field, s string, max int) (string, error) {
	s = utils.StripTags(s)
	if s == "" {
		return "", validationf("%s is required", field)
	}
	if utf8.RuneCountInString(s) > max {
		return "", validationf("%s must be at most %d characters", field, max)
	}
	return s, nil
}

// Create files a new report in the submitted state.
func (s *ReportService) Create(ctx context.Context, in CreateReportInput) (*models.Report, error) {
	title, err := cleanText("title", in.Title, maxTitleLen)
	if err != nil {
		return nil, err
	}
	description, err := cleanText("description", in.Description, maxDescriptionLen)
	if err != nil {
		return nil, err
	}
	category := in.Category
	if category == "" {
		category = models.CategoryOther
	}
	if !category.Valid() {
		return nil, validationf("unknown category %q", category)
	}
	if in.AmountInvolved != nil && *in.AmountInvolved < 0 {
		return nil, validationf("amountInvolved must not be negative")
	}

	report := models.Report{
		Title:          title,
		Description:    description,
		Category:       category,
		Status:         models.StatusSubmitted,
		IsAnonymous:    in.IsAnonymous,
		Location:       utils.StripTags(in.Location),
		District:       utils.StripTags(in.District),
		AmountInvolved: in.AmountInvolved,
	}
	if !in.IsAnonymous {
		if in.ReporterID == "" {
			return nil, validationf("reporterId is required for non-anonymous reports")
		}
		reporter := in.ReporterID
		report.ReporterID = &reporter
	}

	// 编号冲突时重新生成
	for attempt := 1; ; attempt++ {
		report.ReferenceNumber = utils.NewReferenceNumber(s.now())
		err = s.db.WithContext(ctx).Create(&report).Error
		if err == nil {
			break
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) || attempt == refNumberAttempts {
			return nil, fmt.Errorf("create report: %w", err)
		}
		s.logger.WarnContext(ctx, "reference number collision, retrying", "attempt", attempt)
	}

	// anonymous reports never carry the submitter, not even in events
	var actorID string
	if report.ReporterID != nil {
		actorID = *report.ReporterID
	}
	s.metrics.ReportsCreated.Inc()
	s.stats.Invalidate(ctx)
	s.publish(ctx, events.Event{
		Type:     events.ReportCreated,
		ReportID: report.ID,
		ActorID:  actorID,
		Data: map[string]any{
			"referenceNumber": report.ReferenceNumber,
			"category":        report.Category,
		},
	})
	report.Evidence = []models.Evidence{}
	report.StatusUpdates = []models.StatusUpdate{}
	return &report, nil
}

// Get loads a report with its evidence in display order and its status log.
func (s *ReportService) Get(ctx context.Context, id string) (*models.Report, error) {
	return getReport(s.db.WithContext(ctx), id)
}

func getReport(tx *gorm.DB, id string) (*models.Report, error) {
	var report models.Report
	err := tx.
		Preload("Evidence", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("StatusUpdates", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("report", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return &report, nil
}

// findReport loads the bare report row.
func findReport(tx *gorm.DB, id string) (*models.Report, error) {
	var report models.Report
	err := tx.First(&report, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("report", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load report: %w", err)
	}
	return &report, nil
}

// Update edits title and description. Terminal reports are frozen for
// everyone; otherwise only the named reporter may edit.
func (s *ReportService) Update(ctx context.Context, id string, patch UpdateReportInput, actor Actor) (*models.Report, error) {
	unlock := s.lockReport(id)
	defer unlock()

	report, err := findReport(s.db.WithContext(ctx), id)
	if err != nil {
		return nil, err
	}
	if report.Status.Terminal() {
		return nil, fmt.Errorf("%w: report is %s", ErrInvalidState, report.Status)
	}
	if !report.OwnedBy(actor.ID) {
		return nil, fmt.Errorf("%w: only the reporter may edit this report", ErrForbidden)
	}

	updates := map[string]any{}
	if patch.Title != nil {
		title, err := cleanText("title", *patch.Title, maxTitleLen)
		if err != nil {
			return nil, err
		}
		updates["title"] = title
	}
	if patch.Description != nil {
		description, err := cleanText("description", *patch.Description, maxDescriptionLen)
		if err != nil {
			return nil, err
		}
		updates["description"] = description
	}
	if len(updates) == 0 {
		return nil, validationf("nothing to update")
	}

	if err := s.db.WithContext(ctx).Model(report).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update report: %w", err)
	}
	s.stats.Invalidate(ctx)
	return s.Get(ctx, id)
}

type StatusUpdateInput struct {
	Status  models.Status
	Comment string
}

// AddStatusUpdate appends to the status log and moves the report along one
// allowed edge. Both writes commit together.
func (s *ReportService) AddStatusUpdate(ctx context.Context, id string, in StatusUpdateInput, actor Actor) (*models.Report, error) {
	if !actor.CanReview() {
		return nil, fmt.Errorf("%w: status updates require an investigator, moderator or admin", ErrForbidden)
	}
	if !in.Status.Valid() {
		return nil, validationf("unknown status %q", in.Status)
	}
	comment := utils.StripTags(in.Comment)
	if utf8.RuneCountInString(comment) > maxDescriptionLen {
		return nil, validationf("comment must be at most %d characters", maxDescriptionLen)
	}

	unlock := s.lockReport(id)
	defer unlock()

	var from models.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		report, err := findReport(forUpdate(tx), id)
		if err != nil {
			return err
		}
		from = report.Status
		if err := checkTransition(report.Status, in.Status); err != nil {
			return err
		}

		update := models.StatusUpdate{
			ReportID:  id,
			Status:    in.Status,
			Comment:   comment,
			AuthorID:  actor.ID,
			CreatedAt: s.now(),
		}
		if err := tx.Create(&update).Error; err != nil {
			return fmt.Errorf("append status update: %w", err)
		}
		return tx.Model(report).Update("status", in.Status).Error
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StatusTransitions.WithLabelValues(string(in.Status)).Inc()
	s.stats.Invalidate(ctx)
	s.publish(ctx, events.Event{
		Type:     events.ReportStatusChanged,
		ReportID: id,
		ActorID:  actor.ID,
		Data:     map[string]any{"from": from, "to": in.Status},
	})
	return s.Get(ctx, id)
}

// List returns one page of reports, newest first. Items and total come from
// one transaction so the page is a consistent snapshot.
func (s *ReportService) List(ctx context.Context, f ListFilter) (*ReportPage, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validationf("unknown status %q", f.Status)
	}
	if f.Category != "" && !f.Category.Valid() {
		return nil, validationf("unknown category %q", f.Category)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Page > MaxPage {
		return nil, validationf("page must be at most %d", MaxPage)
	}
	if f.PerPage <= 0 {
		f.PerPage = DefaultPerPage
	}
	f.PerPage = utils.Clamp(f.PerPage, 1, MaxPerPage)

	filter := func(db *gorm.DB) *gorm.DB {
		if f.Status != "" {
			db = db.Where("status = ?", f.Status)
		}
		if f.Category != "" {
			db = db.Where("category = ?", f.Category)
		}
		if f.District != "" {
			db = db.Where("district = ?", f.District)
		}
		return db
	}

	page := &ReportPage{Items: []models.Report{}, Page: f.Page, PerPage: f.PerPage}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Report{}).Scopes(filter).Count(&page.Total).Error; err != nil {
			return err
		}
		return tx.Scopes(filter).
			Preload("Evidence", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
			Order("created_at DESC, id DESC").
			Offset((f.Page - 1) * f.PerPage).
			Limit(f.PerPage).
			Find(&page.Items).Error
	})
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return page, nil
}

// Share records one share of the report and returns the new total.
func (s *ReportService) Share(ctx context.Context, id string, actorID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).
		UpdateColumn("shares_count", gorm.Expr("shares_count + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("share report: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, notFound("report", id)
	}

	var shares int64
	if err := s.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", id).Pluck("shares_count", &shares).Error; err != nil {
		return 0, fmt.Errorf("read shares: %w", err)
	}
	s.stats.Invalidate(ctx)
	s.publish(ctx, events.Event{Type: events.ReportShared, ReportID: id, ActorID: actorID})
	return shares, nil
}

// Verification derives the credibility view of a report.
func (s *ReportService) Verification(ctx context.Context, id string) (*VerificationStatus, error) {
	report, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return BuildVerification(report), nil
}
