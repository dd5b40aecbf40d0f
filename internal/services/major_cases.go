package services

import (
	"context"
	"errors"
	"fmt"

	"saasan/internal/models"
	"saasan/internal/utils"

	"gorm.io/gorm"
)

// MajorCaseService manages curated cases. They are separate from citizen
// reports and never feed the report statistics.
type MajorCaseService struct {
	*core
}

type MajorCaseInput struct {
	Title          string
	Summary        string
	Status         models.CaseStatus
	AmountInvolved *float64
}

func (s *MajorCaseService) Create(ctx context.Context, in MajorCaseInput, actor Actor) (*models.MajorCase, error) {
	if !actor.CanCurate() {
		return nil, fmt.Errorf("%w: only moderators may curate major cases", ErrForbidden)
	}
	title, err := cleanText("title", in.Title, maxTitleLen)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = models.CaseStatusOngoing
	}
	if !in.Status.Valid() {
		return nil, validationf("unknown case status %q", in.Status)
	}
	if in.AmountInvolved != nil && *in.AmountInvolved < 0 {
		return nil, validationf("amountInvolved must not be negative")
	}
	mc := models.MajorCase{
		Title:          title,
		Summary:        utils.StripTags(in.Summary),
		Status:         in.Status,
		AmountInvolved: in.AmountInvolved,
	}
	if err := s.db.WithContext(ctx).Create(&mc).Error; err != nil {
		return nil, fmt.Errorf("create major case: %w", err)
	}
	return &mc, nil
}

func (s *MajorCaseService) Get(ctx context.Context, id string) (*models.MajorCase, error) {
	var mc models.MajorCase
	err := s.db.WithContext(ctx).First(&mc, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("major case", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load major case: %w", err)
	}
	return &mc, nil
}

// UpdateStatus moves a curated case between solved, ongoing and unsolved.
// Any move is allowed.
func (s *MajorCaseService) UpdateStatus(ctx context.Context, id string, status models.CaseStatus, actor Actor) (*models.MajorCase, error) {
	if !actor.CanCurate() {
		return nil, fmt.Errorf("%w: only moderators may curate major cases", ErrForbidden)
	}
	if !status.Valid() {
		return nil, validationf("unknown case status %q", status)
	}
	res := s.db.WithContext(ctx).Model(&models.MajorCase{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, fmt.Errorf("update major case: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, notFound("major case", id)
	}
	return s.Get(ctx, id)
}

func (s *MajorCaseService) List(ctx context.Context, status models.CaseStatus) ([]models.MajorCase, error) {
	if status != "" && !status.Valid() {
		return nil, validationf("unknown case status %q", status)
	}
	q := s.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	out := []models.MajorCase{}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list major cases: %w", err)
	}
	return out, nil
}
