package services

import (
	"context"
	"fmt"

	"saasan/internal/models"
	"saasan/internal/utils"
)

type PoliticianService struct {
	*core
}

type PoliticianInput struct {
	Name     string
	Party    string
	Position string
	District string
	IsActive bool
}

type PoliticianFilter struct {
	District string
	Active   *bool
}

func (s *PoliticianService) Create(ctx context.Context, in PoliticianInput, actor Actor) (*models.Politician, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only admins may add politicians", ErrForbidden)
	}
	name, err := cleanText("name", in.Name, maxTitleLen)
	if err != nil {
		return nil, err
	}
	p := models.Politician{
		Name:     name,
		Party:    utils.StripTags(in.Party),
		Position: utils.StripTags(in.Position),
		District: utils.StripTags(in.District),
		IsActive: in.IsActive,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, fmt.Errorf("create politician: %w", err)
	}
	s.stats.Invalidate(ctx)
	return &p, nil
}

func (s *PoliticianService) List(ctx context.Context, f PoliticianFilter) ([]models.Politician, error) {
	q := s.db.WithContext(ctx).Order("name ASC")
	if f.District != "" {
		q = q.Where("district = ?", f.District)
	}
	if f.Active != nil {
		q = q.Where("is_active = ?", *f.Active)
	}
	out := []models.Politician{}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("list politicians: %w", err)
	}
	return out, nil
}
