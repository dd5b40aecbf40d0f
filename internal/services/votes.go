package services

import (
	"context"
	"errors"
	"fmt"

	"saasan/internal/events"
	"saasan/internal/models"

	"gorm.io/gorm"
)

type VoteService struct {
	*core
}

// Tally is the vote state of a report after an operation.
type Tally struct {
	ReportID       string           `json:"reportId"`
	UpvotesCount   int64            `json:"upvotesCount"`
	DownvotesCount int64            `json:"downvotesCount"`
	UserVote       *models.Polarity `json:"userVote"`
}

const (
	outcomeCast      = "cast"
	outcomeRetracted = "retracted"
	outcomeFlipped   = "flipped"
)

func counterColumn(p models.Polarity) string {
	if p == models.PolarityUp {
		return "upvotes_count"
	}
	return "downvotes_count"
}

// Vote toggles voterID's vote on a report. Same polarity retracts, opposite
// polarity flips. Ledger row and counters change in one transaction, and
// votes on one report are serialized.
func (s *VoteService) Vote(ctx context.Context, reportID, voterID string, polarity models.Polarity) (*Tally, error) {
	if voterID == "" {
		return nil, validationf("voterId is required")
	}
	if !polarity.Valid() {
		return nil, validationf("polarity must be up or down")
	}

	unlock := s.lockVotes(reportID)
	defer unlock()

	var (
		outcome string
		tally   = &Tally{ReportID: reportID}
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := findReport(forUpdate(tx).Select("id"), reportID); err != nil {
			return err
		}

		var existing models.Vote
		err := tx.Where("report_id = ? AND voter_id = ?", reportID, voterID).Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			outcome = outcomeCast
			vote := models.Vote{ReportID: reportID, VoterID: voterID, Polarity: polarity}
			if err := tx.Omit("Report").Create(&vote).Error; err != nil {
				return fmt.Errorf("record vote: %w", err)
			}
			if err := bump(tx, reportID, polarity, 1); err != nil {
				return err
			}
			p := polarity
			tally.UserVote = &p
		case err != nil:
			return fmt.Errorf("load vote: %w", err)
		case existing.Polarity == polarity:
			outcome = outcomeRetracted
			if err := tx.Where("report_id = ? AND voter_id = ?", reportID, voterID).Delete(&models.Vote{}).Error; err != nil {
				return fmt.Errorf("retract vote: %w", err)
			}
			if err := bump(tx, reportID, polarity, -1); err != nil {
				return err
			}
		default:
			outcome = outcomeFlipped
			if err := tx.Model(&models.Vote{}).
				Where("report_id = ? AND voter_id = ?", reportID, voterID).
				Update("polarity", polarity).Error; err != nil {
				return fmt.Errorf("flip vote: %w", err)
			}
			if err := bump(tx, reportID, existing.Polarity, -1); err != nil {
				return err
			}
			if err := bump(tx, reportID, polarity, 1); err != nil {
				return err
			}
			p := polarity
			tally.UserVote = &p
		}

		var counts models.Report
		if err := tx.Select("upvotes_count", "downvotes_count").
			First(&counts, "id = ?", reportID).Error; err != nil {
			return fmt.Errorf("read counters: %w", err)
		}
		tally.UpvotesCount, tally.DownvotesCount = counts.UpvotesCount, counts.DownvotesCount
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Votes.WithLabelValues(string(polarity), outcome).Inc()
	s.stats.Invalidate(ctx)
	s.publish(ctx, events.Event{
		Type:     events.ReportVoted,
		ReportID: reportID,
		ActorID:  voterID,
		Data: map[string]any{
			"polarity":       polarity,
			"outcome":        outcome,
			"upvotesCount":   tally.UpvotesCount,
			"downvotesCount": tally.DownvotesCount,
		},
	})
	return tally, nil
}

func bump(tx *gorm.DB, reportID string, p models.Polarity, delta int) error {
	col := counterColumn(p)
	err := tx.Model(&models.Report{}).
		Where("id = ?", reportID).
		UpdateColumn(col, gorm.Expr(col+" + ?", delta)).Error
	if err != nil {
		return fmt.Errorf("update %s: %w", col, err)
	}
	return nil
}

// CurrentVote returns the report's tally and voterID's live vote, if any.
func (s *VoteService) CurrentVote(ctx context.Context, reportID, voterID string) (*Tally, error) {
	report, err := findReport(s.db.WithContext(ctx), reportID)
	if err != nil {
		return nil, err
	}
	tally := &Tally{
		ReportID:       reportID,
		UpvotesCount:   report.UpvotesCount,
		DownvotesCount: report.DownvotesCount,
	}
	if voterID == "" {
		return tally, nil
	}

	var vote models.Vote
	err = s.db.WithContext(ctx).Where("report_id = ? AND voter_id = ?", reportID, voterID).Take(&vote).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, fmt.Errorf("load vote: %w", err)
	default:
		p := vote.Polarity
		tally.UserVote = &p
	}
	return tally, nil
}

// CredibilityScore recomputes the 0..100 score of a report from stored data.
func (s *VoteService) CredibilityScore(ctx context.Context, reportID string) (int, error) {
	report, err := findReport(s.db.WithContext(ctx), reportID)
	if err != nil {
		return 0, err
	}
	var evidenceCount int64
	if err := s.db.WithContext(ctx).Model(&models.Evidence{}).
		Where("report_id = ?", reportID).Count(&evidenceCount).Error; err != nil {
		return 0, fmt.Errorf("count evidence: %w", err)
	}
	level := LevelFor(report.Status, int(evidenceCount))
	return CredibilityScore(int(evidenceCount), report.UpvotesCount, report.DownvotesCount, level), nil
}

// VoteCounts recounts the ledger. Counters on the report must always match.
func (s *VoteService) VoteCounts(ctx context.Context, reportID string) (up, down int64, err error) {
	type row struct {
		Polarity models.Polarity
		N        int64
	}
	var rows []row
	err = s.db.WithContext(ctx).Model(&models.Vote{}).
		Select("polarity, count(*) AS n").
		Where("report_id = ?", reportID).
		Group("polarity").
		Scan(&rows).Error
	if err != nil {
		return 0, 0, fmt.Errorf("count votes: %w", err)
	}
	for _, r := range rows {
		switch r.Polarity {
		case models.PolarityUp:
			up = r.N
		case models.PolarityDown:
			down = r.N
		}
	}
	return up, down, nil
}
