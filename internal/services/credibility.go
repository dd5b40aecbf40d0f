package services

import (
	"math"
	"time"

	"saasan/internal/models"
)

// VerificationLevel ranks how far a report has been verified.
type VerificationLevel string

const (
	LevelVerified      VerificationLevel = "verified"
	LevelUnderReview   VerificationLevel = "under_review"
	LevelCitizenReport VerificationLevel = "citizen_report"
	LevelPending       VerificationLevel = "pending"
	LevelRejected      VerificationLevel = "rejected"
)

var verificationBase = map[VerificationLevel]int{
	LevelVerified:      30,
	LevelUnderReview:   20,
	LevelCitizenReport: 10,
	LevelPending:       5,
	LevelRejected:      0,
}

const (
	evidenceCap       = 5
	evidencePerFile   = 6
	approvalMaxPoints = 40
)

// LevelFor maps a report status to its verification level. A submitted
// report with evidence counts as a citizen report, without as pending.
func LevelFor(status models.Status, evidenceCount int) VerificationLevel {
	switch status {
	case models.StatusVerified, models.StatusResolved:
		return LevelVerified
	case models.StatusUnderReview:
		return LevelUnderReview
	case models.StatusRejected:
		return LevelRejected
	}
	if evidenceCount > 0 {
		return LevelCitizenReport
	}
	return LevelPending
}

// ApprovalRate is upvotes / (upvotes + downvotes), 0 with no votes.
func ApprovalRate(up, down int64) float64 {
	if up+down <= 0 {
		return 0
	}
	return float64(up) / float64(up+down)
}

// CredibilityScore combines evidence volume (max 30), approval (max 40) and
// verification level (max 30) into 0..100.
func CredibilityScore(evidenceCount int, up, down int64, level VerificationLevel) int {
	n := evidenceCount
	if n > evidenceCap {
		n = evidenceCap
	}
	if n < 0 {
		n = 0
	}
	score := float64(n*evidencePerFile) +
		ApprovalRate(up, down)*approvalMaxPoints +
		float64(verificationBase[level])

	return int(math.Max(0, math.Min(100, math.Round(score))))
}

type CredibilityLevel struct {
	Level string `json:"level"`
	Label string `json:"label"`
}

// CredibilityLevelFor buckets a score. Each band includes its lower bound.
func CredibilityLevelFor(score int) CredibilityLevel {
	switch {
	case score >= 90:
		return CredibilityLevel{Level: "very_high", Label: "Very High"}
	case score >= 75:
		return CredibilityLevel{Level: "high", Label: "High"}
	case score >= 60:
		return CredibilityLevel{Level: "medium", Label: "Medium"}
	case score >= 40:
		return CredibilityLevel{Level: "low", Label: "Low"}
	default:
		return CredibilityLevel{Level: "very_low", Label: "Very Low"}
	}
}

type CommunityVotes struct {
	Upvotes      int64   `json:"upvotes"`
	Downvotes    int64   `json:"downvotes"`
	Total        int64   `json:"total"`
	ApprovalRate float64 `json:"approvalRate"` // percent
}

// VerificationStatus is recomputed on every read and never stored.
type VerificationStatus struct {
	ReportID          string            `json:"reportId"`
	CredibilityScore  int               `json:"credibilityScore"`
	Credibility       CredibilityLevel  `json:"credibility"`
	CommunityVotes    CommunityVotes    `json:"communityVotes"`
	EvidenceCount     int               `json:"evidenceCount"`
	VerificationLevel VerificationLevel `json:"verificationLevel"`
	VerifiedBy        *string           `json:"verifiedBy"`
	VerifiedAt        *time.Time        `json:"verifiedAt"`
	Level             string            `json:"level"` // high | medium | low
}

func verificationBand(score int) string {
	switch {
	case score >= 75:
		return "high"
	case score >= 60:
		return "medium"
	default:
		return "low"
	}
}

// BuildVerification derives the view from a report loaded with its evidence
// and status log.
func BuildVerification(r *models.Report) *VerificationStatus {
	evidenceCount := len(r.Evidence)
	level := LevelFor(r.Status, evidenceCount)
	score := CredibilityScore(evidenceCount, r.UpvotesCount, r.DownvotesCount, level)

	v := &VerificationStatus{
		ReportID:         r.ID,
		CredibilityScore: score,
		Credibility:      CredibilityLevelFor(score),
		CommunityVotes: CommunityVotes{
			Upvotes:      r.UpvotesCount,
			Downvotes:    r.DownvotesCount,
			Total:        r.UpvotesCount + r.DownvotesCount,
			ApprovalRate: math.Round(ApprovalRate(r.UpvotesCount, r.DownvotesCount)*1000) / 10,
		},
		EvidenceCount:     evidenceCount,
		VerificationLevel: level,
		Level:             verificationBand(score),
	}
	for i := len(r.StatusUpdates) - 1; i >= 0; i-- {
		su := r.StatusUpdates[i]
		if su.Status == models.StatusVerified {
			by, at := su.AuthorID, su.CreatedAt
			v.VerifiedBy, v.VerifiedAt = &by, &at
			break
		}
	}
	return v
}
