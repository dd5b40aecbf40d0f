package utils

import (
	"math"
)

type SeverityConfig struct {
	WeightAmount float64
	WeightUpvote float64
	ScaleFactor  float64
}

var DefaultSeverity = SeverityConfig{
	WeightAmount: 1.0,
	WeightUpvote: 1.0,
	ScaleFactor:  100.0,
}

// Severity scores a report for the major-cases projection. Both inputs are
// log-smoothed so neither dominates, and the result is non-decreasing in each.
func Severity(amount *float64, upvotes int64) float64 {
	a := 0.0
	if amount != nil && *amount > 0 {
		a = *amount
	}
	u := float64(upvotes)
	if u < 0 {
		u = 0
	}

	// log10(x + 1) keeps 0 at 0
	return (DefaultSeverity.WeightAmount*math.Log10(a+1) +
		DefaultSeverity.WeightUpvote*math.Log10(u+1)) * DefaultSeverity.ScaleFactor
}
