package services

import (
	"fmt"

	"saasan/internal/models"
)

// allowedTransitions is the complete edge set of the report lifecycle.
var allowedTransitions = map[models.Status][]models.Status{
	models.StatusSubmitted:   {models.StatusUnderReview, models.StatusRejected},
	models.StatusUnderReview: {models.StatusVerified, models.StatusRejected},
	models.StatusVerified:    {models.StatusResolved},
}

func CanTransition(from, to models.Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to models.Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}
