package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dormbase/dorm-billing/backend/models"
)

func TestTransitionAllowed(t *testing.T) {
	allowed := []struct{ from, to string }{
		{models.StatusPending, models.StatusReview},
		{models.StatusPending, models.StatusPaid},
		{models.StatusReview, models.StatusPaid},
		{models.StatusReview, models.StatusRejected},
		{models.StatusOverdue, models.StatusReview},
		{models.StatusOverdue, models.StatusPaid},
		{models.StatusLate, models.StatusReview},
		{models.StatusLate, models.StatusPaid},
	}
	for _, tt := range allowed {
		assert.True(t, transitionAllowed(tt.from, tt.to), "%s -> %s should be allowed", tt.from, tt.to)
	}

	denied := []struct{ from, to string }{
		// Paid and rejected are terminal.
		{models.StatusPaid, models.StatusPending},
		{models.StatusPaid, models.StatusReview},
		{models.StatusRejected, models.StatusReview},
		{models.StatusRejected, models.StatusPaid},
		// Rejection only happens out of review.
		{models.StatusPending, models.StatusRejected},
		{models.StatusOverdue, models.StatusRejected},
		// No self transitions.
		{models.StatusPending, models.StatusPending},
	}
	for _, tt := range denied {
		assert.False(t, transitionAllowed(tt.from, tt.to), "%s -> %s should be denied", tt.from, tt.to)
	}
}
