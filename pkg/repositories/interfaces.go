package repositories

import (
	"context"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

// RoundRepo defines persistence operations on the round table.
type RoundRepo interface {
	GetByID(ctx context.Context, roundID int64) (*models.Round, error)
	GetByContestID(ctx context.Context, contestID int64) (*models.Round, error)
	MarkRated(ctx context.Context, roundID int64) error
}

// LongCompResultRepo defines persistence operations on long_comp_result.
type LongCompResultRepo interface {
	ListUnratedAttendees(ctx context.Context, roundID int64) ([]models.LongCompResult, error)
	MarkAttended(ctx context.Context, roundID, coderID int64) error
	ApplyRating(ctx context.Context, roundID, coderID int64, oldRating, oldVol *int, newRating, newVol int) error
}

// AlgoRatingRepo defines persistence operations on algo_rating, scoped
// to the fixed marathon rating type.
type AlgoRatingRepo interface {
	GetByCoderID(ctx context.Context, coderID int64) (*models.AlgoRating, error)
	Upsert(ctx context.Context, coderID int64, roundID int64, newRating, newVol int) (*models.AlgoRating, error)
}
