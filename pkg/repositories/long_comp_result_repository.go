package repositories

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/database"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

const longCompResultTable = "long_comp_result"

// LongCompResultRepository handles database operations for long_comp_result.
type LongCompResultRepository struct {
	*Repository
}

// NewLongCompResultRepository creates a new long_comp_result repository.
func NewLongCompResultRepository(db database.DB, logger ectologger.Logger) *LongCompResultRepository {
	return &LongCompResultRepository{Repository: NewRepository(db, logger)}
}

// ListUnratedAttendees returns the unrated, attending slate for a round,
// ordered by system_point_total descending.
func (r *LongCompResultRepository) ListUnratedAttendees(ctx context.Context, roundID int64) ([]models.LongCompResult, error) {
	sb := database.NewSelectBuilder()
	sb.Select("round_id", "coder_id", "attended", "system_point_total", "old_rating", "old_vol", "new_rating", "new_vol", "rated_ind").
		From(longCompResultTable).
		Where(
			sb.Equal("round_id", roundID),
			sb.In("attended", models.AttendedYes, models.AttendedYesLow),
			sb.IsNull("new_rating"),
			sb.IsNull("new_vol"),
		).
		OrderBy("system_point_total").Desc()

	query, args := sb.Build()
	var rows []models.LongCompResult
	if err := r.DB().SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load unrated slate for round %d: %w", roundID, err)
	}
	return rows, nil
}

// MarkAttended flips attended to Y for a member whose submission
// reconciliation found a graded entry. Only rows currently
// flagged N are touched.
func (r *LongCompResultRepository) MarkAttended(ctx context.Context, roundID, coderID int64) error {
	ub := database.NewUpdateBuilder()
	ub.Update(longCompResultTable).
		Set(ub.Assign("attended", models.AttendedYes)).
		Where(
			ub.Equal("round_id", roundID),
			ub.Equal("coder_id", coderID),
			ub.Equal("attended", models.AttendedNo),
		)

	query, args := ub.Build()
	if _, err := r.DB().ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark coder %d attended for round %d: %w", coderID, roundID, err)
	}
	return nil
}

// ApplyRating writes the before/after rating snapshot for a participant.
// oldRating/oldVol may be nil if the participant had no prior AlgoRating
// row. It shares the transaction already open on ctx, so this write
// and the algo_rating upsert that follows it commit or roll back
// together.
func (r *LongCompResultRepository) ApplyRating(ctx context.Context, roundID, coderID int64, oldRating, oldVol *int, newRating, newVol int) error {
	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to open transaction applying rating for coder %d round %d: %w", coderID, roundID, err)
	}

	ub := database.NewUpdateBuilder()
	ub.Update(longCompResultTable).
		Set(
			ub.Assign("old_rating", oldRating),
			ub.Assign("old_vol", oldVol),
			ub.Assign("new_rating", newRating),
			ub.Assign("new_vol", newVol),
			ub.Assign("rated_ind", 1),
		).
		Where(ub.Equal("round_id", roundID), ub.Equal("coder_id", coderID))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).
			WithFields(map[string]any{"round_id": roundID, "coder_id": coderID}).
			Error("failed to apply rating to long_comp_result")
		return fmt.Errorf("failed to apply rating for coder %d round %d: %w", coderID, roundID, err)
	}
	return nil
}
