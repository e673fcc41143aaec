package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/database"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

const roundTable = "round"

// RoundRepository handles database operations for the round table.
type RoundRepository struct {
	*Repository
}

// NewRoundRepository creates a new round repository.
func NewRoundRepository(db database.DB, logger ectologger.Logger) *RoundRepository {
	return &RoundRepository{Repository: NewRepository(db, logger)}
}

// GetByID retrieves a round by its primary key.
func (r *RoundRepository) GetByID(ctx context.Context, roundID int64) (*models.Round, error) {
	sb := database.NewSelectBuilder()
	sb.Select("round_id", "rated_ind", "contest_id").From(roundTable).Where(sb.Equal("round_id", roundID))

	query, args := sb.Build()
	var round models.Round
	if err := r.DB().GetContext(ctx, &round, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("round %d not found", roundID)
		}
		return nil, fmt.Errorf("failed to load round %d: %w", roundID, err)
	}
	return &round, nil
}

// GetByContestID retrieves a round by its legacy contest id.
func (r *RoundRepository) GetByContestID(ctx context.Context, contestID int64) (*models.Round, error) {
	sb := database.NewSelectBuilder()
	sb.Select("round_id", "rated_ind", "contest_id").From(roundTable).Where(sb.Equal("contest_id", contestID))

	query, args := sb.Build()
	var round models.Round
	if err := r.DB().GetContext(ctx, &round, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NotFound("round for contest %d not found", contestID)
		}
		return nil, fmt.Errorf("failed to load round for contest %d: %w", contestID, err)
	}
	return &round, nil
}

// MarkRated flips rated_ind to 1 for the round. Called once, last, in
// the round-calculation transaction: it shares the transaction already
// open on ctx rather than opening its own, so it commits or rolls back
// together with every write that preceded it in the same round.
func (r *RoundRepository) MarkRated(ctx context.Context, roundID int64) error {
	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to open transaction marking round %d rated: %w", roundID, err)
	}

	ub := database.NewUpdateBuilder()
	ub.Update(roundTable).Set(ub.Assign("rated_ind", 1)).Where(ub.Equal("round_id", roundID))

	query, args := ub.Build()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithField("round_id", roundID).Error("failed to mark round rated")
		return fmt.Errorf("failed to mark round %d rated: %w", roundID, err)
	}
	return nil
}
