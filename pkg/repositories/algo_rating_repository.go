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

const algoRatingTable = "algo_rating"

// AlgoRatingRepository handles database operations for algo_rating,
// always scoped to models.MarathonRatingType.
type AlgoRatingRepository struct {
	*Repository
}

// NewAlgoRatingRepository creates a new algo_rating repository.
func NewAlgoRatingRepository(db database.DB, logger ectologger.Logger) *AlgoRatingRepository {
	return &AlgoRatingRepository{Repository: NewRepository(db, logger)}
}

// GetByCoderID loads the marathon AlgoRating row for a coder, or nil if
// the coder has never been rated.
func (r *AlgoRatingRepository) GetByCoderID(ctx context.Context, coderID int64) (*models.AlgoRating, error) {
	sb := database.NewSelectBuilder()
	sb.Select(
		"coder_id", "algo_rating_type_id", "rating", "vol", "num_ratings",
		"round_id", "highest_rating", "lowest_rating", "first_rated_round_id", "last_rated_round_id",
	).From(algoRatingTable).
		Where(sb.Equal("coder_id", coderID), sb.Equal("algo_rating_type_id", models.MarathonRatingType))

	query, args := sb.Build()
	var rating models.AlgoRating
	err := r.DB().GetContext(ctx, &rating, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load algo_rating for coder %d: %w", coderID, err)
	}
	return &rating, nil
}

// Upsert inserts a fresh row with num_ratings=1 if none exists, or
// increments/updates an existing row's rating, volatility, round
// pointers, and high/low extrema. It shares the transaction already
// open on ctx, so this write and the long_comp_result write that
// precedes it commit or roll back together.
func (r *AlgoRatingRepository) Upsert(ctx context.Context, coderID int64, roundID int64, newRating, newVol int) (*models.AlgoRating, error) {
	ctx, tx, err := r.DB().GetTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open transaction upserting algo_rating for coder %d: %w", coderID, err)
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(algoRatingTable).
		Cols(
			"coder_id", "algo_rating_type_id", "rating", "vol", "num_ratings",
			"round_id", "highest_rating", "lowest_rating", "first_rated_round_id", "last_rated_round_id",
		).
		Values(coderID, models.MarathonRatingType, newRating, newVol, 1, roundID, newRating, newRating, roundID, roundID).
		OnConflict([]string{"coder_id", "algo_rating_type_id"},
			database.Assign("rating", database.Excluded("rating")),
			database.Assign("vol", database.Excluded("vol")),
			database.Assign("num_ratings", algoRatingTable+".num_ratings + 1"),
			database.Assign("round_id", database.Excluded("round_id")),
			database.Assign("last_rated_round_id", database.Excluded("round_id")),
			database.Assign("highest_rating", fmt.Sprintf("GREATEST(%s.highest_rating, %s)", algoRatingTable, database.Excluded("rating"))),
			database.Assign("lowest_rating", fmt.Sprintf("LEAST(%s.lowest_rating, %s)", algoRatingTable, database.Excluded("rating"))),
		).
		Returning(
			"coder_id", "algo_rating_type_id", "rating", "vol", "num_ratings",
			"round_id", "highest_rating", "lowest_rating", "first_rated_round_id", "last_rated_round_id",
		)

	query, args := ib.Build()
	var rating models.AlgoRating
	row := tx.QueryRowxContext(ctx, query, args...)
	if err := row.StructScan(&rating); err != nil {
		r.logger.WithContext(ctx).WithError(err).
			WithFields(map[string]any{"coder_id": coderID, "round_id": roundID}).
			Error("failed to upsert algo_rating")
		return nil, fmt.Errorf("failed to upsert algo_rating for coder %d: %w", coderID, err)
	}
	return &rating, nil
}
