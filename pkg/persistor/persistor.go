// Package persistor writes engine output back to long_comp_result and
// algo_rating, and flips round.rated_ind.
package persistor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/database"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/repositories"
)

// Persistor writes back one engine pass's results for a round.
type Persistor struct {
	db              database.DB
	rounds          repositories.RoundRepo
	longCompResults repositories.LongCompResultRepo
	algoRatings     repositories.AlgoRatingRepo
	logger          ectologger.Logger
}

// New creates a new Persistor.
func New(db database.DB, rounds repositories.RoundRepo, longCompResults repositories.LongCompResultRepo, algoRatings repositories.AlgoRatingRepo, logger ectologger.Logger) *Persistor {
	return &Persistor{db: db, rounds: rounds, longCompResults: longCompResults, algoRatings: algoRatings, logger: logger}
}

// Transact opens the round's single logical transaction and runs fn
// with it attached to the context. Every repository write made through
// ctx inside fn shares this transaction; it commits only if fn returns
// nil, and rolls back otherwise.
func (p *Persistor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	txCtx, tx, err := p.db.GetTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin round transaction: %w", err)
	}
	// Rollback is given the caller's ctx, not txCtx: on txCtx it would
	// treat this transaction as nested and leave it open.
	defer tx.Rollback(ctx)

	if err := fn(txCtx); err != nil {
		return err
	}

	if err := tx.Commit(txCtx); err != nil {
		return fmt.Errorf("failed to commit round transaction: %w", err)
	}
	return nil
}

// Persist writes back the engine output for one pass's worth of
// participants. It does not flip round.rated_ind; that happens once,
// after both passes, via MarkRoundRated.
func (p *Persistor) Persist(ctx context.Context, roundID int64, participants []models.Participant) error {
	for _, participant := range participants {
		if err := p.persistOne(ctx, roundID, participant); err != nil {
			return err
		}
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"round_id": roundID,
		"count":    len(participants),
	}).Infof("Persisted rating pass")
	return nil
}

func (p *Persistor) persistOne(ctx context.Context, roundID int64, participant models.Participant) error {
	// Step 1: re-read the snapshot before it's overwritten by the upsert below.
	existing, err := p.algoRatings.GetByCoderID(ctx, participant.CoderID)
	if err != nil {
		return fmt.Errorf("failed to snapshot algo_rating for coder %d: %w", participant.CoderID, err)
	}

	var oldRating, oldVol *int
	if existing != nil {
		oldRating = &existing.Rating
		oldVol = &existing.Vol
	}

	newRating := int(participant.NewRating)
	newVol := int(participant.NewVolatility)

	// Step 2: long_comp_result snapshot + result.
	if err := p.longCompResults.ApplyRating(ctx, roundID, participant.CoderID, oldRating, oldVol, newRating, newVol); err != nil {
		return fmt.Errorf("failed to apply rating for coder %d: %w", participant.CoderID, err)
	}

	// Step 3: algo_rating upsert. The persistor is the sole incrementer
	// of num_ratings. The engine's own count is computational only and
	// never reaches here.
	if _, err := p.algoRatings.Upsert(ctx, participant.CoderID, roundID, newRating, newVol); err != nil {
		return fmt.Errorf("failed to upsert algo_rating for coder %d: %w", participant.CoderID, err)
	}

	return nil
}

// MarkRoundRated flips round.rated_ind to 1. Called once, after both
// engine passes have been persisted.
func (p *Persistor) MarkRoundRated(ctx context.Context, roundID int64) error {
	if err := p.rounds.MarkRated(ctx, roundID); err != nil {
		return fmt.Errorf("failed to mark round %d rated: %w", roundID, err)
	}
	return nil
}
