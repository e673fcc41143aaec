// Package loader materialises the unrated slate for a round into
// Participants the rating engine can consume.
package loader

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/repositories"
)

// Loader reads the unrated slate for a round and seeds each
// participant with their current marathon rating tuple.
type Loader struct {
	longCompResults repositories.LongCompResultRepo
	algoRatings     repositories.AlgoRatingRepo
	logger          ectologger.Logger
}

// New creates a new Loader.
func New(longCompResults repositories.LongCompResultRepo, algoRatings repositories.AlgoRatingRepo, logger ectologger.Logger) *Loader {
	return &Loader{longCompResults: longCompResults, algoRatings: algoRatings, logger: logger}
}

// Load returns the unrated, attending slate for roundID as Participants,
// ordered by system_point_total descending. Coders with no prior
// AlgoRating are seeded with (0, 0, 0); the engine's first-timer
// normalisation takes it from there.
func (l *Loader) Load(ctx context.Context, roundID int64) ([]models.Participant, error) {
	rows, err := l.longCompResults.ListUnratedAttendees(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to list unrated attendees for round %d: %w", roundID, err)
	}

	participants := make([]models.Participant, 0, len(rows))
	for _, row := range rows {
		p := models.Participant{
			CoderID: row.CoderID,
			Score:   row.SystemPointTotal,
		}

		rating, err := l.algoRatings.GetByCoderID(ctx, row.CoderID)
		if err != nil {
			return nil, fmt.Errorf("failed to load algo_rating for coder %d: %w", row.CoderID, err)
		}
		if rating != nil {
			p.Rating = float64(rating.Rating)
			p.Volatility = float64(rating.Vol)
			p.NumRatings = rating.NumRatings
		}

		participants = append(participants, p)
	}

	l.logger.WithContext(ctx).WithFields(map[string]any{
		"round_id": roundID,
		"count":    len(participants),
	}).Debugf("Loaded unrated slate")

	return participants, nil
}
