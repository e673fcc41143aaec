// Package orchestrator composes the round-calculation transaction:
// resolve round, reconcile attendance, run the two-pass engine, and
// persist each pass. It is the only component that mixes I/O and
// compute.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/kafka"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/ratingengine"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/repositories"
)

// Result reports the outcome of a calculate invocation.
type Result string

const (
	// AlreadyCalculated is returned when the round's unrated slate is empty.
	AlreadyCalculated Result = "ALREADY_CALCULATED"
	// Success is returned once both engine passes have been persisted.
	Success Result = "SUCCESS"
)

// Reconciler is the subset of the attendance reconciler the
// orchestrator depends on.
type Reconciler interface {
	Reconcile(ctx context.Context, roundID int64, challengeID string)
}

// Loader is the subset of the participant loader the orchestrator depends on.
type Loader interface {
	Load(ctx context.Context, roundID int64) ([]models.Participant, error)
}

// Persistor is the subset of the rating persistor the orchestrator depends on.
type Persistor interface {
	Persist(ctx context.Context, roundID int64, participants []models.Participant) error
	MarkRoundRated(ctx context.Context, roundID int64) error
	Transact(ctx context.Context, fn func(ctx context.Context) error) error
}

// RoundRatedPublisher is the subset of the Kafka producer the
// orchestrator uses for the supplemented outbound notification.
type RoundRatedPublisher interface {
	PublishRoundRated(ctx context.Context, event kafka.RoundRatedEvent) error
}

// Orchestrator drives one round's calculation end to end.
type Orchestrator struct {
	rounds     repositories.RoundRepo
	reconciler Reconciler
	loader     Loader
	persistor  Persistor
	notifier   RoundRatedPublisher
	logger     ectologger.Logger
}

// New creates an Orchestrator.
func New(rounds repositories.RoundRepo, reconciler Reconciler, loader Loader, persistor Persistor, notifier RoundRatedPublisher, logger ectologger.Logger) *Orchestrator {
	return &Orchestrator{rounds: rounds, reconciler: reconciler, loader: loader, persistor: persistor, notifier: notifier, logger: logger}
}

// Calculate is the autopilot entry point. It resolves roundID from
// legacyID via Round.contest_id, falling back to legacyID itself when
// no such round exists, which preserves legacy behaviour.
func (o *Orchestrator) Calculate(ctx context.Context, challengeID string, legacyID int64) (Result, error) {
	roundID := legacyID

	round, err := o.rounds.GetByContestID(ctx, legacyID)
	if err != nil && !repositories.IsNotFound(err) {
		return "", fmt.Errorf("failed to resolve round for contest %d: %w", legacyID, err)
	}
	if round != nil {
		roundID = round.RoundID
	}

	return o.CalculateByRound(ctx, roundID, challengeID)
}

// CalculateByRound runs the calculation transaction for a known
// roundID, skipping the contest-id resolution step.
func (o *Orchestrator) CalculateByRound(ctx context.Context, roundID int64, challengeID string) (Result, error) {
	o.reconciler.Reconcile(ctx, roundID, challengeID)

	slate, err := o.loader.Load(ctx, roundID)
	if err != nil {
		return "", fmt.Errorf("failed to load unrated slate for round %d: %w", roundID, err)
	}
	if len(slate) == 0 {
		o.logger.WithContext(ctx).Infof("Round %d has no unrated slate, already calculated", roundID)
		return AlreadyCalculated, nil
	}

	err = o.persistor.Transact(ctx, func(ctx context.Context) error {
		if err := o.runProvisionalPass(ctx, roundID, slate); err != nil {
			return err
		}
		if err := o.runNonProvisionalPass(ctx, roundID, slate); err != nil {
			return err
		}
		if err := o.persistor.MarkRoundRated(ctx, roundID); err != nil {
			return fmt.Errorf("failed to mark round %d rated: %w", roundID, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	o.publishRoundRated(ctx, roundID, challengeID, len(slate))

	o.logger.WithContext(ctx).WithFields(map[string]any{
		"round_id": roundID,
		"count":    len(slate),
	}).Infof("Round calculation complete")

	return Success, nil
}

// publishRoundRated fires the supplemented round-rated notification.
// It never fails the calculation: a publish error is logged and dropped.
func (o *Orchestrator) publishRoundRated(ctx context.Context, roundID int64, challengeID string, ratedCount int) {
	if o.notifier == nil {
		return
	}
	event := kafka.RoundRatedEvent{
		EventID:     uuid.New().String(),
		RoundID:     roundID,
		ChallengeID: challengeID,
		RatedCount:  ratedCount,
	}
	if err := o.notifier.PublishRoundRated(ctx, event); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warnf("failed to publish round-rated notification for round %d", roundID)
	}
}

// runProvisionalPass runs the engine over the full field and persists
// only the entrants that were first-timers this round.
func (o *Orchestrator) runProvisionalPass(ctx context.Context, roundID int64, slate []models.Participant) error {
	rated := ratingengine.Run(slate)

	firstTimers := make([]models.Participant, 0, len(rated))
	for _, p := range rated {
		if p.NumRatings == 1 {
			firstTimers = append(firstTimers, p)
		}
	}
	if len(firstTimers) == 0 {
		return nil
	}

	if err := o.persistor.Persist(ctx, roundID, firstTimers); err != nil {
		return fmt.Errorf("failed to persist provisional pass for round %d: %w", roundID, err)
	}
	return nil
}

// runNonProvisionalPass runs the engine over only the experienced
// subfield and persists their results.
func (o *Orchestrator) runNonProvisionalPass(ctx context.Context, roundID int64, slate []models.Participant) error {
	experienced := make([]models.Participant, 0, len(slate))
	for _, p := range slate {
		if !p.IsFirstTimer() {
			experienced = append(experienced, p)
		}
	}
	if len(experienced) == 0 {
		return nil
	}

	rated := ratingengine.Run(experienced)
	if err := o.persistor.Persist(ctx, roundID, rated); err != nil {
		return fmt.Errorf("failed to persist non-provisional pass for round %d: %w", roundID, err)
	}
	return nil
}
