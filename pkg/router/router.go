// Package router classifies inbound Kafka messages by topic and
// payload shape and decides which orchestrator action to invoke.
// It never touches the database directly.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/challengeapi"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/kafka"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/orchestrator"
)

// ErrMalformedPayload and ErrInvalidPayload are returned instead of
// nil on a poison message, so the caller can dead-letter it instead
// of silently dropping it. Neither is retried: the consumer commits
// the offset regardless of the handler's return value.
var (
	ErrMalformedPayload = errors.New("payload is not valid JSON")
	ErrInvalidPayload   = errors.New("payload failed required-field validation")
)

// reviewPhase and endState are the autopilot phase/state values that
// gate a calculation (matched case-insensitively).
const (
	reviewPhase = "review"
	endState    = "end"
)

// ChallengeLookup resolves challenge details by legacy contest id.
type ChallengeLookup interface {
	GetChallengeByLegacyID(ctx context.Context, legacyID int64) (*challengeapi.Challenge, error)
}

// Calculator is the subset of the orchestrator the router invokes.
type Calculator interface {
	Calculate(ctx context.Context, challengeID string, legacyID int64) (orchestrator.Result, error)
}

// LegacyHandoff carries the two stubbed data-warehouse operations that
// exist only to preserve the rating-service event's ordering contract.
type LegacyHandoff interface {
	LoadCoders(ctx context.Context, roundID int64) error
	LoadRatings(ctx context.Context, roundID int64) error
}

// Router dispatches decoded envelopes to the orchestrator or the
// legacy handoff stubs.
type Router struct {
	challenges ChallengeLookup
	calculator Calculator
	legacy     LegacyHandoff
	validate   *validator.Validate
	logger     ectologger.Logger
}

// New creates a Router.
func New(challenges ChallengeLookup, calculator Calculator, legacy LegacyHandoff, logger ectologger.Logger) *Router {
	return &Router{
		challenges: challenges,
		calculator: calculator,
		legacy:     legacy,
		validate:   validator.New(),
		logger:     logger,
	}
}

// RouteAutopilotNotification handles a Topic A message.
//
// Malformed JSON or a failed required-field validation is logged and
// dead-lettered: it cannot succeed on replay, so the caller commits
// the offset, but the payload is preserved on the dead-letter topic
// rather than dropped with no trace.
func (r *Router) RouteAutopilotNotification(ctx context.Context, payload []byte) error {
	var notification kafka.AutopilotNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warnf("Dead-lettering malformed autopilot notification")
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := r.validate.Struct(notification); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warnf("Dead-lettering autopilot notification missing required fields")
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if !strings.EqualFold(notification.PhaseTypeName, reviewPhase) || !strings.EqualFold(notification.State, endState) {
		return nil
	}

	challenge, err := r.challenges.GetChallengeByLegacyID(ctx, notification.ProjectID)
	if err != nil {
		// An unresolvable challenge is a fatal input to calculate. The
		// round is skipped, not the whole message-processing pipeline.
		r.logger.WithContext(ctx).WithError(err).Warnf("Dropping notification for unresolvable challenge, projectId=%d", notification.ProjectID)
		return nil
	}
	if challenge == nil {
		r.logger.WithContext(ctx).Warnf("No challenge found for legacyId=%d, dropping notification", notification.ProjectID)
		return nil
	}
	if !challenge.IsMarathonMatch() {
		return nil
	}

	if _, err := r.calculator.Calculate(ctx, challenge.ID, challenge.LegacyID); err != nil {
		return fmt.Errorf("failed to calculate ratings for challenge %s: %w", challenge.ID, err)
	}
	return nil
}

// RouteRatingServiceEvent handles a Topic B message.
func (r *Router) RouteRatingServiceEvent(ctx context.Context, payload []byte) error {
	var event kafka.RatingServiceEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warnf("Dead-lettering malformed rating-service event")
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := r.validate.Struct(event); err != nil {
		r.logger.WithContext(ctx).WithError(err).Warnf("Dead-lettering rating-service event missing required fields")
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if event.Originator != kafka.RatingServiceOriginator {
		return nil
	}

	switch {
	case event.Event == kafka.EventRatingsCalculation && event.Status == kafka.StatusSuccess:
		if err := r.legacy.LoadCoders(ctx, event.RoundID); err != nil {
			return fmt.Errorf("failed to load coders for round %d: %w", event.RoundID, err)
		}
	case event.Event == kafka.EventLoadCoders && event.Status == kafka.StatusSuccess:
		if err := r.legacy.LoadRatings(ctx, event.RoundID); err != nil {
			return fmt.Errorf("failed to load ratings for round %d: %w", event.RoundID, err)
		}
	}

	return nil
}
