package router

import (
	"context"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/challengeapi"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/orchestrator"
)

type fakeChallengeLookup struct {
	byLegacyID map[int64]*challengeapi.Challenge
	err        error
}

func (f *fakeChallengeLookup) GetChallengeByLegacyID(ctx context.Context, legacyID int64) (*challengeapi.Challenge, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byLegacyID[legacyID], nil
}

type fakeCalculator struct {
	calls []struct {
		challengeID string
		legacyID    int64
	}
}

func (f *fakeCalculator) Calculate(ctx context.Context, challengeID string, legacyID int64) (orchestrator.Result, error) {
	f.calls = append(f.calls, struct {
		challengeID string
		legacyID    int64
	}{challengeID, legacyID})
	return orchestrator.Success, nil
}

type fakeLegacyHandoff struct {
	loadCodersCalls  []int64
	loadRatingsCalls []int64
}

func (f *fakeLegacyHandoff) LoadCoders(ctx context.Context, roundID int64) error {
	f.loadCodersCalls = append(f.loadCodersCalls, roundID)
	return nil
}

func (f *fakeLegacyHandoff) LoadRatings(ctx context.Context, roundID int64) error {
	f.loadRatingsCalls = append(f.loadRatingsCalls, roundID)
	return nil
}

func newTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func marathonChallenge(id string, legacyID int64) *challengeapi.Challenge {
	c := &challengeapi.Challenge{ID: id, LegacyID: legacyID}
	c.Legacy.SubTrack = "Marathon_Match"
	return c
}

func TestRouteAutopilotNotification_ReviewEndTriggersCalculate(t *testing.T) {
	lookup := &fakeChallengeLookup{byLegacyID: map[int64]*challengeapi.Challenge{
		500: marathonChallenge("chal-1", 500),
	}}
	calc := &fakeCalculator{}
	r := New(lookup, calc, &fakeLegacyHandoff{}, newTestLogger())

	err := r.RouteAutopilotNotification(context.Background(), []byte(`{"phaseTypeName":"REVIEW","state":"End","projectId":500}`))
	require.NoError(t, err)
	require.Len(t, calc.calls, 1)
	assert.Equal(t, "chal-1", calc.calls[0].challengeID)
	assert.Equal(t, int64(500), calc.calls[0].legacyID)
}

func TestRouteAutopilotNotification_IgnoresOtherPhasesAndStates(t *testing.T) {
	calc := &fakeCalculator{}
	r := New(&fakeChallengeLookup{}, calc, &fakeLegacyHandoff{}, newTestLogger())

	err := r.RouteAutopilotNotification(context.Background(), []byte(`{"phaseTypeName":"registration","state":"end","projectId":1}`))
	require.NoError(t, err)
	assert.Empty(t, calc.calls)
}

func TestRouteAutopilotNotification_IgnoresNonMarathonChallenge(t *testing.T) {
	lookup := &fakeChallengeLookup{byLegacyID: map[int64]*challengeapi.Challenge{
		500: {ID: "chal-1", LegacyID: 500},
	}}
	calc := &fakeCalculator{}
	r := New(lookup, calc, &fakeLegacyHandoff{}, newTestLogger())

	err := r.RouteAutopilotNotification(context.Background(), []byte(`{"phaseTypeName":"review","state":"end","projectId":500}`))
	require.NoError(t, err)
	assert.Empty(t, calc.calls)
}

func TestRouteAutopilotNotification_DeadLettersMalformedJSON(t *testing.T) {
	calc := &fakeCalculator{}
	r := New(&fakeChallengeLookup{}, calc, &fakeLegacyHandoff{}, newTestLogger())

	err := r.RouteAutopilotNotification(context.Background(), []byte(`not json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Empty(t, calc.calls)
}

func TestRouteAutopilotNotification_DeadLettersMissingRequiredFields(t *testing.T) {
	calc := &fakeCalculator{}
	r := New(&fakeChallengeLookup{}, calc, &fakeLegacyHandoff{}, newTestLogger())

	err := r.RouteAutopilotNotification(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, calc.calls)
}

func TestRouteAutopilotNotification_DropsUnresolvableChallenge(t *testing.T) {
	lookup := &fakeChallengeLookup{err: errors.New("v5 unreachable")}
	calc := &fakeCalculator{}
	r := New(lookup, calc, &fakeLegacyHandoff{}, newTestLogger())

	err := r.RouteAutopilotNotification(context.Background(), []byte(`{"phaseTypeName":"review","state":"end","projectId":1}`))
	require.NoError(t, err)
	assert.Empty(t, calc.calls)
}

func TestRouteAutopilotNotification_PropagatesCalculateError(t *testing.T) {
	lookup := &fakeChallengeLookup{byLegacyID: map[int64]*challengeapi.Challenge{
		500: marathonChallenge("chal-1", 500),
	}}
	r := New(lookup, failingCalculator{}, &fakeLegacyHandoff{}, newTestLogger())

	err := r.RouteAutopilotNotification(context.Background(), []byte(`{"phaseTypeName":"review","state":"end","projectId":500}`))
	assert.Error(t, err)
}

type failingCalculator struct{}

func (failingCalculator) Calculate(ctx context.Context, challengeID string, legacyID int64) (orchestrator.Result, error) {
	return "", errors.New("db unavailable")
}

func TestRouteRatingServiceEvent_RatingsCalculationSuccessTriggersLoadCoders(t *testing.T) {
	legacy := &fakeLegacyHandoff{}
	r := New(&fakeChallengeLookup{}, &fakeCalculator{}, legacy, newTestLogger())

	err := r.RouteRatingServiceEvent(context.Background(), []byte(`{"originator":"rating.calculation.service","event":"RATINGS_CALCULATION","status":"SUCCESS","roundId":10}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, legacy.loadCodersCalls)
	assert.Empty(t, legacy.loadRatingsCalls)
}

func TestRouteRatingServiceEvent_LoadCodersSuccessTriggersLoadRatings(t *testing.T) {
	legacy := &fakeLegacyHandoff{}
	r := New(&fakeChallengeLookup{}, &fakeCalculator{}, legacy, newTestLogger())

	err := r.RouteRatingServiceEvent(context.Background(), []byte(`{"originator":"rating.calculation.service","event":"LOAD_CODERS","status":"SUCCESS","roundId":10}`))
	require.NoError(t, err)
	assert.Equal(t, []int64{10}, legacy.loadRatingsCalls)
	assert.Empty(t, legacy.loadCodersCalls)
}

func TestRouteRatingServiceEvent_IgnoresOtherOriginators(t *testing.T) {
	legacy := &fakeLegacyHandoff{}
	r := New(&fakeChallengeLookup{}, &fakeCalculator{}, legacy, newTestLogger())

	err := r.RouteRatingServiceEvent(context.Background(), []byte(`{"originator":"someone.else","event":"RATINGS_CALCULATION","status":"SUCCESS","roundId":10}`))
	require.NoError(t, err)
	assert.Empty(t, legacy.loadCodersCalls)
}

func TestRouteRatingServiceEvent_DeadLettersMalformedJSON(t *testing.T) {
	legacy := &fakeLegacyHandoff{}
	r := New(&fakeChallengeLookup{}, &fakeCalculator{}, legacy, newTestLogger())

	err := r.RouteRatingServiceEvent(context.Background(), []byte(`{not json`))
	assert.ErrorIs(t, err, ErrMalformedPayload)
	assert.Empty(t, legacy.loadCodersCalls)
}

func TestRouteRatingServiceEvent_DeadLettersMissingRequiredFields(t *testing.T) {
	legacy := &fakeLegacyHandoff{}
	r := New(&fakeChallengeLookup{}, &fakeCalculator{}, legacy, newTestLogger())

	err := r.RouteRatingServiceEvent(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, legacy.loadCodersCalls)
}
