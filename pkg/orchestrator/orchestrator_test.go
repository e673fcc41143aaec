package orchestrator

import (
	"context"
	"fmt"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/kafka"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
	"github.com/topcoder-platform/marathon-rating-processor/pkg/repositories"
)

type fakeRoundRepo struct {
	byContest map[int64]*models.Round
	rated     []int64
}

func (f *fakeRoundRepo) GetByID(ctx context.Context, roundID int64) (*models.Round, error) {
	return nil, nil
}

func (f *fakeRoundRepo) GetByContestID(ctx context.Context, contestID int64) (*models.Round, error) {
	if round, ok := f.byContest[contestID]; ok {
		return round, nil
	}
	return nil, repositories.NotFound("round for contest %d not found", contestID)
}

func (f *fakeRoundRepo) MarkRated(ctx context.Context, roundID int64) error {
	f.rated = append(f.rated, roundID)
	return nil
}

type fakeReconciler struct {
	calls int
}

func (f *fakeReconciler) Reconcile(ctx context.Context, roundID int64, challengeID string) {
	f.calls++
}

type fakeLoader struct {
	slates map[int64][]models.Participant
}

func (f *fakeLoader) Load(ctx context.Context, roundID int64) ([]models.Participant, error) {
	return f.slates[roundID], nil
}

type fakePersistor struct {
	persisted [][]models.Participant
	marked    []int64
}

func (f *fakePersistor) Persist(ctx context.Context, roundID int64, participants []models.Participant) error {
	f.persisted = append(f.persisted, participants)
	return nil
}

func (f *fakePersistor) MarkRoundRated(ctx context.Context, roundID int64) error {
	f.marked = append(f.marked, roundID)
	return nil
}

func (f *fakePersistor) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

type fakeNotifier struct {
	published []kafka.RoundRatedEvent
	err       error
}

func (f *fakeNotifier) PublishRoundRated(ctx context.Context, event kafka.RoundRatedEvent) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, event)
	return nil
}

func TestCalculate_ResolvesRoundFromContestID(t *testing.T) {
	rounds := &fakeRoundRepo{byContest: map[int64]*models.Round{55: {RoundID: 900}}}
	rec := &fakeReconciler{}
	loader := &fakeLoader{slates: map[int64][]models.Participant{
		900: {{CoderID: 1, Score: 90, Rating: 1500, Volatility: 400, NumRatings: 3}, {CoderID: 2, Score: 80, Rating: 1400, Volatility: 400, NumRatings: 2}},
	}}
	persistor := &fakePersistor{}
	notifier := &fakeNotifier{}

	o := New(rounds, rec, loader, persistor, notifier, newTestLogger())
	result, err := o.Calculate(context.Background(), "chal-1", 55)
	require.NoError(t, err)
	assert.Equal(t, Success, result)
	assert.Equal(t, []int64{900}, persistor.marked)
	require.Len(t, notifier.published, 1)
	assert.Equal(t, int64(900), notifier.published[0].RoundID)
	assert.Equal(t, "chal-1", notifier.published[0].ChallengeID)
	assert.Equal(t, 2, notifier.published[0].RatedCount)
	assert.NotEmpty(t, notifier.published[0].EventID)
}

func TestCalculate_FallsBackToLegacyIDAsRoundID(t *testing.T) {
	rounds := &fakeRoundRepo{byContest: map[int64]*models.Round{}}
	rec := &fakeReconciler{}
	loader := &fakeLoader{slates: map[int64][]models.Participant{
		42: {{CoderID: 1, Score: 90, Rating: 1500, Volatility: 400, NumRatings: 3}, {CoderID: 2, Score: 80, Rating: 1400, Volatility: 400, NumRatings: 2}},
	}}
	persistor := &fakePersistor{}

	o := New(rounds, rec, loader, persistor, &fakeNotifier{}, newTestLogger())
	result, err := o.Calculate(context.Background(), "chal-1", 42)
	require.NoError(t, err)
	assert.Equal(t, Success, result)
	assert.Equal(t, []int64{42}, persistor.marked)
}

func TestCalculateByRound_EmptySlateIsAlreadyCalculated(t *testing.T) {
	rounds := &fakeRoundRepo{}
	rec := &fakeReconciler{}
	loader := &fakeLoader{slates: map[int64][]models.Participant{}}
	persistor := &fakePersistor{}

	o := New(rounds, rec, loader, persistor, &fakeNotifier{}, newTestLogger())
	result, err := o.CalculateByRound(context.Background(), 1, "chal-1")
	require.NoError(t, err)
	assert.Equal(t, AlreadyCalculated, result)
	assert.Empty(t, persistor.marked)
	assert.Equal(t, 1, rec.calls)
}

func TestCalculateByRound_SplitsProvisionalAndNonProvisionalPasses(t *testing.T) {
	rounds := &fakeRoundRepo{}
	rec := &fakeReconciler{}
	loader := &fakeLoader{slates: map[int64][]models.Participant{
		1: {
			{CoderID: 1, Score: 95, Rating: 1500, Volatility: 400, NumRatings: 5},
			{CoderID: 2, Score: 90, Rating: 0, Volatility: 0, NumRatings: 0},
			{CoderID: 3, Score: 40, Rating: 1300, Volatility: 380, NumRatings: 2},
		},
	}}
	persistor := &fakePersistor{}
	notifier := &fakeNotifier{err: fmt.Errorf("broker unreachable")}

	o := New(rounds, rec, loader, persistor, notifier, newTestLogger())
	result, err := o.CalculateByRound(context.Background(), 1, "chal-1")
	require.NoError(t, err, "a publish failure must not fail the calculation")
	assert.Equal(t, Success, result)

	require.Len(t, persistor.persisted, 2)

	// Provisional pass: only the first-timer (coder 2).
	require.Len(t, persistor.persisted[0], 1)
	assert.Equal(t, int64(2), persistor.persisted[0][0].CoderID)

	// Non-provisional pass: the two experienced coders.
	require.Len(t, persistor.persisted[1], 2)
	ids := []int64{persistor.persisted[1][0].CoderID, persistor.persisted[1][1].CoderID}
	assert.ElementsMatch(t, []int64{1, 3}, ids)

	assert.Equal(t, []int64{1}, persistor.marked)
}

func TestCalculateByRound_AllFirstTimersSkipsNonProvisionalPersist(t *testing.T) {
	rounds := &fakeRoundRepo{}
	rec := &fakeReconciler{}
	loader := &fakeLoader{slates: map[int64][]models.Participant{
		1: {
			{CoderID: 1, Score: 95, NumRatings: 0},
			{CoderID: 2, Score: 80, NumRatings: 0},
		},
	}}
	persistor := &fakePersistor{}

	o := New(rounds, rec, loader, persistor, &fakeNotifier{}, newTestLogger())
	result, err := o.CalculateByRound(context.Background(), 1, "chal-1")
	require.NoError(t, err)
	assert.Equal(t, Success, result)
	require.Len(t, persistor.persisted, 1)
	assert.Len(t, persistor.persisted[0], 2)
}
