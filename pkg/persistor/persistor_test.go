package persistor

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

type fakeRoundRepo struct {
	rated map[int64]bool
}

func (f *fakeRoundRepo) GetByID(ctx context.Context, roundID int64) (*models.Round, error) {
	return nil, nil
}

func (f *fakeRoundRepo) GetByContestID(ctx context.Context, contestID int64) (*models.Round, error) {
	return nil, nil
}

func (f *fakeRoundRepo) MarkRated(ctx context.Context, roundID int64) error {
	if f.rated == nil {
		f.rated = map[int64]bool{}
	}
	f.rated[roundID] = true
	return nil
}

type appliedRating struct {
	roundID, coderID int64
	oldRating, oldVol *int
	newRating, newVol int
}

type fakeLongCompResultRepo struct {
	applied []appliedRating
}

func (f *fakeLongCompResultRepo) ListUnratedAttendees(ctx context.Context, roundID int64) ([]models.LongCompResult, error) {
	return nil, nil
}

func (f *fakeLongCompResultRepo) MarkAttended(ctx context.Context, roundID, coderID int64) error {
	return nil
}

func (f *fakeLongCompResultRepo) ApplyRating(ctx context.Context, roundID, coderID int64, oldRating, oldVol *int, newRating, newVol int) error {
	f.applied = append(f.applied, appliedRating{roundID, coderID, oldRating, oldVol, newRating, newVol})
	return nil
}

type fakeAlgoRatingRepo struct {
	byCoder    map[int64]*models.AlgoRating
	upsertCnt  map[int64]int
}

func (f *fakeAlgoRatingRepo) GetByCoderID(ctx context.Context, coderID int64) (*models.AlgoRating, error) {
	return f.byCoder[coderID], nil
}

func (f *fakeAlgoRatingRepo) Upsert(ctx context.Context, coderID, roundID int64, newRating, newVol int) (*models.AlgoRating, error) {
	if f.upsertCnt == nil {
		f.upsertCnt = map[int64]int{}
	}
	f.upsertCnt[coderID]++
	r := &models.AlgoRating{CoderID: coderID, RoundID: roundID, Rating: newRating, Vol: newVol}
	return r, nil
}

func newTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestPersist_FirstTimerHasNilOldValues(t *testing.T) {
	lcr := &fakeLongCompResultRepo{}
	ar := &fakeAlgoRatingRepo{byCoder: map[int64]*models.AlgoRating{}}
	p := New(nil, &fakeRoundRepo{}, lcr, ar, newTestLogger())

	participants := []models.Participant{
		{CoderID: 100, NewRating: 1200, NewVolatility: 385},
	}
	require.NoError(t, p.Persist(context.Background(), 50, participants))

	require.Len(t, lcr.applied, 1)
	assert.Nil(t, lcr.applied[0].oldRating)
	assert.Nil(t, lcr.applied[0].oldVol)
	assert.Equal(t, 1200, lcr.applied[0].newRating)
	assert.Equal(t, 1, ar.upsertCnt[100])
}

func TestPersist_ExistingCoderCarriesOldValues(t *testing.T) {
	lcr := &fakeLongCompResultRepo{}
	ar := &fakeAlgoRatingRepo{byCoder: map[int64]*models.AlgoRating{
		200: {CoderID: 200, Rating: 1600, Vol: 300},
	}}
	p := New(nil, &fakeRoundRepo{}, lcr, ar, newTestLogger())

	participants := []models.Participant{
		{CoderID: 200, NewRating: 1620, NewVolatility: 295},
	}
	require.NoError(t, p.Persist(context.Background(), 50, participants))

	require.Len(t, lcr.applied, 1)
	require.NotNil(t, lcr.applied[0].oldRating)
	require.NotNil(t, lcr.applied[0].oldVol)
	assert.Equal(t, 1600, *lcr.applied[0].oldRating)
	assert.Equal(t, 300, *lcr.applied[0].oldVol)
	assert.Equal(t, 1620, lcr.applied[0].newRating)
}

func TestPersist_MultipleParticipants(t *testing.T) {
	lcr := &fakeLongCompResultRepo{}
	ar := &fakeAlgoRatingRepo{byCoder: map[int64]*models.AlgoRating{}}
	p := New(nil, &fakeRoundRepo{}, lcr, ar, newTestLogger())

	participants := []models.Participant{
		{CoderID: 1, NewRating: 1500, NewVolatility: 400},
		{CoderID: 2, NewRating: 1400, NewVolatility: 420},
	}
	require.NoError(t, p.Persist(context.Background(), 9, participants))
	assert.Len(t, lcr.applied, 2)
	assert.Equal(t, 1, ar.upsertCnt[1])
	assert.Equal(t, 1, ar.upsertCnt[2])
}

func TestMarkRoundRated(t *testing.T) {
	rr := &fakeRoundRepo{}
	p := New(nil, rr, &fakeLongCompResultRepo{}, &fakeAlgoRatingRepo{}, newTestLogger())
	require.NoError(t, p.MarkRoundRated(context.Background(), 42))
	assert.True(t, rr.rated[42])
}
