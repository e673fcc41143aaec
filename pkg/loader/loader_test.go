package loader

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

type fakeLongCompResultRepo struct {
	rows []models.LongCompResult
	err  error
}

func (f *fakeLongCompResultRepo) ListUnratedAttendees(ctx context.Context, roundID int64) ([]models.LongCompResult, error) {
	return f.rows, f.err
}

func (f *fakeLongCompResultRepo) MarkAttended(ctx context.Context, roundID, coderID int64) error {
	return nil
}

func (f *fakeLongCompResultRepo) ApplyRating(ctx context.Context, roundID, coderID int64, oldRating, oldVol *int, newRating, newVol int) error {
	return nil
}

type fakeAlgoRatingRepo struct {
	byCoder map[int64]*models.AlgoRating
	err     error
}

func (f *fakeAlgoRatingRepo) GetByCoderID(ctx context.Context, coderID int64) (*models.AlgoRating, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byCoder[coderID], nil
}

func (f *fakeAlgoRatingRepo) Upsert(ctx context.Context, coderID, roundID int64, newRating, newVol int) (*models.AlgoRating, error) {
	return nil, nil
}

func newTestLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

func TestLoad_SeedsExistingRatings(t *testing.T) {
	lcr := &fakeLongCompResultRepo{rows: []models.LongCompResult{
		{RoundID: 1, CoderID: 100, SystemPointTotal: 95.5},
		{RoundID: 1, CoderID: 200, SystemPointTotal: 80.0},
	}}
	ar := &fakeAlgoRatingRepo{byCoder: map[int64]*models.AlgoRating{
		100: {CoderID: 100, Rating: 1600, Vol: 300, NumRatings: 7},
	}}

	l := New(lcr, ar, newTestLogger())
	out, err := l.Load(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, int64(100), out[0].CoderID)
	assert.Equal(t, 1600.0, out[0].Rating)
	assert.Equal(t, 300.0, out[0].Volatility)
	assert.Equal(t, 7, out[0].NumRatings)
	assert.Equal(t, 95.5, out[0].Score)

	assert.Equal(t, int64(200), out[1].CoderID)
	assert.Equal(t, 0.0, out[1].Rating)
	assert.Equal(t, 0.0, out[1].Volatility)
	assert.Equal(t, 0, out[1].NumRatings)
	assert.True(t, out[1].IsFirstTimer())
}

func TestLoad_EmptySlate(t *testing.T) {
	lcr := &fakeLongCompResultRepo{rows: nil}
	ar := &fakeAlgoRatingRepo{byCoder: map[int64]*models.AlgoRating{}}

	l := New(lcr, ar, newTestLogger())
	out, err := l.Load(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLoad_PropagatesListError(t *testing.T) {
	lcr := &fakeLongCompResultRepo{err: assert.AnError}
	ar := &fakeAlgoRatingRepo{}

	l := New(lcr, ar, newTestLogger())
	_, err := l.Load(context.Background(), 1)
	assert.Error(t, err)
}

func TestLoad_PropagatesRatingLookupError(t *testing.T) {
	lcr := &fakeLongCompResultRepo{rows: []models.LongCompResult{
		{RoundID: 1, CoderID: 100, SystemPointTotal: 95.5},
	}}
	ar := &fakeAlgoRatingRepo{err: assert.AnError}

	l := New(lcr, ar, newTestLogger())
	_, err := l.Load(context.Background(), 1)
	assert.Error(t, err)
}
