package ratingengine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

func seedScenario() []models.Participant {
	return []models.Participant{
		{CoderID: 1001, Score: 95.50, Rating: 1500, Volatility: 400, NumRatings: 5},
		{CoderID: 1002, Score: 88.25, Rating: 1350, Volatility: 450, NumRatings: 3},
		{CoderID: 1003, Score: 72.00, Rating: 0, Volatility: 0, NumRatings: 0},
		{CoderID: 1004, Score: 60.75, Rating: 0, Volatility: 0, NumRatings: 0},
		{CoderID: 1005, Score: 45.00, Rating: 0, Volatility: 0, NumRatings: 0},
	}
}

func TestRun_EmptySlate(t *testing.T) {
	assert.Empty(t, Run(nil))
	assert.Empty(t, Run([]models.Participant{}))
}

func TestRun_SingleParticipantIsNoop(t *testing.T) {
	out := Run([]models.Participant{
		{CoderID: 1, Score: 10, Rating: 1700, Volatility: 300, NumRatings: 4},
	})
	require.Len(t, out, 1)
	assert.Equal(t, 1700.0, out[0].NewRating)
	assert.Equal(t, 300.0, out[0].NewVolatility)
}

func TestRun_FirstTimerInitialization(t *testing.T) {
	out := Run([]models.Participant{
		{CoderID: 1, Score: 50, NumRatings: 0},
		{CoderID: 2, Score: 40, NumRatings: 0},
		{CoderID: 3, Score: 30, NumRatings: 0},
	})
	require.Len(t, out, 3)
	for _, p := range out {
		assert.Equal(t, float64(FirstVolatility), p.NewVolatility)
	}
}

func TestRun_CapEnforcement(t *testing.T) {
	participants := seedScenario()
	out := Run(participants)
	require.Len(t, out, len(participants))

	for i, p := range out {
		oldNumRatings := participants[i].NumRatings
		oldRating := participants[i].Rating
		if participants[i].IsFirstTimer() {
			oldRating = firstTimerRating
		}
		deltaCap := 150 + 1500/(2+float64(oldNumRatings))
		assert.LessOrEqual(t, math.Abs(p.NewRating-oldRating), deltaCap)
	}
}

func TestRun_RatingFloor(t *testing.T) {
	out := Run([]models.Participant{
		{CoderID: 1, Score: 1, Rating: 1, Volatility: 50, NumRatings: 50},
		{CoderID: 2, Score: 2, Rating: 5000, Volatility: 50, NumRatings: 50},
	})
	for _, p := range out {
		assert.GreaterOrEqual(t, p.NewRating, 1.0)
	}
}

func TestRun_RankSumInvariant(t *testing.T) {
	participants := seedScenario()
	n := len(participants)

	out := make([]models.Participant, n)
	copy(out, participants)
	for i := range out {
		if out[i].IsFirstTimer() {
			out[i].Rating = firstTimerRating
			out[i].Volatility = firstTimerVolatility
		}
	}
	computeActual(out, n)

	sum := 0.0
	for _, p := range out {
		sum += p.ActualRank
	}
	assert.InDelta(t, float64(n*(n+1))/2, sum, 1e-9)
}

func TestRun_AllTiedScores(t *testing.T) {
	n := 4
	participants := make([]models.Participant, n)
	for i := range participants {
		participants[i] = models.Participant{CoderID: int64(i + 1), Score: 50, Rating: 1200, Volatility: 400, NumRatings: 2}
	}
	computeActual(participants, n)

	want := float64(n+1) / 2
	for _, p := range participants {
		assert.Equal(t, want, p.ActualRank)
	}
}

func TestRun_OrderingMatchesScoreOrdering(t *testing.T) {
	out := Run(seedScenario())
	require.Len(t, out, 5)

	byCoder := map[int64]float64{}
	for _, p := range out {
		byCoder[p.CoderID] = p.NewRating
	}

	// Scores: 1001 > 1002 > 1003 > 1004 > 1005.
	assert.GreaterOrEqual(t, byCoder[1001], byCoder[1002])
	assert.GreaterOrEqual(t, byCoder[1002], byCoder[1003])
	assert.GreaterOrEqual(t, byCoder[1003], byCoder[1004])
	assert.GreaterOrEqual(t, byCoder[1004], byCoder[1005])
}

func TestRun_NumRatingsIncrementsForComputation(t *testing.T) {
	out := Run(seedScenario())
	want := []int{6, 4, 1, 1, 1}
	got := make([]int, len(out))
	for i, p := range out {
		got[i] = p.NumRatings
	}
	assert.Equal(t, want, got)
}

func TestProbit_Monotonic(t *testing.T) {
	prev := probit(0.01)
	for _, p := range []float64{0.1, 0.25, 0.5, 0.75, 0.9, 0.99} {
		v := probit(p)
		assert.Greater(t, v, prev)
		prev = v
	}
}

func TestProbit_Symmetry(t *testing.T) {
	assert.InDelta(t, 0.0, probit(0.5), 1e-9)
	assert.InDelta(t, -probit(0.9), probit(0.1), 1e-6)
}

func TestProbit_Bounds(t *testing.T) {
	assert.True(t, math.IsInf(probit(0), -1))
	assert.True(t, math.IsInf(probit(1), 1))
}
