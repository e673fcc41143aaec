// Package ratingengine implements the Qubits rating algorithm: a
// tie-aware, volatility-weighted update of a participant's rating
// after a marathon round. It is a pure function of its input slate:
// no I/O, no shared state, safe to run on any worker.
package ratingengine

import (
	"math"
	"sort"

	"github.com/topcoder-platform/marathon-rating-processor/pkg/models"
)

const (
	// InitialWeight is the weight attributed to a participant's very
	// first rated round.
	InitialWeight = 0.60
	// FinalWeight is the weight floor a long-tenured participant's
	// rating update converges to.
	FinalWeight = 0.18
	// FirstVolatility is the volatility assigned the first time a
	// participant is rated.
	FirstVolatility = 385

	firstTimerRating     = 1200
	firstTimerVolatility = 515
)

// Run executes one pass of the Qubits algorithm over the given slate
// and returns a new slate with NewRating/NewVolatility populated and
// NumRatings incremented by one (computational only: see Persistor;
// the engine's count never gets written back by itself).
//
// The input slate is never mutated; Run always returns fresh values.
func Run(participants []models.Participant) []models.Participant {
	n := len(participants)
	if n == 0 {
		return nil
	}

	out := make([]models.Participant, n)
	for i, p := range participants {
		out[i] = p.Clone()
		if out[i].IsFirstTimer() {
			out[i].Rating = firstTimerRating
			out[i].Volatility = firstTimerVolatility
		}
	}

	if n == 1 {
		out[0].NewRating = out[0].Rating
		out[0].NewVolatility = out[0].Volatility
		out[0].NumRatings++
		return out
	}

	rave := meanRating(out)
	cf := competitionFactor(out, rave, n)

	computeExpected(out, n)
	computeActual(out, n)

	for i := range out {
		updateOne(&out[i], cf)
	}

	return out
}

func meanRating(participants []models.Participant) float64 {
	sum := 0.0
	for _, p := range participants {
		sum += p.Rating
	}
	return sum / float64(len(participants))
}

// competitionFactor computes cf = sqrt(vtemp/n + rtemp/(n-1)).
func competitionFactor(participants []models.Participant, rave float64, n int) float64 {
	vtemp := 0.0
	rtemp := 0.0
	for _, p := range participants {
		vtemp += p.Volatility * p.Volatility
		d := p.Rating - rave
		rtemp += d * d
	}
	return math.Sqrt(vtemp/float64(n) + rtemp/float64(n-1))
}

// computeExpected fills ExpectedRank/ExpectedPerformance.
func computeExpected(participants []models.Participant, n int) {
	for i := range participants {
		sum := 0.0
		for j := range participants {
			sum += probOfWin(participants[j].Rating, participants[j].Volatility, participants[i].Rating, participants[i].Volatility)
		}
		expectedRank := 0.5 + sum
		participants[i].ExpectedRank = expectedRank
		participants[i].ExpectedPerformance = -probit((expectedRank - 0.5) / float64(n))
	}
}

// computeActual fills ActualRank/ActualPerformance in descending score
// order, ties sharing the midpoint of their occupied rank span.
func computeActual(participants []models.Participant, n int) {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return participants[order[a]].Score > participants[order[b]].Score
	})

	i := 0
	for i < n {
		score := participants[order[i]].Score
		k := 1
		for i+k < n && participants[order[i+k]].Score == score {
			k++
		}

		actualRank := float64(i) + 0.5 + float64(k)/2
		actualPerformance := -probit((float64(i) + float64(k)/2) / float64(n))

		for m := 0; m < k; m++ {
			idx := order[i+m]
			participants[idx].ActualRank = actualRank
			participants[idx].ActualPerformance = actualPerformance
		}

		i += k
	}
}

// updateOne applies the rating/volatility update to a single
// participant in place.
func updateOne(p *models.Participant, cf float64) {
	diff := p.ActualPerformance - p.ExpectedPerformance
	performedAs := p.Rating + diff*cf

	wRaw := (InitialWeight-FinalWeight)/float64(p.NumRatings+1) + FinalWeight
	w := 1/(1-wRaw) - 1

	switch {
	case p.Rating >= 2000 && p.Rating < 2500:
		w *= 4.5 / 5
	case p.Rating >= 2500:
		w *= 4.0 / 5
	}

	newRating := (p.Rating + w*performedAs) / (1 + w)

	deltaCap := 150 + 1500/(2+float64(p.NumRatings))
	newRating = clamp(newRating, p.Rating-deltaCap, p.Rating+deltaCap)
	if newRating < 1 {
		newRating = 1
	}
	newRating = math.Round(newRating)

	var newVolatility float64
	if p.NumRatings > 0 {
		newVolatility = math.Round(math.Sqrt(p.Volatility*p.Volatility/(1+w) + (newRating-p.Rating)*(newRating-p.Rating)/w))
	} else {
		newVolatility = FirstVolatility
	}

	p.NewRating = newRating
	p.NewVolatility = newVolatility
	p.NumRatings++
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
