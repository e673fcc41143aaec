package models

// Participant is the in-memory unit the rating engine consumes and
// produces. It is materialised by the Loader, mutated by the Engine,
// and consumed by the Persistor; never persisted directly.
type Participant struct {
	CoderID    int64
	Rating     float64
	Volatility float64
	NumRatings int
	Score      float64

	// Transient computation fields, populated by the engine.
	ExpectedRank        float64
	ExpectedPerformance float64
	ActualRank          float64
	ActualPerformance   float64
	NewRating           float64
	NewVolatility       float64
}

// IsFirstTimer reports whether the participant has no prior marathon rating.
func (p Participant) IsFirstTimer() bool {
	return p.NumRatings == 0
}

// Clone returns a copy of the participant, so engine passes never share
// mutable state with the slate the orchestrator holds.
func (p Participant) Clone() Participant {
	return p
}
