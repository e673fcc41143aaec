package models

// Round is a single rated marathon contest instance.
type Round struct {
	RoundID   int64 `db:"round_id" json:"round_id"`
	RatedInd  int   `db:"rated_ind" json:"rated_ind"`
	ContestID *int64 `db:"contest_id" json:"contest_id,omitempty"`
}

// TableName returns the database table name.
func (Round) TableName() string {
	return "round"
}

// IsRated reports whether the round has already been rated.
func (r Round) IsRated() bool {
	return r.RatedInd == 1
}
