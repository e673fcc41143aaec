package models

// LongCompResult is one participant's outcome in one round.
type LongCompResult struct {
	RoundID          int64   `db:"round_id" json:"round_id"`
	CoderID          int64   `db:"coder_id" json:"coder_id"`
	Attended         string  `db:"attended" json:"attended"`
	SystemPointTotal float64 `db:"system_point_total" json:"system_point_total"`
	OldRating        *int    `db:"old_rating" json:"old_rating,omitempty"`
	OldVol           *int    `db:"old_vol" json:"old_vol,omitempty"`
	NewRating        *int    `db:"new_rating" json:"new_rating,omitempty"`
	NewVol           *int    `db:"new_vol" json:"new_vol,omitempty"`
	RatedInd         int     `db:"rated_ind" json:"rated_ind"`
}

// TableName returns the database table name.
func (LongCompResult) TableName() string {
	return "long_comp_result"
}

// Attended values. Attendance is semantically tri-state (Y/N/unknown),
// but only Y/y values (in either case) count as "attending" for loading
// and reconciliation purposes.
const (
	AttendedYes    = "Y"
	AttendedYesLow = "y"
	AttendedNo     = "N"
)

// DidAttend reports whether the row's attended flag counts as attending.
func (r LongCompResult) DidAttend() bool {
	return r.Attended == AttendedYes || r.Attended == AttendedYesLow
}

// IsUnrated reports whether this row has not yet received a rating update.
func (r LongCompResult) IsUnrated() bool {
	return r.NewRating == nil && r.NewVol == nil
}
