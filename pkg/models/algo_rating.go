package models

// MarathonRatingType is the fixed algo_rating_type_id for marathon matches.
const MarathonRatingType = 3

// AlgoRating is a participant's current rating for an algorithmic
// competition type. This core only ever reads/writes rows where
// AlgoRatingTypeID == MarathonRatingType.
type AlgoRating struct {
	CoderID           int64 `db:"coder_id" json:"coder_id"`
	AlgoRatingTypeID  int   `db:"algo_rating_type_id" json:"algo_rating_type_id"`
	Rating            int   `db:"rating" json:"rating"`
	Vol               int   `db:"vol" json:"vol"`
	NumRatings        int   `db:"num_ratings" json:"num_ratings"`
	RoundID           int64 `db:"round_id" json:"round_id"`
	HighestRating     int   `db:"highest_rating" json:"highest_rating"`
	LowestRating      int   `db:"lowest_rating" json:"lowest_rating"`
	FirstRatedRoundID int64 `db:"first_rated_round_id" json:"first_rated_round_id"`
	LastRatedRoundID  int64 `db:"last_rated_round_id" json:"last_rated_round_id"`
}

// TableName returns the database table name.
func (AlgoRating) TableName() string {
	return "algo_rating"
}
