package pick

import "time"

// Pick is one user's forecast for one match. At most one pick exists per
// (user, match) pair; a resubmission updates the existing row. Result
// fields stay nil until the owning match is settled.
type Pick struct {
	ID                 int64
	PublicID           string
	UserID             string
	MatchID            int64
	PredictedWinnerID  int64
	PredictedTeam1Maps *int
	PredictedTeam2Maps *int
	IsCorrect          *bool
	MapScoreCorrect    *bool
	PointsAwarded      *int
	AdjustedBy         *string
	AdjustmentReason   *string
	AdjustedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (p Pick) Resolved() bool {
	return p.PointsAwarded != nil
}

func (p Pick) HasMapScorePrediction() bool {
	return p.PredictedTeam1Maps != nil && p.PredictedTeam2Maps != nil
}

// Result is the settlement outcome written back onto a pick.
type Result struct {
	IsCorrect       bool
	MapScoreCorrect *bool
	PointsAwarded   int
}

// Adjustment is an admin override of one pick's result, audit-logged with
// the adjuster identity and a sanitized reason.
type Adjustment struct {
	PickID        int64
	IsCorrect     bool
	PointsAwarded int
	AdjustedBy    string
	Reason        string
	AdjustedAt    time.Time
}
