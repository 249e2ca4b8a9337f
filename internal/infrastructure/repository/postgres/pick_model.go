package postgres

import (
	"database/sql"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/pick"
)

type pickTableModel struct {
	ID                 int64          `db:"id"`
	PublicID           string         `db:"public_id"`
	UserID             string         `db:"user_id"`
	MatchID            int64          `db:"match_id"`
	PredictedWinnerID  int64          `db:"predicted_winner_id"`
	PredictedTeam1Maps sql.NullInt64  `db:"predicted_team1_maps"`
	PredictedTeam2Maps sql.NullInt64  `db:"predicted_team2_maps"`
	IsCorrect          sql.NullBool   `db:"is_correct"`
	MapScoreCorrect    sql.NullBool   `db:"map_score_correct"`
	PointsAwarded      sql.NullInt64  `db:"points_awarded"`
	AdjustedBy         sql.NullString `db:"adjusted_by"`
	AdjustmentReason   sql.NullString `db:"adjustment_reason"`
	AdjustedAt         *time.Time     `db:"adjusted_at"`
	CreatedAt          time.Time      `db:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

type pickInsertModel struct {
	PublicID           string        `db:"public_id"`
	UserID             string        `db:"user_id"`
	MatchID            int64         `db:"match_id"`
	PredictedWinnerID  int64         `db:"predicted_winner_id"`
	PredictedTeam1Maps sql.NullInt64 `db:"predicted_team1_maps"`
	PredictedTeam2Maps sql.NullInt64 `db:"predicted_team2_maps"`
}

func pickFromRow(row pickTableModel) pick.Pick {
	return pick.Pick{
		ID:                 row.ID,
		PublicID:           row.PublicID,
		UserID:             row.UserID,
		MatchID:            row.MatchID,
		PredictedWinnerID:  row.PredictedWinnerID,
		PredictedTeam1Maps: nullInt64ToIntPtr(row.PredictedTeam1Maps),
		PredictedTeam2Maps: nullInt64ToIntPtr(row.PredictedTeam2Maps),
		IsCorrect:          nullBoolToPtr(row.IsCorrect),
		MapScoreCorrect:    nullBoolToPtr(row.MapScoreCorrect),
		PointsAwarded:      nullInt64ToIntPtr(row.PointsAwarded),
		AdjustedBy:         nullStringToPtr(row.AdjustedBy),
		AdjustmentReason:   nullStringToPtr(row.AdjustmentReason),
		AdjustedAt:         row.AdjustedAt,
		CreatedAt:          row.CreatedAt,
		UpdatedAt:          row.UpdatedAt,
	}
}

func pickToInsertModel(item pick.Pick) pickInsertModel {
	return pickInsertModel{
		PublicID:           item.PublicID,
		UserID:             item.UserID,
		MatchID:            item.MatchID,
		PredictedWinnerID:  item.PredictedWinnerID,
		PredictedTeam1Maps: intPtrToNullInt64(item.PredictedTeam1Maps),
		PredictedTeam2Maps: intPtrToNullInt64(item.PredictedTeam2Maps),
	}
}
