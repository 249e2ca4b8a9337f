package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/n1ckdm/pickems-api/internal/domain/pick"
	qb "github.com/n1ckdm/pickems-api/internal/platform/querybuilder"
)

// pickUpsertSuffix replaces the prediction on resubmission but keeps the
// original public id so client references stay stable.
const pickUpsertSuffix = `ON CONFLICT (user_id, match_id) DO UPDATE SET
    predicted_winner_id = EXCLUDED.predicted_winner_id,
    predicted_team1_maps = EXCLUDED.predicted_team1_maps,
    predicted_team2_maps = EXCLUDED.predicted_team2_maps,
    updated_at = NOW()
RETURNING *`

const deleteUnlockedPicksQuery = `DELETE FROM picks
USING matches
WHERE picks.match_id = matches.id
  AND picks.user_id = $1
  AND picks.points_awarded IS NULL
  AND matches.state = 'scheduled'
  AND matches.start_time > $2`

type PickRepository struct {
	db *sqlx.DB
}

func NewPickRepository(db *sqlx.DB) *PickRepository {
	return &PickRepository{db: db}
}

var _ pick.Repository = (*PickRepository)(nil)

func (r *PickRepository) Upsert(ctx context.Context, item pick.Pick) (pick.Pick, error) {
	query, args, err := qb.InsertModel("picks", pickToInsertModel(item), pickUpsertSuffix)
	if err != nil {
		return pick.Pick{}, fmt.Errorf("build pick upsert query: %w", err)
	}

	var row pickTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return pick.Pick{}, fmt.Errorf("upsert pick: %w", err)
	}

	return pickFromRow(row), nil
}

func (r *PickRepository) GetByPublicID(ctx context.Context, publicID string) (pick.Pick, bool, error) {
	query, args, err := qb.Select("*").From("picks").
		Where(qb.Eq("public_id", publicID)).
		ToSQL()
	if err != nil {
		return pick.Pick{}, false, fmt.Errorf("build get pick query: %w", err)
	}

	var row pickTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return pick.Pick{}, false, nil
		}
		return pick.Pick{}, false, fmt.Errorf("get pick: %w", err)
	}

	return pickFromRow(row), true, nil
}

func (r *PickRepository) ListByUser(ctx context.Context, userID string) ([]pick.Pick, error) {
	query, args, err := qb.Select("*").From("picks").
		Where(qb.Eq("user_id", userID)).
		OrderBy("created_at ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list picks by user query: %w", err)
	}

	return r.selectPicks(ctx, query, args)
}

func (r *PickRepository) ListUnresolvedByMatchIDs(ctx context.Context, matchIDs []int64) ([]pick.Pick, error) {
	if len(matchIDs) == 0 {
		return nil, nil
	}

	query, args, err := qb.Select("*").From("picks").
		Where(
			qb.In("match_id", int64sToAny(matchIDs)),
			qb.IsNull("points_awarded"),
		).
		OrderBy("match_id ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list unresolved picks query: %w", err)
	}

	return r.selectPicks(ctx, query, args)
}

// UpdateResult scores a single pick. The points_awarded IS NULL guard makes
// the write a compare and swap: a pick already scored by a concurrent run or
// touched by a manual adjustment is left alone.
func (r *PickRepository) UpdateResult(ctx context.Context, pickID int64, result pick.Result) (bool, error) {
	query, args, err := qb.Update("picks").
		Set("is_correct", result.IsCorrect).
		Set("map_score_correct", boolPtrToNullBool(result.MapScoreCorrect)).
		Set("points_awarded", result.PointsAwarded).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", pickID),
			qb.IsNull("points_awarded"),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build update pick result query: %w", err)
	}

	execResult, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update pick result: %w", err)
	}

	affected, err := execResult.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update pick result rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *PickRepository) Adjust(ctx context.Context, adjustment pick.Adjustment) error {
	adjustedAt := adjustment.AdjustedAt
	if adjustedAt.IsZero() {
		adjustedAt = time.Now().UTC()
	}

	query, args, err := qb.Update("picks").
		Set("is_correct", adjustment.IsCorrect).
		Set("points_awarded", adjustment.PointsAwarded).
		Set("adjusted_by", adjustment.AdjustedBy).
		Set("adjustment_reason", adjustment.Reason).
		Set("adjusted_at", adjustedAt).
		SetExpr("updated_at", "NOW()").
		Where(qb.Eq("id", adjustment.PickID)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build adjust pick query: %w", err)
	}

	execResult, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("adjust pick: %w", err)
	}

	affected, err := execResult.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust pick rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("adjust pick: pick id=%d not found", adjustment.PickID)
	}

	return nil
}

func (r *PickRepository) DeleteUnlockedByUser(ctx context.Context, userID string, lockCutoff time.Time) (int, error) {
	execResult, err := r.db.ExecContext(ctx, deleteUnlockedPicksQuery, userID, lockCutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete unlocked picks: %w", err)
	}

	affected, err := execResult.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete unlocked picks rows affected: %w", err)
	}

	return int(affected), nil
}

func (r *PickRepository) selectPicks(ctx context.Context, query string, args []any) ([]pick.Pick, error) {
	var rows []pickTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select picks: %w", err)
	}

	out := make([]pick.Pick, 0, len(rows))
	for _, row := range rows {
		out = append(out, pickFromRow(row))
	}

	return out, nil
}
