package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/n1ckdm/pickems-api/internal/domain/standings"
	qb "github.com/n1ckdm/pickems-api/internal/platform/querybuilder"
)

// recomputeUserTotalsQuery rebuilds the whole aggregate from resolved picks.
// A full rebuild after each settlement batch is cheap at this scale and can
// never drift the way an incremental counter could.
const recomputeUserTotalsQuery = `INSERT INTO user_totals (user_id, points, correct_picks, map_bonuses, resolved_picks, updated_at)
SELECT
    user_id,
    COALESCE(SUM(points_awarded), 0),
    COUNT(*) FILTER (WHERE is_correct),
    COUNT(*) FILTER (WHERE map_score_correct),
    COUNT(*),
    NOW()
FROM picks
WHERE points_awarded IS NOT NULL
GROUP BY user_id`

type userTotalTableModel struct {
	UserID        string    `db:"user_id"`
	Points        int       `db:"points"`
	CorrectPicks  int       `db:"correct_picks"`
	MapBonuses    int       `db:"map_bonuses"`
	ResolvedPicks int       `db:"resolved_picks"`
	UpdatedAt     time.Time `db:"updated_at"`
}

type StandingsRepository struct {
	db *sqlx.DB
}

func NewStandingsRepository(db *sqlx.DB) *StandingsRepository {
	return &StandingsRepository{db: db}
}

var _ standings.Repository = (*StandingsRepository)(nil)

func (r *StandingsRepository) RecomputeAll(ctx context.Context) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin recompute user totals tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM user_totals"); err != nil {
		return fmt.Errorf("clear user totals: %w", err)
	}
	if _, err := tx.ExecContext(ctx, recomputeUserTotalsQuery); err != nil {
		return fmt.Errorf("recompute user totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit recompute user totals tx: %w", err)
	}

	return nil
}

func (r *StandingsRepository) List(ctx context.Context, limit int) ([]standings.UserTotal, error) {
	query, args, err := qb.Select("*").From("user_totals").
		OrderBy("points DESC", "correct_picks DESC", "user_id ASC").
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list user totals query: %w", err)
	}

	var rows []userTotalTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list user totals: %w", err)
	}

	out := make([]standings.UserTotal, 0, len(rows))
	for _, row := range rows {
		out = append(out, standings.UserTotal{
			UserID:        row.UserID,
			Points:        row.Points,
			CorrectPicks:  row.CorrectPicks,
			MapBonuses:    row.MapBonuses,
			ResolvedPicks: row.ResolvedPicks,
			UpdatedAt:     row.UpdatedAt,
		})
	}

	return out, nil
}
