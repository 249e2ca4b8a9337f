package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/n1ckdm/pickems-api/internal/domain/match"
	qb "github.com/n1ckdm/pickems-api/internal/platform/querybuilder"
)

// matchUpsertSuffix keeps the conflict key on external_id and never lets a
// resync downgrade a settled match back to finished.
const matchUpsertSuffix = `ON CONFLICT (external_id) DO UPDATE SET
    team1_id = EXCLUDED.team1_id,
    team1_name = EXCLUDED.team1_name,
    team1_logo_url = EXCLUDED.team1_logo_url,
    team2_id = EXCLUDED.team2_id,
    team2_name = EXCLUDED.team2_name,
    team2_logo_url = EXCLUDED.team2_logo_url,
    start_time = EXCLUDED.start_time,
    division_id = EXCLUDED.division_id,
    state = CASE WHEN matches.state = 'settled' THEN matches.state ELSE EXCLUDED.state END,
    winner_id = COALESCE(EXCLUDED.winner_id, matches.winner_id),
    team1_map_score = COALESCE(EXCLUDED.team1_map_score, matches.team1_map_score),
    team2_map_score = COALESCE(EXCLUDED.team2_map_score, matches.team2_map_score),
    best_of = EXCLUDED.best_of,
    round = EXCLUDED.round,
    stream_link = EXCLUDED.stream_link,
    synced_at = NOW(),
    updated_at = NOW()`

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

var _ match.Repository = (*MatchRepository)(nil)

func (r *MatchRepository) GetByID(ctx context.Context, id int64) (match.Match, bool, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("id", id)).
		ToSQL()
	if err != nil {
		return match.Match{}, false, fmt.Errorf("build get match query: %w", err)
	}

	var row matchTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return match.Match{}, false, nil
		}
		return match.Match{}, false, fmt.Errorf("get match: %w", err)
	}

	return matchFromRow(row), true, nil
}

func (r *MatchRepository) ListByExternalIDs(ctx context.Context, externalIDs []int64) ([]match.Match, error) {
	if len(externalIDs) == 0 {
		return nil, nil
	}

	query, args, err := qb.Select("*").From("matches").
		Where(qb.In("external_id", int64sToAny(externalIDs))).
		OrderBy("start_time ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by external ids query: %w", err)
	}

	return r.selectMatches(ctx, query, args)
}

func (r *MatchRepository) List(ctx context.Context, filter match.ListFilter) ([]match.Match, error) {
	conditions := make([]qb.Condition, 0, 3)
	if filter.StartedAfter != nil {
		conditions = append(conditions, qb.Expr("start_time > ?", filter.StartedAfter.UTC()))
	}
	if filter.StartedBefore != nil {
		conditions = append(conditions, qb.Expr("start_time < ?", filter.StartedBefore.UTC()))
	}
	if len(filter.States) > 0 {
		conditions = append(conditions, qb.In("state", statesToAny(filter.States)))
	}

	query, args, err := qb.Select("*").From("matches").
		Where(conditions...).
		OrderBy("start_time ASC", "id ASC").
		Limit(filter.Limit).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches query: %w", err)
	}

	return r.selectMatches(ctx, query, args)
}

func (r *MatchRepository) ListByState(ctx context.Context, state match.State) ([]match.Match, error) {
	query, args, err := qb.Select("*").From("matches").
		Where(qb.Eq("state", string(state))).
		OrderBy("start_time ASC", "id ASC").
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list matches by state query: %w", err)
	}

	return r.selectMatches(ctx, query, args)
}

func (r *MatchRepository) CountByState(ctx context.Context, state match.State) (int, error) {
	query, args, err := qb.Select("COUNT(*)").From("matches").
		Where(qb.Eq("state", string(state))).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build count matches by state query: %w", err)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("count matches by state: %w", err)
	}

	return count, nil
}

func (r *MatchRepository) UpsertBatch(ctx context.Context, items []match.Match) error {
	if len(items) == 0 {
		return nil
	}

	models := make([]matchInsertModel, 0, len(items))
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return fmt.Errorf("validate match external_id=%d: %w", item.ExternalID, err)
		}
		models = append(models, matchToInsertModel(item))
	}

	query, args, err := qb.InsertModels("matches", models, matchUpsertSuffix)
	if err != nil {
		return fmt.Errorf("build match upsert query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert matches: %w", err)
	}

	return nil
}

func (r *MatchRepository) MarkSettled(ctx context.Context, id int64) (bool, error) {
	query, args, err := qb.Update("matches").
		Set("state", string(match.StateSettled)).
		SetExpr("updated_at", "NOW()").
		Where(
			qb.Eq("id", id),
			qb.Eq("state", string(match.StateFinished)),
		).
		ToSQL()
	if err != nil {
		return false, fmt.Errorf("build mark match settled query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("mark match settled: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark match settled rows affected: %w", err)
	}

	return affected > 0, nil
}

func (r *MatchRepository) selectMatches(ctx context.Context, query string, args []any) ([]match.Match, error) {
	var rows []matchTableModel
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("select matches: %w", err)
	}

	out := make([]match.Match, 0, len(rows))
	for _, row := range rows {
		out = append(out, matchFromRow(row))
	}

	return out, nil
}
