package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/n1ckdm/pickems-api/internal/domain/synclog"
	qb "github.com/n1ckdm/pickems-api/internal/platform/querybuilder"
)

type syncLogTableModel struct {
	ID            int64          `db:"id"`
	MatchesSynced int            `db:"matches_synced"`
	SyncedBy      sql.NullString `db:"synced_by"`
	CreatedAt     time.Time      `db:"created_at"`
}

type syncLogInsertModel struct {
	MatchesSynced int            `db:"matches_synced"`
	SyncedBy      sql.NullString `db:"synced_by"`
}

type SyncLogRepository struct {
	db *sqlx.DB
}

func NewSyncLogRepository(db *sqlx.DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

var _ synclog.Repository = (*SyncLogRepository)(nil)

func (r *SyncLogRepository) Append(ctx context.Context, entry synclog.Entry) (synclog.Entry, error) {
	insertModel := syncLogInsertModel{
		MatchesSynced: entry.MatchesSynced,
		SyncedBy:      ptrToNullString(entry.SyncedBy),
	}

	query, args, err := qb.InsertModel("sync_logs", insertModel, "RETURNING *")
	if err != nil {
		return synclog.Entry{}, fmt.Errorf("build append sync log query: %w", err)
	}

	var row syncLogTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		return synclog.Entry{}, fmt.Errorf("append sync log: %w", err)
	}

	return syncLogFromRow(row), nil
}

func (r *SyncLogRepository) Latest(ctx context.Context) (synclog.Entry, bool, error) {
	query, args, err := qb.Select("*").From("sync_logs").
		OrderBy("id DESC").
		Limit(1).
		ToSQL()
	if err != nil {
		return synclog.Entry{}, false, fmt.Errorf("build latest sync log query: %w", err)
	}

	var row syncLogTableModel
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if isNotFound(err) {
			return synclog.Entry{}, false, nil
		}
		return synclog.Entry{}, false, fmt.Errorf("latest sync log: %w", err)
	}

	return syncLogFromRow(row), true, nil
}

func syncLogFromRow(row syncLogTableModel) synclog.Entry {
	return synclog.Entry{
		ID:            row.ID,
		MatchesSynced: row.MatchesSynced,
		SyncedBy:      nullStringToPtr(row.SyncedBy),
		CreatedAt:     row.CreatedAt,
	}
}
