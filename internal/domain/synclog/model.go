package synclog

import (
	"context"
	"time"
)

// Entry is the audit record of one sync run. Append-only.
type Entry struct {
	ID            int64
	MatchesSynced int
	SyncedBy      *string
	CreatedAt     time.Time
}

type Repository interface {
	Append(ctx context.Context, entry Entry) (Entry, error)
	Latest(ctx context.Context) (Entry, bool, error)
}
