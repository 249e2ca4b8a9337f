package pick

import (
	"context"
	"time"
)

// Repository exposes pick persistence. UpdateResult only touches rows
// whose points are still unawarded and reports whether it won the write,
// so two overlapping settlement runs cannot double-award.
type Repository interface {
	Upsert(ctx context.Context, item Pick) (Pick, error)
	GetByPublicID(ctx context.Context, publicID string) (Pick, bool, error)
	ListByUser(ctx context.Context, userID string) ([]Pick, error)
	ListUnresolvedByMatchIDs(ctx context.Context, matchIDs []int64) ([]Pick, error)
	UpdateResult(ctx context.Context, pickID int64, result Result) (bool, error)
	Adjust(ctx context.Context, adjustment Adjustment) error
	DeleteUnlockedByUser(ctx context.Context, userID string, lockCutoff time.Time) (int, error)
}
