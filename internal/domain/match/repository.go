package match

import (
	"context"
	"time"
)

// Repository exposes match persistence. UpsertBatch is keyed on the
// external id; MarkSettled reports whether this caller performed the
// finished to settled transition.
type Repository interface {
	GetByID(ctx context.Context, id int64) (Match, bool, error)
	ListByExternalIDs(ctx context.Context, externalIDs []int64) ([]Match, error)
	List(ctx context.Context, filter ListFilter) ([]Match, error)
	ListByState(ctx context.Context, state State) ([]Match, error)
	CountByState(ctx context.Context, state State) (int, error)
	UpsertBatch(ctx context.Context, items []Match) error
	MarkSettled(ctx context.Context, id int64) (bool, error)
}

type ListFilter struct {
	StartedAfter  *time.Time
	StartedBefore *time.Time
	States        []State
	Limit         int
}
