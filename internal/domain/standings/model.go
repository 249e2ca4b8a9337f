package standings

import (
	"context"
	"time"
)

// UserTotal is the derived aggregate over one user's resolved picks. It is
// recomputed in full after every settlement batch, never maintained
// incrementally.
type UserTotal struct {
	UserID        string
	Points        int
	CorrectPicks  int
	MapBonuses    int
	ResolvedPicks int
	UpdatedAt     time.Time
}

type Repository interface {
	RecomputeAll(ctx context.Context) error
	List(ctx context.Context, limit int) ([]UserTotal, error)
}
