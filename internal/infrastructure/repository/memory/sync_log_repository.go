package memory

import (
	"context"
	"sync"
	"time"

	"github.com/n1ckdm/pickems-api/internal/domain/synclog"
)

type SyncLogRepository struct {
	mu      sync.Mutex
	entries []synclog.Entry
	nextID  int64
}

func NewSyncLogRepository() *SyncLogRepository {
	return &SyncLogRepository{nextID: 1}
}

var _ synclog.Repository = (*SyncLogRepository)(nil)

func (r *SyncLogRepository) Append(_ context.Context, entry synclog.Entry) (synclog.Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.ID = r.nextID
	r.nextID++
	entry.CreatedAt = time.Now().UTC()
	r.entries = append(r.entries, entry)
	return entry, nil
}

func (r *SyncLogRepository) Latest(_ context.Context) (synclog.Entry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.entries) == 0 {
		return synclog.Entry{}, false, nil
	}
	return r.entries[len(r.entries)-1], true, nil
}
