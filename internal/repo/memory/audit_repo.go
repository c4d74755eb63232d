package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/service"
)

// AuditRepo keeps records in insertion order.
type AuditRepo struct {
	mu      sync.RWMutex
	records []core.AuditRecord
}

func NewAuditRepo() *AuditRepo { return &AuditRepo{} }

func (r *AuditRepo) Append(ctx context.Context, rec core.AuditRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.PreviousState = rec.PreviousState.Clone()
	rec.NewState = rec.NewState.Clone()
	r.records = append(r.records, rec)
	return nil
}

func (r *AuditRepo) History(ctx context.Context, f service.HistoryFilter) ([]core.AuditRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []core.AuditRecord{}
	for _, rec := range slices.Backward(r.records) {
		if rec.DocumentID != f.DocumentID || (f.ItemKey != "" && rec.ItemKey != f.ItemKey) {
			continue
		}
		out = append(out, rec)
		if f.Limit > 0 && int64(len(out)) >= f.Limit {
			break
		}
	}
	slices.SortStableFunc(out, func(a, b core.AuditRecord) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return out, nil
}

// Len reports how many records were appended.
func (r *AuditRepo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}
