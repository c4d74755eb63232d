package service

import (
	"context"

	"github.com/Veysel440/go-etracker/internal/core"
)

// InventoryRepo is the document store holding inventory records.
// FindByID returns ErrNotFound for unknown ids; other failures wrap ErrStorage.
type InventoryRepo interface {
	Search(ctx context.Context, c SearchCriteria, limit, skip int64) (SearchResult, error)
	FindByID(ctx context.Context, id string) (core.InventoryDocument, error)
	// UpdateEntry applies p atomically to one document and reports whether
	// the stored document changed.
	UpdateEntry(ctx context.Context, id string, p *core.EntryPatch) (bool, error)
}

// AuditRepo is the append-only audit trail.
type AuditRepo interface {
	Append(ctx context.Context, r core.AuditRecord) error
	History(ctx context.Context, f HistoryFilter) ([]core.AuditRecord, error)
}
