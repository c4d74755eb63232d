package service

import (
	"context"
	"strings"

	"github.com/Veysel440/go-etracker/internal/core"
)

// Inventory exposes read access to documents and their audit history.
type Inventory struct {
	inv   InventoryRepo
	audit AuditRepo
}

func NewInventory(inv InventoryRepo, audit AuditRepo) *Inventory {
	return &Inventory{inv: inv, audit: audit}
}

func (s *Inventory) Search(ctx context.Context, c SearchCriteria, limit, skip int64) (SearchResult, error) {
	c.Normalize()
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}
	return s.inv.Search(ctx, c, limit, max(0, skip))
}

func (s *Inventory) Get(ctx context.Context, id string) (core.InventoryDocument, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.InventoryDocument{}, validationf("document id is required")
	}
	return s.inv.FindByID(ctx, id)
}

// Choices lists the selectable enforced keys of one entry.
func (s *Inventory) Choices(ctx context.Context, id, group, itemKey string) ([]core.KeyChoice, error) {
	group, itemKey = strings.TrimSpace(group), strings.TrimSpace(itemKey)
	if err := validateTarget(strings.TrimSpace(id), group, itemKey); err != nil {
		return nil, err
	}
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return core.KeyChoices(doc.Entry(group, itemKey)), nil
}

// History returns audit records newest first.
func (s *Inventory) History(ctx context.Context, f HistoryFilter) ([]core.AuditRecord, error) {
	f.DocumentID = strings.TrimSpace(f.DocumentID)
	f.ItemKey = strings.TrimSpace(f.ItemKey)
	if f.DocumentID == "" {
		return nil, validationf("document id is required")
	}
	f.Normalize()
	return s.audit.History(ctx, f)
}
