// Package memory holds in-process repositories used by tests and the
// memory store mode.
package memory

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/Veysel440/go-etracker/internal/core"
	"github.com/Veysel440/go-etracker/internal/service"
)

type InventoryRepo struct {
	mu   sync.RWMutex
	docs map[string]core.InventoryDocument
}

func NewInventoryRepo(docs ...core.InventoryDocument) *InventoryRepo {
	r := &InventoryRepo{docs: map[string]core.InventoryDocument{}}
	for _, d := range docs {
		r.Put(d)
	}
	return r
}

// LoadInventoryFile seeds a repo from a JSON array of documents.
func LoadInventoryFile(path string) (*InventoryRepo, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var docs []core.InventoryDocument
	if err := json.Unmarshal(b, &docs); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewInventoryRepo(docs...), nil
}

// Put inserts or replaces a document.
func (r *InventoryRepo) Put(d core.InventoryDocument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[d.ID] = d.Clone()
}

func (r *InventoryRepo) Search(ctx context.Context, c service.SearchCriteria, limit, skip int64) (service.SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return service.SearchResult{}, fmt.Errorf("%w: %w", service.ErrStorage, err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []core.InventoryDocument
	for _, d := range r.docs {
		if matches(d, c) {
			matched = append(matched, d)
		}
	}
	slices.SortFunc(matched, func(a, b core.InventoryDocument) int {
		if n := cmp.Compare(a.Descriptor.Hostname, b.Descriptor.Hostname); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})

	out := service.SearchResult{Items: []core.InventoryDocument{}, Total: int64(len(matched))}
	skip = max(0, skip)
	if skip >= int64(len(matched)) {
		return out, nil
	}
	end := int64(len(matched))
	if limit > 0 {
		end = min(end, skip+limit)
	}
	for _, d := range matched[skip:end] {
		out.Items = append(out.Items, d.Clone())
	}
	return out, nil
}

func (r *InventoryRepo) FindByID(ctx context.Context, id string) (core.InventoryDocument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.docs[id]
	if !ok {
		return core.InventoryDocument{}, service.ErrNotFound
	}
	return d.Clone(), nil
}

func (r *InventoryRepo) UpdateEntry(ctx context.Context, id string, p *core.EntryPatch) (bool, error) {
	if p.Empty() {
		return false, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return false, nil
	}
	before := d.Entry(p.Group, p.ItemKey)
	after := p.Apply(before.Clone())
	if reflect.DeepEqual(before, after) {
		return false, nil
	}
	if d.Enforced == nil {
		d.Enforced = map[string]map[string]core.EnforcementEntry{}
	}
	if d.Enforced[p.Group] == nil {
		d.Enforced[p.Group] = map[string]core.EnforcementEntry{}
	}
	d.Enforced[p.Group][p.ItemKey] = after
	r.docs[id] = d
	return true, nil
}

func matches(d core.InventoryDocument, c service.SearchCriteria) bool {
	inst := d.Descriptor.Instance
	checks := []struct{ want, have string }{
		{c.Hostname, d.Descriptor.Hostname},
		{c.ReferenceCode, inst.ReferenceCode},
		{c.OwnedBy, inst.OwnedBy.Name},
		{c.ManagedBy, inst.ManagedBy.Name},
		{c.GVP, inst.GVP.Name},
	}
	for _, ch := range checks {
		if ch.want != "" && !containsFold(ch.have, ch.want) {
			return false
		}
	}
	if c.Application != "" {
		return slices.ContainsFunc(d.Descriptor.Instances, func(i core.Instance) bool {
			return containsFold(i.Name, c.Application)
		})
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
