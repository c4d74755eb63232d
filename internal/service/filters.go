package service

import (
	"strings"

	"github.com/Veysel440/go-etracker/internal/core"
)

// SearchCriteria holds case-insensitive substring filters; empty fields are ignored.
type SearchCriteria struct {
	Hostname      string
	ReferenceCode string
	OwnedBy       string
	ManagedBy     string
	GVP           string
	Application   string
}

// Normalize trims every filter value.
func (c *SearchCriteria) Normalize() {
	for _, f := range []*string{&c.Hostname, &c.ReferenceCode, &c.OwnedBy, &c.ManagedBy, &c.GVP, &c.Application} {
		*f = strings.TrimSpace(*f)
	}
}

func (c SearchCriteria) Empty() bool {
	return c == SearchCriteria{}
}

type SearchResult struct {
	Items []core.InventoryDocument `json:"items"`
	Total int64                    `json:"total"`
}

// HistoryFilter selects audit records of a document, optionally narrowed to one item.
type HistoryFilter struct {
	DocumentID string
	ItemKey    string
	Limit      int64
}

// Normalize applies the defaults used by the item and document history views.
func (f *HistoryFilter) Normalize() {
	if f.Limit <= 0 {
		if f.ItemKey != "" {
			f.Limit = 20
		} else {
			f.Limit = 50
		}
	}
	if f.Limit > 1000 {
		f.Limit = 1000
	}
}
