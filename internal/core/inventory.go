package core

// Known control categories. The engine routes any non-empty group name.
const (
	GroupCIS    = "CIS"
	GroupAgents = "Agents"
)

const (
	// ManualExceptionKey is the enforced key forced onto entries with an active exception.
	ManualExceptionKey = "exception:manual"
	// ExceptionKeyPrefix is reserved for exception sentinels.
	ExceptionKeyPrefix = "exception:"
)

type InventoryDocument struct {
	ID         string                                 `json:"id"         bson:"-"`
	Descriptor Descriptor                             `json:"esd"        bson:"ESD"`
	Enforced   map[string]map[string]EnforcementEntry `json:"enforced"   bson:"Enforced,omitempty"`
}

type Descriptor struct {
	Hostname  string     `json:"hostname"            bson:"hostname,omitempty"`
	FQDN      string     `json:"fqdn,omitempty"      bson:"fqdn,omitempty"`
	Instance  Instance   `json:"instance"            bson:"instance,omitempty"`
	Instances []Instance `json:"instances,omitempty" bson:"instances,omitempty"`
	System    System     `json:"system"              bson:"system,omitempty"`
	Network   Network    `json:"network"             bson:"network,omitempty"`
	OS        OS         `json:"os"                  bson:"os,omitempty"`
}

type Instance struct {
	Name          string `json:"name,omitempty"           bson:"name,omitempty"`
	ReferenceCode string `json:"referenceCode,omitempty"  bson:"reference_code,omitempty"`
	OwnedBy       Named  `json:"ownedBy"                  bson:"owned_by,omitempty"`
	ManagedBy     Named  `json:"managedBy"                bson:"managed_by,omitempty"`
	GVP           Named  `json:"gvp"                      bson:"gvp,omitempty"`
}

type Named struct {
	Name string `json:"name,omitempty" bson:"name,omitempty"`
}

type System struct {
	Environment string `json:"environment,omitempty" bson:"environment,omitempty"`
}

type Network struct {
	PrimaryIP string `json:"primaryIp,omitempty" bson:"primary_ip,omitempty"`
}

type OS struct {
	FullName   string `json:"fullName,omitempty"   bson:"full_name,omitempty"`
	PatchCycle string `json:"patchCycle,omitempty" bson:"patch_cycle,omitempty"`
}

// EnforcementEntry is the control-level record mutated by the exception engine.
// Platforms, Hardware and Environment are read-only context.
type EnforcementEntry struct {
	Enforced    *bool      `json:"enforced,omitempty"    bson:"enforced,omitempty"`
	EnforcedKey *string    `json:"enforcedKey,omitempty" bson:"enforced_key,omitempty"`
	Exception   *Exception `json:"exception,omitempty"   bson:"exception,omitempty"`

	Platforms   []string `json:"platforms,omitempty"   bson:"platforms,omitempty"`
	Hardware    []string `json:"hardware,omitempty"    bson:"hardware,omitempty"`
	Environment []string `json:"environment,omitempty" bson:"environment,omitempty"`
}

// Exception is a stored waiver. Timestamps are ISO-8601 strings so documents
// written by other tools round-trip unchanged.
type Exception struct {
	Active    bool              `json:"active"              bson:"active"`
	Reason    string            `json:"reason,omitempty"    bson:"reason,omitempty"`
	Approver  *Approver         `json:"approver,omitempty"  bson:"approver,omitempty"`
	CreatedAt string            `json:"createdAt,omitempty" bson:"created_at,omitempty"`
	UpdatedAt string            `json:"updatedAt,omitempty" bson:"updated_at,omitempty"`
	ExpiresAt string            `json:"expiresAt,omitempty" bson:"expires_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"  bson:"metadata,omitempty"`
}

type Approver struct {
	ID   int64  `json:"id"   bson:"id"`
	Name string `json:"name" bson:"name"`
}

// Actor is the authenticated caller a change is attributed to.
type Actor struct {
	ID   int64
	Name string
}

// Entry returns the entry at group/itemKey, or the zero entry when absent.
func (d InventoryDocument) Entry(group, itemKey string) EnforcementEntry {
	if items, ok := d.Enforced[group]; ok {
		if e, ok := items[itemKey]; ok {
			return e
		}
	}
	return EnforcementEntry{}
}

// Application is the owning application name used in reports.
func (d InventoryDocument) Application() string { return d.Descriptor.Instance.Name }

// IsEnforced reports the stored flag; a missing flag counts as not enforced.
func (e EnforcementEntry) IsEnforced() bool { return e.Enforced != nil && *e.Enforced }

func (e EnforcementEntry) HasActiveException() bool {
	return e.Exception != nil && e.Exception.Active
}

func (e EnforcementEntry) Key() string {
	if e.EnforcedKey == nil {
		return ""
	}
	return *e.EnforcedKey
}

// Item is one (group, key, entry) triple of a document.
type Item struct {
	Group   string
	ItemKey string
	Entry   EnforcementEntry
}

// Items returns every entry of the document, groups and keys in lexical order.
func (d InventoryDocument) Items() []Item {
	groups := sortedKeys(d.Enforced)
	var out []Item
	for _, g := range groups {
		items := d.Enforced[g]
		for _, k := range sortedKeys(items) {
			out = append(out, Item{Group: g, ItemKey: k, Entry: items[k]})
		}
	}
	return out
}

type DocumentStats struct {
	Total            int `json:"total"`
	ActiveExceptions int `json:"activeExceptions"`
	Unenforced       int `json:"unenforced"`
}

func (d InventoryDocument) Stats() DocumentStats {
	var s DocumentStats
	for _, it := range d.Items() {
		s.Total++
		if it.Entry.HasActiveException() {
			s.ActiveExceptions++
		}
		if !it.Entry.IsEnforced() {
			s.Unenforced++
		}
	}
	return s
}
