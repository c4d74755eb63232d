package core

import "slices"

func (e EnforcementEntry) Clone() EnforcementEntry {
	if e.Enforced != nil {
		e.Enforced = BoolPtr(*e.Enforced)
	}
	if e.EnforcedKey != nil {
		e.EnforcedKey = StringPtr(*e.EnforcedKey)
	}
	if e.Exception != nil {
		ex := e.Exception.Clone()
		e.Exception = &ex
	}
	e.Platforms = slices.Clone(e.Platforms)
	e.Hardware = slices.Clone(e.Hardware)
	e.Environment = slices.Clone(e.Environment)
	return e
}

func (d InventoryDocument) Clone() InventoryDocument {
	d.Descriptor.Instances = slices.Clone(d.Descriptor.Instances)
	if d.Enforced == nil {
		return d
	}
	groups := make(map[string]map[string]EnforcementEntry, len(d.Enforced))
	for g, items := range d.Enforced {
		cp := make(map[string]EnforcementEntry, len(items))
		for k, e := range items {
			cp[k] = e.Clone()
		}
		groups[g] = cp
	}
	d.Enforced = groups
	return d
}
