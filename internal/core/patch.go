package core

import "slices"

// Entry fields the exception engine may write.
const (
	FieldEnforced    = "enforced"
	FieldEnforcedKey = "enforced_key"
	FieldException   = "exception"
)

// EntryPatch is an atomic partial update of one enforcement entry. A field is
// either set or unset, never both.
type EntryPatch struct {
	Group   string
	ItemKey string

	enforced    *bool
	enforcedKey *string
	exception   *Exception
	unset       []string
}

func NewEntryPatch(group, itemKey string) *EntryPatch {
	return &EntryPatch{Group: group, ItemKey: itemKey}
}

func (p *EntryPatch) SetEnforced(v bool) *EntryPatch {
	p.enforced = &v
	p.drop(FieldEnforced)
	return p
}

// SetEnforcedKey sets the key, or unsets it when v is nil.
func (p *EntryPatch) SetEnforcedKey(v *string) *EntryPatch {
	if v == nil || *v == "" {
		p.enforcedKey = nil
		return p.addUnset(FieldEnforcedKey)
	}
	k := *v
	p.enforcedKey = &k
	p.drop(FieldEnforcedKey)
	return p
}

// SetException sets the exception record, or unsets it when ex is nil.
func (p *EntryPatch) SetException(ex *Exception) *EntryPatch {
	if ex == nil {
		p.exception = nil
		return p.addUnset(FieldException)
	}
	p.exception = ex
	p.drop(FieldException)
	return p
}

// Set returns the fields to write, keyed by field name.
func (p *EntryPatch) Set() map[string]any {
	out := map[string]any{}
	if p.enforced != nil {
		out[FieldEnforced] = *p.enforced
	}
	if p.enforcedKey != nil {
		out[FieldEnforcedKey] = *p.enforcedKey
	}
	if p.exception != nil {
		out[FieldException] = *p.exception
	}
	return out
}

// Unset returns the field names to remove.
func (p *EntryPatch) Unset() []string { return slices.Clone(p.unset) }

func (p *EntryPatch) Empty() bool { return len(p.Set()) == 0 && len(p.unset) == 0 }

// Apply returns e with the patch applied.
func (p *EntryPatch) Apply(e EnforcementEntry) EnforcementEntry {
	if p.enforced != nil {
		e.Enforced = BoolPtr(*p.enforced)
	}
	if p.enforcedKey != nil {
		e.EnforcedKey = StringPtr(*p.enforcedKey)
	}
	if p.exception != nil {
		ex := p.exception.Clone()
		e.Exception = &ex
	}
	for _, f := range p.unset {
		switch f {
		case FieldEnforced:
			e.Enforced = nil
		case FieldEnforcedKey:
			e.EnforcedKey = nil
		case FieldException:
			e.Exception = nil
		}
	}
	return e
}

func (p *EntryPatch) addUnset(f string) *EntryPatch {
	if !slices.Contains(p.unset, f) {
		p.unset = append(p.unset, f)
	}
	return p
}

func (p *EntryPatch) drop(f string) {
	p.unset = slices.DeleteFunc(p.unset, func(s string) bool { return s == f })
}

// Clone deep-copies the exception.
func (x Exception) Clone() Exception {
	if x.Approver != nil {
		a := *x.Approver
		x.Approver = &a
	}
	if x.Metadata != nil {
		m := make(map[string]string, len(x.Metadata))
		for k, v := range x.Metadata {
			m[k] = v
		}
		x.Metadata = m
	}
	return x
}
