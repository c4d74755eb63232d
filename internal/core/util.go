package core

import (
	"cmp"
	"slices"
)

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// BoolPtr and StringPtr help build optional entry fields.
func BoolPtr(v bool) *bool { return &v }

func StringPtr(v string) *string { return &v }
