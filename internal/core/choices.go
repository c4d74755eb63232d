package core

import "fmt"

// KeyChoice is one selectable enforced key for an entry.
type KeyChoice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var choiceSources = []struct {
	prefix, label string
	values        func(EnforcementEntry) []string
}{
	{"platforms", "Platform", func(e EnforcementEntry) []string { return e.Platforms }},
	{"hardware", "Hardware", func(e EnforcementEntry) []string { return e.Hardware }},
	{"environment", "Environment", func(e EnforcementEntry) []string { return e.Environment }},
}

// KeyChoices lists the enforced keys a caller may pick for e. The first choice
// is always automatic best fit; the current key is appended when not derivable.
func KeyChoices(e EnforcementEntry) []KeyChoice {
	out := []KeyChoice{{Value: "", Label: "Automatic (match best fit)"}}
	seen := map[string]bool{"": true}
	for _, src := range choiceSources {
		for _, v := range src.values(e) {
			if v == "" {
				continue
			}
			value := src.prefix + ":" + v
			if seen[value] {
				continue
			}
			seen[value] = true
			out = append(out, KeyChoice{Value: value, Label: fmt.Sprintf("%s: %s", src.label, v)})
		}
	}
	if k := e.Key(); k != "" && !seen[k] {
		out = append(out, KeyChoice{Value: k, Label: "Existing: " + k})
	}
	return out
}
