package model

import "strings"

// ParseModelSelector splits a comma-separated model list, trims entries,
// drops empty ones and removes duplicates keeping the first occurrence.
func ParseModelSelector(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
