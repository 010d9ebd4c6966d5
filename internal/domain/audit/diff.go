package audit

import "fmt"

// Diff compares two field maps and keeps only the fields that changed,
// each recorded as {"old": ..., "new": ...}. Fields present on one side
// only are reported against nil.
func Diff(before, after map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range after {
		oldVal, exists := before[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if !equal(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range before {
		if _, exists := after[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}

// equal compares formatted values. Audit payloads hold JSON scalars and
// small maps, where formatted comparison matches value comparison.
func equal(a, b any) bool {
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
