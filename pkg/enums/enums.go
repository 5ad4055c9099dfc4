// Package enums holds the string enums persisted in Postgres and carried in
// tokens and event payloads.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func oneOf[T ~string](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse matches raw against set after trimming and lower-casing.
func parse[T ~string](kind, raw string, set []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if oneOf(v, set) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, raw)
}
