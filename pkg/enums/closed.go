// Package enums holds the closed string sets stored in Postgres enum columns
// and carried on the wire.
package enums

import (
	"fmt"
	"slices"
)

// parseClosed matches value exactly against the members of a closed set.
func parseClosed[T ~string](kind string, members []T, value string) (T, error) {
	if v := T(value); slices.Contains(members, v) {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
