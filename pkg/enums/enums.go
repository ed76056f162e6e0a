package enums

import (
	"fmt"
	"slices"
)

// parseEnum matches value exactly against the allowed set for an enum kind.
func parseEnum[T ~string](kind string, allowed []T, value string) (T, error) {
	if slices.Contains(allowed, T(value)) {
		return T(value), nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q", kind, value)
}
