package validators

import (
	"strings"
	"unicode/utf8"
)

// Provider limits for checkout session metadata.
const (
	MaxMetadataKeyLen   = 40
	MaxMetadataValueLen = 500
)

// SanitizeString trims input and truncates it to maxLen bytes without
// splitting a UTF-8 sequence.
func SanitizeString(input string, maxLen int) string {
	s := strings.TrimSpace(input)
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	s = s[:maxLen]
	for len(s) > 0 && !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}

// SanitizeMetadata trims keys and values to the provider limits and drops
// entries whose key ends up empty. A nil or empty map returns nil.
func SanitizeMetadata(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		key := SanitizeString(k, MaxMetadataKeyLen)
		if key == "" {
			continue
		}
		out[key] = SanitizeString(v, MaxMetadataValueLen)
	}
	return out
}
