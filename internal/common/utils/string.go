package utils

import "unicode/utf8"

// StringOrNil returns a pointer to s, or nil for the empty string. Used to
// write NULL columns.
func StringOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StringFromPtr safely dereferences a string pointer, returning an empty string if nil.
func StringFromPtr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Truncate shortens s to at most n runes, appending "..." when cut.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
