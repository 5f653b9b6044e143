package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses either Go duration syntax ("5s", "1m30s") or a bare
// number of seconds ("5", "0.5"). Bare numbers are how the provider
// timeouts and retry delays have historically been configured.
//
// Examples:
//
//	ParseDuration("5")    // 5s
//	ParseDuration("0.25") // 250ms
//	ParseDuration("2m")   // 2m
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}

	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	seconds, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration format: %s", s)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
