package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Cache durations for the refresh query parameter, in seconds
const (
	DefaultCacheSeconds = 21600
	MinCacheSeconds     = 60
	MaxCacheSeconds     = 86400
)

// ParseRefresh converts the refresh query value into a cache duration.
// Missing, non-numeric and too-small values give the default; large values
// are capped at one day. Fractional seconds are dropped.
func ParseRefresh(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCacheSeconds
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < MinCacheSeconds {
		return DefaultCacheSeconds
	}
	if v > MaxCacheSeconds {
		return MaxCacheSeconds
	}
	return int(v)
}

func cacheControl(seconds int) string {
	return fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=60", seconds)
}
