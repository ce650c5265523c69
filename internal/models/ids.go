package models

import (
	"math/big"
	"strconv"
	"time"
)

// twitterEpoch is the snowflake epoch in Unix milliseconds.
const twitterEpoch = 1288834974657

// ParseID parses a decimal identifier into an arbitrary-precision integer.
// Malformed identifiers yield false.
func ParseID(id string) (*big.Int, bool) {
	return new(big.Int).SetString(id, 10)
}

// CompareIDs orders decimal identifiers by numeric magnitude. Identifiers
// that do not parse sort before those that do, then lexically.
func CompareIDs(a, b string) int {
	x, okA := ParseID(a)
	y, okB := ParseID(b)
	switch {
	case okA && okB:
		return x.Cmp(y)
	case okA:
		return 1
	case okB:
		return -1
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// SnowflakeTime decodes the creation time embedded in a snowflake identifier.
func SnowflakeTime(id string) (time.Time, bool) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	ms := int64(n>>22) + twitterEpoch
	return time.UnixMilli(ms).UTC(), true
}

// SnowflakeID returns the smallest identifier issued at t. Used to turn a
// date into an identifier bound.
func SnowflakeID(t time.Time) string {
	ms := t.UnixMilli() - twitterEpoch
	if ms < 0 {
		return "0"
	}
	return strconv.FormatUint(uint64(ms)<<22, 10)
}
