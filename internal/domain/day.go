package domain

import (
	"hash/fnv"
	"time"
)

// dayKeyLayout is the wire and storage format for day keys.
const dayKeyLayout = "2006-01-02"

// DayKey identifies one calendar day in the caller's local time,
// formatted YYYY-MM-DD. It is the axis for deterministic daily
// selection: the same key over the same pool always yields the same
// quote, across calls and across process restarts.
type DayKey string

// DayKeyFor returns the key for the calendar day containing t.
func DayKeyFor(t time.Time) DayKey {
	return DayKey(t.Format(dayKeyLayout))
}

// ParseDayKey validates a YYYY-MM-DD string from an external caller.
func ParseDayKey(s string) (DayKey, error) {
	if _, err := time.Parse(dayKeyLayout, s); err != nil {
		return "", NewValidationErrorWithValue("date", "must be formatted YYYY-MM-DD", s)
	}

	return DayKey(s), nil
}

// String implements fmt.Stringer.
func (k DayKey) String() string {
	return string(k)
}

// IsZero reports whether the key is unset.
func (k DayKey) IsZero() bool {
	return k == ""
}

// DailyIndex derives the deterministic pool index for a day.
// The key is folded through FNV-1a, a stable hash with no per-process
// seed, so restarts reproduce the same index for the same pool size.
// Returns 0 for an empty pool; callers handle that case explicitly.
func DailyIndex(key DayKey, poolSize int) int {
	if poolSize <= 0 {
		return 0
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return int(h.Sum32() % uint32(poolSize))
}
