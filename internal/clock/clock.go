package clock

import "time"

// NowFunc returns current time. Override in tests for determinism.
var NowFunc = time.Now

// Now returns NowFunc in UTC.
func Now() time.Time { return NowFunc().UTC() }

// After returns the current time, moved past prev when the clock did not
// advance (coarse clocks, stubbed NowFunc).
func After(prev time.Time) time.Time {
	now := Now()
	if !prev.IsZero() && !now.After(prev) {
		now = prev.Add(time.Nanosecond)
	}
	return now
}
