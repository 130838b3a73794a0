package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAfter(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	NowFunc = func() time.Time { return fixed }
	defer func() { NowFunc = time.Now }()

	testCases := []struct {
		description string
		prev        time.Time
		expected    time.Time
	}{
		{description: "zero prev", prev: time.Time{}, expected: fixed},
		{description: "earlier prev", prev: fixed.Add(-time.Second), expected: fixed},
		{description: "tie", prev: fixed, expected: fixed.Add(time.Nanosecond)},
		{description: "prev ahead", prev: fixed.Add(time.Second), expected: fixed.Add(time.Second + time.Nanosecond)},
	}
	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			assert.Equal(t, tc.expected, After(tc.prev))
		})
	}
}
