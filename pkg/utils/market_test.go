package utils

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func istTime(hour, minute int) time.Time {
	return time.Date(2025, 7, 7, hour, minute, 0, 0, IndiaLocation)
}

func TestSnapToSlot(t *testing.T) {
	cases := []struct {
		in   time.Time
		want string
	}{
		{istTime(9, 20), "10:15"},
		{istTime(10, 7), "10:15"},
		{istTime(10, 15), "10:15"}, // boundary belongs to its own slot
		{istTime(10, 16), "11:15"},
		{istTime(12, 15), "12:15"},
		{istTime(14, 20), "15:15"},
		{istTime(15, 15), "15:15"},
		{istTime(15, 29), "15:15"}, // past the last slot clamps
	}

	for _, tc := range cases {
		t.Run(tc.in.Format("15:04"), func(t *testing.T) {
			got := SnapToSlot(tc.in)
			assert.Equal(t, tc.want, got.Format("15:04"))
			assert.True(t, SameDay(tc.in, got))
		})
	}
}

func TestPreviousReferenceTime(t *testing.T) {
	ref := istTime(12, 0)

	assert.Equal(t, "09:15", PreviousReferenceTime(0, ref).Format("15:04"))
	assert.Equal(t, "10:15", PreviousReferenceTime(1, ref).Format("15:04"))
	assert.Equal(t, "13:15", PreviousReferenceTime(4, ref).Format("15:04"))
}

func TestCycleReferenceSlotsAlign(t *testing.T) {
	// Every cycle fires at or after the slot it covers.
	for i, cycle := range CycleTimes {
		assert.GreaterOrEqual(t, int(cycle), int(CycleReferenceSlots[i]),
			"cycle %d fires before its reference slot", i)
	}
}

func TestIsMarketOpen(t *testing.T) {
	assert.False(t, IsMarketOpen(istTime(9, 14)))
	assert.True(t, IsMarketOpen(istTime(9, 15)))
	assert.True(t, IsMarketOpen(istTime(15, 29)))
	assert.False(t, IsMarketOpen(istTime(15, 30)))

	saturday := time.Date(2025, 7, 5, 11, 0, 0, 0, IndiaLocation)
	assert.False(t, IsMarketOpen(saturday))
	assert.False(t, IsTradingDay(saturday))
}

func TestMinuteOfDay(t *testing.T) {
	m := NewMinuteOfDay(10, 15)
	assert.Equal(t, MinuteOfDay(615), m)
	assert.Equal(t, m, MinuteOf(istTime(10, 15)))

	at := m.At(istTime(14, 50))
	assert.Equal(t, "10:15", at.Format("15:04"))
	assert.True(t, SameDay(at, istTime(14, 50)))
}

// Snapping never moves a trigger backwards and always lands on a canonical
// slot on the same day.
func TestSnapToSlotProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	isCanonical := func(m MinuteOfDay) bool {
		for _, slot := range CanonicalSlots {
			if m == slot {
				return true
			}
		}
		return false
	}

	properties.Property("snaps up onto a canonical slot", prop.ForAll(
		func(hour, minute int) bool {
			in := istTime(hour, minute)
			got := SnapToSlot(in)

			if !SameDay(in, got) || !isCanonical(MinuteOf(got)) {
				return false
			}
			// Result is never earlier than the input unless clamped to the
			// last slot of the day.
			if got.Before(in) {
				return MinuteOf(got) == CanonicalSlots[len(CanonicalSlots)-1]
			}
			return true
		},
		gen.IntRange(9, 15),
		gen.IntRange(0, 59),
	))

	properties.Property("idempotent", prop.ForAll(
		func(hour, minute int) bool {
			once := SnapToSlot(istTime(hour, minute))
			return SnapToSlot(once).Equal(once)
		},
		gen.IntRange(9, 15),
		gen.IntRange(0, 59),
	))

	properties.TestingRun(t)
}
