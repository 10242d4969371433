// Package utils provides shared utility functions.
package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// MinuteOfDay is a wall-clock time expressed as minutes since midnight IST.
type MinuteOfDay int

// NewMinuteOfDay builds a MinuteOfDay from hour and minute.
func NewMinuteOfDay(hour, minute int) MinuteOfDay {
	return MinuteOfDay(hour*60 + minute)
}

// MinuteOf converts a timestamp to its minute-of-day in IST.
func MinuteOf(t time.Time) MinuteOfDay {
	t = t.In(IndiaLocation)
	return MinuteOfDay(t.Hour()*60 + t.Minute())
}

// At anchors the minute-of-day onto the calendar day of ref, in IST.
func (m MinuteOfDay) At(ref time.Time) time.Time {
	ref = ref.In(IndiaLocation)
	return time.Date(ref.Year(), ref.Month(), ref.Day(), int(m)/60, int(m)%60, 0, 0, IndiaLocation)
}

// String formats the minute-of-day as HH:MM.
func (m MinuteOfDay) String() string {
	return m.At(time.Now()).Format("15:04")
}

// CanonicalSlots is the fixed ordered set of alert slots. Raw trigger times
// snap up to the first slot that is not earlier than the trigger.
var CanonicalSlots = []MinuteOfDay{
	NewMinuteOfDay(10, 15),
	NewMinuteOfDay(11, 15),
	NewMinuteOfDay(12, 15),
	NewMinuteOfDay(13, 15),
	NewMinuteOfDay(14, 15),
	NewMinuteOfDay(15, 15),
}

// CycleTimes are the wall-clock times at which the scheduler re-evaluates
// pending records. Cycles are spaced at least 45 minutes apart; the
// scheduler relies on that spacing and additionally enforces single-flight.
var CycleTimes = []MinuteOfDay{
	NewMinuteOfDay(10, 30),
	NewMinuteOfDay(11, 15),
	NewMinuteOfDay(12, 15),
	NewMinuteOfDay(13, 15),
	NewMinuteOfDay(14, 15),
}

// CycleReferenceSlots maps each cycle, by index, to the canonical slot it
// covers. The 10:30 cycle picks up alerts snapped to 10:15; later cycles
// fire exactly on their slot.
var CycleReferenceSlots = []MinuteOfDay{
	NewMinuteOfDay(10, 15),
	NewMinuteOfDay(11, 15),
	NewMinuteOfDay(12, 15),
	NewMinuteOfDay(13, 15),
	NewMinuteOfDay(14, 15),
}

// MarketOpen is the NSE session open (9:15 IST). It doubles as the VWAP
// baseline reference for the first cycle of the day.
var MarketOpen = NewMinuteOfDay(9, 15)

// MarketClose is the NSE session close (15:30 IST).
var MarketClose = NewMinuteOfDay(15, 30)

// SnapToSlot snaps a raw trigger time up to the nearest canonical slot that
// is not earlier than it. Triggers after the last slot clamp to the last
// slot; the half-open interval (prevSlot, slot] maps to slot.
func SnapToSlot(t time.Time) time.Time {
	m := MinuteOf(t)
	for _, slot := range CanonicalSlots {
		if m <= slot {
			return slot.At(t)
		}
	}
	return CanonicalSlots[len(CanonicalSlots)-1].At(t)
}

// FirstSlotOfDay returns the day-open canonical slot for the given day.
func FirstSlotOfDay(ref time.Time) time.Time {
	return CanonicalSlots[0].At(ref)
}

// PreviousReferenceTime returns the VWAP baseline time for a cycle: the
// prior cycle's reference slot, or market open for the first cycle.
func PreviousReferenceTime(cycleIdx int, ref time.Time) time.Time {
	if cycleIdx <= 0 {
		return MarketOpen.At(ref)
	}
	return CycleReferenceSlots[cycleIdx-1].At(ref)
}

// IsTradingDay reports whether the given day is a regular weekday session.
func IsTradingDay(t time.Time) bool {
	wd := t.In(IndiaLocation).Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsMarketOpen reports whether the regular session is in progress.
func IsMarketOpen(t time.Time) bool {
	if !IsTradingDay(t) {
		return false
	}
	m := MinuteOf(t)
	return m >= MarketOpen && m < MarketClose
}

// SameDay reports whether two timestamps fall on the same IST calendar day.
func SameDay(a, b time.Time) bool {
	a = a.In(IndiaLocation)
	b = b.In(IndiaLocation)
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// DayStart returns midnight IST for the day of t.
func DayStart(t time.Time) time.Time {
	t = t.In(IndiaLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, IndiaLocation)
}
