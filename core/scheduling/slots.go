package scheduling

import "time"

const (
	// MinSlotDuration and MaxSlotDuration bound requested slot lengths.
	MinSlotDuration = 5 * time.Minute
	MaxSlotDuration = 240 * time.Minute
)

// ClampSlotDuration clamps a requested slot length into the supported range.
// Non-positive requests fall back to the minimum.
func ClampSlotDuration(requested time.Duration) time.Duration {
	if requested < MinSlotDuration {
		return MinSlotDuration
	}
	if requested > MaxSlotDuration {
		return MaxSlotDuration
	}
	return requested
}

// Slots discretizes free windows into back-to-back slots of exactly
// slotDuration. A remainder shorter than one slot is dropped; no short
// slots are ever emitted. Every slot lies entirely inside one free window.
func Slots(free []Interval, slotDuration time.Duration) []Interval {
	slotDuration = ClampSlotDuration(slotDuration)

	slots := []Interval{}
	for _, window := range free {
		for start := window.Start; !start.Add(slotDuration).After(window.End); start = start.Add(slotDuration) {
			slots = append(slots, Interval{Start: start, End: start.Add(slotDuration)})
		}
	}

	return slots
}
