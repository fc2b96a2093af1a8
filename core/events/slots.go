package events

import "time"

const (
	// KindSlotsDiscovered identifies availability results for a date.
	KindSlotsDiscovered Kind = "slots.discovered"
)

// DiscoveredSlot is one bookable slot surfaced to observers.
type DiscoveredSlot struct {
	Start time.Time
	End   time.Time
}

// SlotsDiscovered carries a day's bookable slots.
type SlotsDiscovered struct {
	Base
	Date  time.Time
	Slots []DiscoveredSlot
}

// NewSlotsDiscovered creates a slots discovered event.
func NewSlotsDiscovered(date time.Time, slots []DiscoveredSlot) SlotsDiscovered {
	return SlotsDiscovered{Base: NewBase(KindSlotsDiscovered), Date: date, Slots: slots}
}
