// Package calendar defines the contract the availability engine consumes
// from an external calendar provider. Token refresh and credential storage
// are handled out-of-band by whoever constructs a Provider.
package calendar

import (
	"context"
	"time"
)

// BusyInterval is a half-open [Start, End) range a calendar reports as
// occupied, always on absolute instants.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Event describes an appointment to create.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	Timezone    string
	Attendees   []string
}

// Provider is the narrow calendar surface the engine depends on.
type Provider interface {
	// ListBusy returns busy intervals per calendar id for [start, end).
	ListBusy(ctx context.Context, calendarIDs []string, start, end time.Time) (map[string][]BusyInterval, error)
	// CreateEvent books an appointment and returns the provider's event id.
	CreateEvent(ctx context.Context, calendarID string, event Event) (string, error)
	// AccountTimezone returns the account's authoritative IANA zone name.
	AccountTimezone(ctx context.Context) (string, error)
}
