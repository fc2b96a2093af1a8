package scheduling

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/voicedesk/voicedesk-core/core/calendar"
)

type fakeProvider struct {
	busy          map[string][]calendar.BusyInterval
	listBusyCalls int
	listBusyErr   error

	createdEvents []calendar.Event
	createEventID string
	createErr     error
}

func (p *fakeProvider) ListBusy(_ context.Context, calendarIDs []string, _, _ time.Time) (map[string][]calendar.BusyInterval, error) {
	p.listBusyCalls++
	if p.listBusyErr != nil {
		return nil, p.listBusyErr
	}

	result := map[string][]calendar.BusyInterval{}
	for _, id := range calendarIDs {
		result[id] = p.busy[id]
	}
	return result, nil
}

func (p *fakeProvider) CreateEvent(_ context.Context, _ string, event calendar.Event) (string, error) {
	if p.createErr != nil {
		return "", p.createErr
	}
	p.createdEvents = append(p.createdEvents, event)
	if p.createEventID == "" {
		return "event-1", nil
	}
	return p.createEventID, nil
}

func (p *fakeProvider) AccountTimezone(context.Context) (string, error) { return "UTC", nil }

func busyAt(t *testing.T, start, end string) calendar.BusyInterval {
	t.Helper()
	window := interval(t, start, end)
	return calendar.BusyInterval{Start: window.Start, End: window.End}
}

func TestCheckAvailabilityFreeWindowIsAvailable(t *testing.T) {
	provider := &fakeProvider{}
	engine := NewEngine(provider, "UTC")

	result, err := engine.CheckAvailability(context.Background(), CheckRequest{
		Start:       "2025-03-10T10:00:00",
		End:         "2025-03-10T11:00:00",
		CalendarIDs: []string{"primary"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.Available {
		t.Fatal("expected window to be available")
	}
	if len(result.Conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %d", len(result.Conflicts))
	}
}

func TestCheckAvailabilityReportsMergedConflictsAcrossCalendars(t *testing.T) {
	provider := &fakeProvider{busy: map[string][]calendar.BusyInterval{
		"work":     {busyAt(t, "10:00", "10:45")},
		"personal": {busyAt(t, "10:30", "11:00")},
	}}
	engine := NewEngine(provider, "UTC")

	result, err := engine.CheckAvailability(context.Background(), CheckRequest{
		Start:       "2025-03-10T10:00:00",
		End:         "2025-03-10T11:00:00",
		CalendarIDs: []string{"work", "personal"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Available {
		t.Fatal("expected window to be unavailable")
	}
	if len(result.Conflicts) != 1 {
		t.Fatalf("expected a single merged conflict, got %d", len(result.Conflicts))
	}
	if !result.Conflicts[0].Start.Equal(at(t, "10:00")) || !result.Conflicts[0].End.Equal(at(t, "11:00")) {
		t.Fatalf("expected merged conflict 10:00-11:00, got %v-%v", result.Conflicts[0].Start, result.Conflicts[0].End)
	}
}

func TestCheckAvailabilityBroadWindowFailsWithoutProviderCall(t *testing.T) {
	provider := &fakeProvider{}
	engine := NewEngine(provider, "UTC")

	_, err := engine.CheckAvailability(context.Background(), CheckRequest{
		Start:       "2025-03-10T09:00:00",
		End:         "2025-03-10T14:00:00",
		CalendarIDs: []string{"primary"},
	})

	if !errors.Is(err, ErrBroadWindow) {
		t.Fatalf("expected ErrBroadWindow, got %v", err)
	}
	if provider.listBusyCalls != 0 {
		t.Fatalf("expected no provider calls for a broad window, got %d", provider.listBusyCalls)
	}
}

func TestCheckAvailabilityExactlyFourHoursIsAllowed(t *testing.T) {
	engine := NewEngine(&fakeProvider{}, "UTC")

	_, err := engine.CheckAvailability(context.Background(), CheckRequest{
		Start:       "2025-03-10T09:00:00",
		End:         "2025-03-10T13:00:00",
		CalendarIDs: []string{"primary"},
	})
	if err != nil {
		t.Fatalf("expected 4h window to pass the guardrail, got %v", err)
	}
}

func TestCheckAvailabilityProviderFailureIsNeverAvailable(t *testing.T) {
	provider := &fakeProvider{listBusyErr: fmt.Errorf("rate limited")}
	engine := NewEngine(provider, "UTC")

	result, err := engine.CheckAvailability(context.Background(), CheckRequest{
		Start:       "2025-03-10T10:00:00",
		End:         "2025-03-10T11:00:00",
		CalendarIDs: []string{"primary"},
	})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if result != nil {
		t.Fatal("expected no result on provider failure")
	}
}

func TestCheckAvailabilityRequiresCalendars(t *testing.T) {
	engine := NewEngine(&fakeProvider{}, "UTC")

	_, err := engine.CheckAvailability(context.Background(), CheckRequest{
		Start: "2025-03-10T10:00:00",
		End:   "2025-03-10T11:00:00",
	})

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
}

func TestAvailableSlotsSingleProviderRoundTrip(t *testing.T) {
	provider := &fakeProvider{busy: map[string][]calendar.BusyInterval{
		"primary": {busyAt(t, "09:00", "10:00")},
	}}
	engine := NewEngine(provider, "UTC")

	result, err := engine.AvailableSlots(context.Background(), SlotsRequest{
		Date:         "2025-03-10",
		SlotDuration: 60 * time.Minute,
		CalendarIDs:  []string{"primary"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.listBusyCalls != 1 {
		t.Fatalf("expected exactly one provider round trip, got %d", provider.listBusyCalls)
	}
	if len(result.Slots) != 7 {
		t.Fatalf("expected 7 hourly slots after a 09:00-10:00 meeting, got %d", len(result.Slots))
	}
	if !result.Slots[0].Start.Equal(at(t, "10:00")) {
		t.Fatalf("expected first slot at 10:00, got %v", result.Slots[0].Start)
	}
	if !result.Slots[6].End.Equal(at(t, "17:00")) {
		t.Fatalf("expected last slot to end at business close 17:00, got %v", result.Slots[6].End)
	}
}

func TestAvailableSlotsHonorsCustomBusinessHours(t *testing.T) {
	engine := NewEngine(&fakeProvider{}, "UTC")

	result, err := engine.AvailableSlots(context.Background(), SlotsRequest{
		Date:          "2025-03-10",
		SlotDuration:  30 * time.Minute,
		BusinessHours: BusinessHours{OpenHour: 8, CloseHour: 12},
		CalendarIDs:   []string{"primary"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Slots) != 8 {
		t.Fatalf("expected 8 half-hour slots between 08:00 and 12:00, got %d", len(result.Slots))
	}
	if !result.Slots[0].Start.Equal(at(t, "08:00")) {
		t.Fatalf("expected first slot at 08:00, got %v", result.Slots[0].Start)
	}
}

func TestAvailableSlotsResolvesDayInAccountTimezone(t *testing.T) {
	provider := &fakeProvider{}
	engine := NewEngine(provider, "America/New_York")

	result, err := engine.AvailableSlots(context.Background(), SlotsRequest{
		Date:         "2025-01-15",
		SlotDuration: 60 * time.Minute,
		CalendarIDs:  []string{"primary"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 09:00 New York in January is 14:00 UTC.
	if got := result.Slots[0].Start.UTC().Hour(); got != 14 {
		t.Fatalf("expected first slot at 14:00 UTC, got %02d:00", got)
	}
}

func TestBookCreatesEventOnPrimaryCalendar(t *testing.T) {
	provider := &fakeProvider{createEventID: "evt-42"}
	engine := NewEngine(provider, "UTC")

	result, err := engine.Book(context.Background(), BookRequest{
		Start:       "2025-03-10T10:00:00",
		End:         "2025-03-10T11:00:00",
		Summary:     "Consultation with Dana",
		Attendees:   []string{"dana@example.com"},
		CalendarIDs: []string{"primary", "secondary"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.EventID != "evt-42" {
		t.Fatalf("expected event id evt-42, got %q", result.EventID)
	}
	if len(provider.createdEvents) != 1 {
		t.Fatalf("expected one created event, got %d", len(provider.createdEvents))
	}
	if provider.createdEvents[0].Summary != "Consultation with Dana" {
		t.Fatalf("unexpected summary %q", provider.createdEvents[0].Summary)
	}
}

func TestBookRequiresSummary(t *testing.T) {
	engine := NewEngine(&fakeProvider{}, "UTC")

	_, err := engine.Book(context.Background(), BookRequest{
		Start:       "2025-03-10T10:00:00",
		End:         "2025-03-10T11:00:00",
		CalendarIDs: []string{"primary"},
	})

	var missing *MissingFieldError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingFieldError, got %v", err)
	}
}
