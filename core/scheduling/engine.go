package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/voicedesk/voicedesk-core/core/calendar"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PointCheckLimit is the widest window a point-in-time availability check
// will answer. Anything broader fails with ErrBroadWindow before the
// provider is queried; slot listing is the right tool for those.
const PointCheckLimit = 4 * time.Hour

// BusinessHours is a daily bookable sub-window in the account timezone.
type BusinessHours struct {
	OpenHour    int
	OpenMinute  int
	CloseHour   int
	CloseMinute int
}

// DefaultBusinessHours is used when a request does not carry its own.
var DefaultBusinessHours = BusinessHours{OpenHour: 9, CloseHour: 17}

func (h BusinessHours) isZero() bool {
	return h.OpenHour == 0 && h.OpenMinute == 0 && h.CloseHour == 0 && h.CloseMinute == 0
}

// Engine composes the time normalizer, interval merger and slot generator
// against a calendar provider.
type Engine struct {
	provider calendar.Provider
	timezone string
}

// NewEngine builds an engine bound to a provider and the authoritative
// account timezone. An empty timezone means UTC.
func NewEngine(provider calendar.Provider, timezone string) *Engine {
	return &Engine{provider: provider, timezone: timezone}
}

// Timezone returns the authoritative zone the engine normalizes into.
func (e *Engine) Timezone() string {
	if e == nil {
		return ""
	}
	return e.timezone
}

// CheckRequest asks whether [Start, End) is free across the calendar union.
type CheckRequest struct {
	Start       string
	End         string
	CalendarIDs []string
}

// CheckResult reports availability together with the merged conflicts that
// were found, for transparency even when the window is free.
type CheckResult struct {
	Available bool
	Start     time.Time
	End       time.Time
	Conflicts []Interval
}

// CheckAvailability answers a point-in-time availability question across
// all selected calendars. The window is available iff the merged busy set
// inside it is empty.
func (e *Engine) CheckAvailability(ctx context.Context, request CheckRequest) (*CheckResult, error) {
	ctx, span := tracer.Start(ctx, "check availability")
	defer span.End()

	start, err := NormalizeToInstant(request.Start, e.timezone)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	end, err := NormalizeToInstant(request.End, e.timezone)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if !end.After(start) {
		return nil, recordSpanError(span, fmt.Errorf("%w: window end %q is not after start %q", ErrInvalidArguments, request.End, request.Start))
	}
	if err := requireCalendars(request.CalendarIDs); err != nil {
		return nil, recordSpanError(span, err)
	}

	span.SetAttributes(attribute.Float64("availability.window_hours", end.Sub(start).Hours()))
	if end.Sub(start) > PointCheckLimit {
		return nil, recordSpanError(span, fmt.Errorf("%w: %s window, limit is %s", ErrBroadWindow, end.Sub(start), PointCheckLimit))
	}

	busy, err := e.fetchBusy(ctx, request.CalendarIDs, start, end)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	conflicts := Merge(busy)
	span.SetAttributes(attribute.Int("availability.conflicts", len(conflicts)))
	return &CheckResult{
		Available: len(conflicts) == 0,
		Start:     start,
		End:       end,
		Conflicts: conflicts,
	}, nil
}

// SlotsRequest lists bookable slots for one calendar date.
type SlotsRequest struct {
	Date          string
	SlotDuration  time.Duration
	BusinessHours BusinessHours
	CalendarIDs   []string
}

// SlotsResult carries the discretized slots plus the windows they came from.
type SlotsResult struct {
	Date        time.Time
	Slots       []Interval
	FreeWindows []Interval
}

// AvailableSlots resolves the day and business-hours windows in the
// authoritative timezone, fetches the day's busy intervals in a single
// provider round trip, and discretizes the free time into slots.
func (e *Engine) AvailableSlots(ctx context.Context, request SlotsRequest) (*SlotsResult, error) {
	ctx, span := tracer.Start(ctx, "list available slots")
	defer span.End()

	day, err := DayWindow(request.Date, e.timezone)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if err := requireCalendars(request.CalendarIDs); err != nil {
		return nil, recordSpanError(span, err)
	}

	hours := request.BusinessHours
	if hours.isZero() {
		hours = DefaultBusinessHours
	}
	window := Interval{
		Start: day.Start.Add(time.Duration(hours.OpenHour)*time.Hour + time.Duration(hours.OpenMinute)*time.Minute),
		End:   day.Start.Add(time.Duration(hours.CloseHour)*time.Hour + time.Duration(hours.CloseMinute)*time.Minute),
	}
	if !window.End.After(window.Start) {
		return nil, recordSpanError(span, fmt.Errorf("%w: business hours close before they open", ErrInvalidArguments))
	}

	busy, err := e.fetchBusy(ctx, request.CalendarIDs, day.Start, day.End)
	if err != nil {
		return nil, recordSpanError(span, err)
	}

	free := FreeWindows(Merge(busy), window)
	slots := Slots(free, request.SlotDuration)
	span.SetAttributes(
		attribute.Int("availability.free_windows", len(free)),
		attribute.Int("availability.slots", len(slots)),
	)

	return &SlotsResult{Date: day.Start, Slots: slots, FreeWindows: free}, nil
}

// BookRequest creates an appointment on the primary selected calendar.
type BookRequest struct {
	Start       string
	End         string
	Summary     string
	Description string
	Attendees   []string
	CalendarIDs []string
}

// BookResult reports the created event.
type BookResult struct {
	EventID string
	Start   time.Time
	End     time.Time
}

// Book normalizes the requested window and creates the event through the
// provider. The first selected calendar receives the event; the union is
// only relevant for availability reads.
func (e *Engine) Book(ctx context.Context, request BookRequest) (*BookResult, error) {
	ctx, span := tracer.Start(ctx, "book appointment")
	defer span.End()

	start, err := NormalizeToInstant(request.Start, e.timezone)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	end, err := NormalizeToInstant(request.End, e.timezone)
	if err != nil {
		return nil, recordSpanError(span, err)
	}
	if !end.After(start) {
		return nil, recordSpanError(span, fmt.Errorf("%w: appointment end is not after start", ErrInvalidArguments))
	}
	if err := requireCalendars(request.CalendarIDs); err != nil {
		return nil, recordSpanError(span, err)
	}
	if request.Summary == "" {
		return nil, recordSpanError(span, &MissingFieldError{Field: "summary"})
	}

	eventID, err := e.provider.CreateEvent(ctx, request.CalendarIDs[0], calendar.Event{
		Summary:     request.Summary,
		Description: request.Description,
		Start:       start,
		End:         end,
		Timezone:    e.timezone,
		Attendees:   request.Attendees,
	})
	if err != nil {
		return nil, recordSpanError(span, &ProviderError{Op: "create event", Err: err})
	}

	span.SetAttributes(attribute.String("availability.event_id", eventID))
	return &BookResult{EventID: eventID, Start: start, End: end}, nil
}

func (e *Engine) fetchBusy(ctx context.Context, calendarIDs []string, start, end time.Time) ([]Interval, error) {
	perCalendar, err := e.provider.ListBusy(ctx, calendarIDs, start, end)
	if err != nil {
		return nil, &ProviderError{Op: "list busy", Err: err}
	}

	busy := []Interval{}
	for _, intervals := range perCalendar {
		for _, interval := range intervals {
			busy = append(busy, Interval{Start: interval.Start, End: interval.End})
		}
	}
	return busy, nil
}

func requireCalendars(calendarIDs []string) error {
	if len(calendarIDs) == 0 {
		return &MissingFieldError{Field: "calendarIds"}
	}
	return nil
}

func recordSpanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
