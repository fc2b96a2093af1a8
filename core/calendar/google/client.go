// Package google implements the calendar provider contract on top of the
// Google Calendar API. Credentials arrive as an oauth2.TokenSource; token
// refresh is whoever owns the credential store's problem, not this client's.
package google

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendarapi "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/voicedesk/voicedesk-core/core/calendar"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Client struct {
	service *calendarapi.Service
}

// NewClient builds a calendar client authenticated by tokenSource.
func NewClient(ctx context.Context, tokenSource oauth2.TokenSource, opts ...option.ClientOption) (*Client, error) {
	options := append([]option.ClientOption{option.WithTokenSource(tokenSource)}, opts...)
	service, err := calendarapi.NewService(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize calendar service: %w", err)
	}

	return &Client{service: service}, nil
}

// ListBusy queries free/busy information for every requested calendar in a
// single API round trip.
func (c *Client) ListBusy(ctx context.Context, calendarIDs []string, start, end time.Time) (map[string][]calendar.BusyInterval, error) {
	ctx, span := tracer.Start(ctx, "calendar freebusy query")
	defer span.End()
	span.SetAttributes(attribute.Int("calendar.count", len(calendarIDs)))

	items := make([]*calendarapi.FreeBusyRequestItem, 0, len(calendarIDs))
	for _, id := range calendarIDs {
		items = append(items, &calendarapi.FreeBusyRequestItem{Id: id})
	}

	response, err := c.service.Freebusy.Query(&calendarapi.FreeBusyRequest{
		TimeMin: start.Format(time.RFC3339),
		TimeMax: end.Format(time.RFC3339),
		Items:   items,
	}).Context(ctx).Do()
	if err != nil {
		err = fmt.Errorf("freebusy query failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	busy, err := collectBusy(calendarIDs, response.Calendars)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return busy, nil
}

// collectBusy maps the freebusy response onto the provider contract. A
// requested calendar that errored, or is missing from the response
// entirely, fails the whole lookup: its zero busy intervals would
// otherwise read as free time.
func collectBusy(requested []string, calendars map[string]calendarapi.FreeBusyCalendar) (map[string][]calendar.BusyInterval, error) {
	busy := make(map[string][]calendar.BusyInterval, len(requested))
	for _, id := range requested {
		entry, found := calendars[id]
		if !found {
			return nil, fmt.Errorf("calendar %q missing from freebusy response", id)
		}
		if len(entry.Errors) > 0 {
			return nil, fmt.Errorf("calendar %q freebusy lookup failed: %s", id, entry.Errors[0].Reason)
		}
		intervals := make([]calendar.BusyInterval, 0, len(entry.Busy))
		for _, period := range entry.Busy {
			interval, err := parsePeriod(period)
			if err != nil {
				return nil, fmt.Errorf("calendar %q returned a malformed busy period: %w", id, err)
			}
			intervals = append(intervals, interval)
		}
		busy[id] = intervals
	}

	return busy, nil
}

// CreateEvent books an appointment and returns the created event id.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, event calendar.Event) (string, error) {
	ctx, span := tracer.Start(ctx, "calendar event insert")
	defer span.End()

	attendees := make([]*calendarapi.EventAttendee, 0, len(event.Attendees))
	for _, email := range event.Attendees {
		attendees = append(attendees, &calendarapi.EventAttendee{Email: email})
	}

	created, err := c.service.Events.Insert(calendarID, &calendarapi.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start:       &calendarapi.EventDateTime{DateTime: event.Start.Format(time.RFC3339), TimeZone: event.Timezone},
		End:         &calendarapi.EventDateTime{DateTime: event.End.Format(time.RFC3339), TimeZone: event.Timezone},
		Attendees:   attendees,
	}).Context(ctx).Do()
	if err != nil {
		err = fmt.Errorf("event insert failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	span.SetAttributes(attribute.String("calendar.event_id", created.Id))
	return created.Id, nil
}

// AccountTimezone reads the account's timezone setting.
func (c *Client) AccountTimezone(ctx context.Context) (string, error) {
	ctx, span := tracer.Start(ctx, "calendar timezone lookup")
	defer span.End()

	setting, err := c.service.Settings.Get("timezone").Context(ctx).Do()
	if err != nil {
		err = fmt.Errorf("timezone setting lookup failed: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return setting.Value, nil
}

func parsePeriod(period *calendarapi.TimePeriod) (calendar.BusyInterval, error) {
	start, err := time.Parse(time.RFC3339, period.Start)
	if err != nil {
		return calendar.BusyInterval{}, fmt.Errorf("bad start %q: %w", period.Start, err)
	}
	end, err := time.Parse(time.RFC3339, period.End)
	if err != nil {
		return calendar.BusyInterval{}, fmt.Errorf("bad end %q: %w", period.End, err)
	}
	return calendar.BusyInterval{Start: start, End: end}, nil
}
