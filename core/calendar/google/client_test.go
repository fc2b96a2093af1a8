package google

import (
	"strings"
	"testing"

	calendarapi "google.golang.org/api/calendar/v3"
)

func TestParsePeriodReadsRFC3339Bounds(t *testing.T) {
	interval, err := parsePeriod(&calendarapi.TimePeriod{
		Start: "2025-03-10T09:00:00Z",
		End:   "2025-03-10T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if interval.End.Sub(interval.Start).Hours() != 1 {
		t.Fatalf("expected a 1h interval, got %v", interval.End.Sub(interval.Start))
	}
}

func TestCollectBusyMapsEveryRequestedCalendar(t *testing.T) {
	busy, err := collectBusy([]string{"primary", "front-desk"}, map[string]calendarapi.FreeBusyCalendar{
		"primary": {Busy: []*calendarapi.TimePeriod{
			{Start: "2025-03-10T09:00:00Z", End: "2025-03-10T10:00:00Z"},
		}},
		"front-desk": {},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(busy["primary"]) != 1 {
		t.Fatalf("expected one busy interval on primary, got %d", len(busy["primary"]))
	}
	if len(busy["front-desk"]) != 0 {
		t.Fatalf("expected no busy intervals on front-desk, got %d", len(busy["front-desk"]))
	}
}

func TestCollectBusyFailsOnErroredCalendar(t *testing.T) {
	_, err := collectBusy([]string{"primary"}, map[string]calendarapi.FreeBusyCalendar{
		"primary": {Errors: []*calendarapi.Error{{Domain: "global", Reason: "notFound"}}},
	})
	if err == nil {
		t.Fatal("an errored calendar must fail the lookup, not read as free")
	}
	if !strings.Contains(err.Error(), "notFound") {
		t.Fatalf("expected the provider reason in the error, got %v", err)
	}
}

func TestCollectBusyFailsOnCalendarMissingFromResponse(t *testing.T) {
	_, err := collectBusy([]string{"primary", "front-desk"}, map[string]calendarapi.FreeBusyCalendar{
		"primary": {},
	})
	if err == nil {
		t.Fatal("a calendar absent from the response must fail the lookup")
	}
	if !strings.Contains(err.Error(), "front-desk") {
		t.Fatalf("expected the missing calendar id in the error, got %v", err)
	}
}

func TestParsePeriodRejectsMalformedBounds(t *testing.T) {
	if _, err := parsePeriod(&calendarapi.TimePeriod{Start: "yesterday", End: "2025-03-10T10:00:00Z"}); err == nil {
		t.Fatal("expected an error for a malformed start")
	}
	if _, err := parsePeriod(&calendarapi.TimePeriod{Start: "2025-03-10T09:00:00Z", End: "later"}); err == nil {
		t.Fatal("expected an error for a malformed end")
	}
}
