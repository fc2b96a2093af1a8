package orchestration

import (
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		text   string
		hour   int
		minute int
		ok     bool
	}{
		{text: "do you have 3pm", hour: 15, ok: true},
		{text: "how about 3:30 p.m.?", hour: 15, minute: 30, ok: true},
		{text: "9 AM works", hour: 9, ok: true},
		{text: "12 am then", hour: 0, ok: true},
		{text: "12pm please", hour: 12, ok: true},
		{text: "14:30 would be great", hour: 14, minute: 30, ok: true},
		{text: "around noon", hour: 12, ok: true},
		{text: "midnight if you must", hour: 0, ok: true},
		{text: "maybe at 3", ok: false},
		{text: "see you tomorrow", ok: false},
	}

	for _, c := range cases {
		hour, minute, ok := parseTimeOfDay(c.text)
		if ok != c.ok {
			t.Errorf("parseTimeOfDay(%q) ok = %t, expected %t", c.text, ok, c.ok)
			continue
		}
		if ok && (hour != c.hour || minute != c.minute) {
			t.Errorf("parseTimeOfDay(%q) = %d:%02d, expected %d:%02d", c.text, hour, minute, c.hour, c.minute)
		}
	}
}

func TestTimeAndDayBearing(t *testing.T) {
	if !timeBearing("is 3pm open") {
		t.Error("a meridiem time should be time-bearing")
	}
	if !timeBearing("is 14:30 open") {
		t.Error("a 24h clock time should be time-bearing")
	}
	if timeBearing("maybe at 3") {
		t.Error("a bare hour is ambiguous and should not be time-bearing")
	}
	if !dayBearing("anything on friday?") {
		t.Error("a weekday should be day-bearing")
	}
	if !dayBearing("how about 2025-03-10") {
		t.Error("an explicit date should be day-bearing")
	}
	if dayBearing("can you hear me") {
		t.Error("small talk should not be day-bearing")
	}
}

func TestMeaningfulUtterance(t *testing.T) {
	for _, text := range []string{"yes", "no", "book it", "hm?", "ok"} {
		if !meaningfulUtterance(text) {
			t.Errorf("%q should be meaningful", text)
		}
	}
	for _, text := range []string{"", " ", "m"} {
		if meaningfulUtterance(text) {
			t.Errorf("%q should not be meaningful", text)
		}
	}
}

func TestResolveDayReference(t *testing.T) {
	// A Monday.
	anchor := time.Date(2025, time.March, 10, 11, 0, 0, 0, time.UTC)

	cases := []struct {
		text string
		want string
	}{
		{text: "later today", want: "2025-03-10"},
		{text: "tomorrow morning", want: "2025-03-11"},
		{text: "on friday", want: "2025-03-14"},
		{text: "next monday", want: "2025-03-10"},
		{text: "on 2025-04-01", want: "2025-04-01"},
		{text: "whenever", want: "2025-03-10"},
	}

	for _, c := range cases {
		if got := resolveDayReference(c.text, anchor).Format("2006-01-02"); got != c.want {
			t.Errorf("resolveDayReference(%q) = %s, expected %s", c.text, got, c.want)
		}
	}
}

func TestFallbackInstant(t *testing.T) {
	anchor := time.Date(2025, time.March, 10, 11, 0, 0, 0, time.UTC)

	instant, ok := fallbackInstant("is 3pm tomorrow open?", anchor)
	if !ok {
		t.Fatal("expected a concrete instant")
	}
	if instant != "2025-03-11T15:00:00" {
		t.Fatalf("unexpected instant %s", instant)
	}

	if _, ok := fallbackInstant("anything on friday?", anchor); ok {
		t.Fatal("a day without a time of day must not produce an instant")
	}
}
