package orchestration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockPattern    = regexp.MustCompile(`(?i)\b(\d{1,2})(?::(\d{2}))?\s*(a\.?m\.?|p\.?m\.?)?\b`)
	meridiemPattern = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(a\.?m\.?|p\.?m\.?)\b|\b\d{1,2}:\d{2}\b|\bnoon\b|\bmidnight\b`)
	dayPattern      = regexp.MustCompile(`(?i)\b(today|tomorrow|monday|tuesday|wednesday|thursday|friday|saturday|sunday)\b|\b\d{4}-\d{2}-\d{2}\b`)
	shortUtterance  = regexp.MustCompile(`(?i)^(yes|yeah|yep|no|nope|ok|okay|sure|book|cancel|slot|time)\b`)

	weekdays = map[string]time.Weekday{
		"sunday":    time.Sunday,
		"monday":    time.Monday,
		"tuesday":   time.Tuesday,
		"wednesday": time.Wednesday,
		"thursday":  time.Thursday,
		"friday":    time.Friday,
		"saturday":  time.Saturday,
	}
)

// timeBearing reports whether the text names a concrete time of day, such
// as "3pm", "14:30", "noon" or "midnight". A bare number without either a
// meridiem or minutes is not enough.
func timeBearing(text string) bool {
	return meridiemPattern.MatchString(text)
}

// dayBearing reports whether the text names a day, either relatively
// ("tomorrow", a weekday name) or as an explicit date.
func dayBearing(text string) bool {
	return dayPattern.MatchString(text)
}

// meaningfulUtterance filters out transcription noise. Anything with at
// least two characters counts; single-character fragments only count when
// they open a recognized affirmation, negation or scheduling keyword.
func meaningfulUtterance(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len([]rune(trimmed)) >= 2 {
		return true
	}

	return shortUtterance.MatchString(trimmed)
}

// parseTimeOfDay extracts the first concrete time of day from a raw
// transcript. It understands "3pm", "3:30 p.m.", "14:30", "noon" and
// "midnight"; a bare hour without a meridiem is ambiguous and rejected.
func parseTimeOfDay(text string) (hour, minute int, ok bool) {
	lowered := strings.ToLower(text)
	if strings.Contains(lowered, "noon") {
		return 12, 0, true
	}
	if strings.Contains(lowered, "midnight") {
		return 0, 0, true
	}

	match := clockPattern.FindStringSubmatch(text)
	if match == nil {
		return 0, 0, false
	}

	hour, err := strconv.Atoi(match[1])
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	if match[2] != "" {
		minute, err = strconv.Atoi(match[2])
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}

	meridiem := strings.ToLower(strings.ReplaceAll(match[3], ".", ""))
	switch meridiem {
	case "am":
		if hour == 12 {
			hour = 0
		}
	case "pm":
		if hour < 12 {
			hour += 12
		}
	default:
		if match[2] == "" {
			return 0, 0, false
		}
	}
	if hour > 23 {
		return 0, 0, false
	}

	return hour, minute, true
}

// resolveDayReference maps a relative day mention onto a calendar date,
// using now as the anchor. Weekday names resolve to the next occurrence,
// today included. When the text carries no day reference the anchor's own
// date is returned.
func resolveDayReference(text string, now time.Time) time.Time {
	match := dayPattern.FindString(strings.ToLower(text))
	switch {
	case match == "", match == "today":
		return now
	case match == "tomorrow":
		return now.AddDate(0, 0, 1)
	}

	if weekday, found := weekdays[match]; found {
		offset := (int(weekday) - int(now.Weekday()) + 7) % 7
		return now.AddDate(0, 0, offset)
	}

	if parsed, err := time.ParseInLocation("2006-01-02", match, now.Location()); err == nil {
		return parsed
	}

	return now
}

// fallbackInstant combines the day and time-of-day references found in a
// transcript into a local timestamp string suitable for the availability
// engine. It fails when no concrete time of day is present.
func fallbackInstant(transcript string, now time.Time) (string, bool) {
	hour, minute, ok := parseTimeOfDay(transcript)
	if !ok {
		return "", false
	}

	day := resolveDayReference(transcript, now)

	return fmt.Sprintf("%sT%02d:%02d:00", day.Format("2006-01-02"), hour, minute), true
}
