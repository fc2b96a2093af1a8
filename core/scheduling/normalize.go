package scheduling

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

var trailingOffsetPattern = regexp.MustCompile(`(Z|[+-]\d{2}:?\d{2})$`)

const wallClockLayout = "2006-01-02T15:04:05"

// NormalizeToInstant converts a wall-clock datetime string into an absolute
// instant in the given IANA timezone.
//
// Any offset or "Z" marker already present on the input is stripped and the
// offset is re-derived from timezone: the caller's stated offset is never
// trusted over the authoritative account timezone. An empty timezone means
// UTC. Inputs missing seconds are zero-padded.
//
// The offset is read from a reference instant (the wall clock interpreted as
// UTC) and rounded to the nearest whole hour, so zones with fractional-hour
// offsets are misrepresented. Known limitation.
func NormalizeToInstant(input string, timezone string) (time.Time, error) {
	wallClock := strings.TrimSpace(input)
	if wallClock == "" {
		return time.Time{}, &MissingFieldError{Field: "datetime"}
	}

	wallClock = strings.Replace(wallClock, " ", "T", 1)
	wallClock = trailingOffsetPattern.ReplaceAllString(wallClock, "")

	// "2006-01-02T15:04" is the shortest accepted shape.
	if len(wallClock) == len("2006-01-02T15:04") {
		wallClock += ":00"
	}

	naive, err := time.Parse(wallClockLayout, wallClock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unparseable datetime %q: %v", ErrInvalidArguments, input, err)
	}

	if timezone == "" {
		return naive, nil
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidArguments, timezone)
	}

	offset := wholeHourOffset(naive, location)
	return time.Date(
		naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0,
		time.FixedZone(timezone, offset),
	), nil
}

// wholeHourOffset formats a UTC reference instant into the target timezone
// and reads back the numeric offset, rounded to the nearest whole hour.
func wholeHourOffset(reference time.Time, location *time.Location) int {
	_, offsetSeconds := reference.UTC().In(location).Zone()

	const hour = 60 * 60
	return int(math.Round(float64(offsetSeconds)/hour)) * hour
}

// DayWindow resolves the [00:00, 23:59:59] window of a calendar date in the
// given IANA timezone.
func DayWindow(date string, timezone string) (Interval, error) {
	if strings.TrimSpace(date) == "" {
		return Interval{}, &MissingFieldError{Field: "date"}
	}

	start, err := NormalizeToInstant(date+"T00:00:00", timezone)
	if err != nil {
		return Interval{}, err
	}

	return Interval{Start: start, End: start.Add(24*time.Hour - time.Second)}, nil
}
