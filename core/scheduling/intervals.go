package scheduling

import (
	"sort"
	"time"
)

// Interval is a half-open [Start, End) time range on absolute instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Duration() time.Duration { return i.End.Sub(i.Start) }

func (i Interval) IsZero() bool { return i.Start.IsZero() && i.End.IsZero() }

// Merge sorts intervals ascending by start and coalesces every overlapping
// or touching run into a single interval. The result is sorted and
// non-overlapping; empty input yields an empty result.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return []Interval{}
	}

	sorted := append([]Interval(nil), intervals...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	merged := []Interval{sorted[0]}
	for _, next := range sorted[1:] {
		current := &merged[len(merged)-1]
		if !next.Start.After(current.End) {
			if next.End.After(current.End) {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, next)
	}

	return merged
}

// FreeWindows subtracts merged busy intervals from window, walking busy
// left to right with a cursor and emitting every uncovered span.
//
// busy must already be merged; intervals outside window are clipped.
func FreeWindows(busy []Interval, window Interval) []Interval {
	free := []Interval{}
	cursor := window.Start

	for _, interval := range busy {
		if !interval.End.After(cursor) {
			continue
		}
		if !interval.Start.Before(window.End) {
			break
		}

		if interval.Start.After(cursor) {
			end := interval.Start
			if end.After(window.End) {
				end = window.End
			}
			free = append(free, Interval{Start: cursor, End: end})
		}

		if interval.End.After(cursor) {
			cursor = interval.End
		}
	}

	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}

	return free
}
