package orchestration

import (
	"fmt"
	"strings"
	"time"

	"github.com/voicedesk/voicedesk-core/core/scheduling"
)

// Scripted replies are authoritative restatements of tool results. They
// are rendered deterministically from engine output so the model can never
// misreport availability, and they are always phrased in the session's
// timezone.

const maxSpokenSlots = 3

func formatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

func formatDay(t time.Time) string {
	return t.Format("Monday, January 2")
}

func availabilityReply(result *scheduling.CheckResult) string {
	if result.Available {
		return fmt.Sprintf(
			"Good news, %s from %s to %s is available. Would you like me to book it?",
			formatDay(result.Start), formatClock(result.Start), formatClock(result.End),
		)
	}

	return fmt.Sprintf(
		"I'm sorry, %s from %s to %s is already taken. Would another time work for you?",
		formatDay(result.Start), formatClock(result.Start), formatClock(result.End),
	)
}

func slotsReply(result *scheduling.SlotsResult) string {
	if len(result.Slots) == 0 {
		return fmt.Sprintf(
			"Unfortunately there are no openings on %s. Would another day work for you?",
			formatDay(result.Date),
		)
	}

	spoken := result.Slots
	if len(spoken) > maxSpokenSlots {
		spoken = spoken[:maxSpokenSlots]
	}
	times := make([]string, 0, len(spoken))
	for _, slot := range spoken {
		times = append(times, formatClock(slot.Start))
	}

	var listed string
	switch len(times) {
	case 1:
		listed = times[0]
	case 2:
		listed = times[0] + " and " + times[1]
	default:
		listed = strings.Join(times[:len(times)-1], ", ") + ", and " + times[len(times)-1]
	}

	if len(result.Slots) == 1 {
		return fmt.Sprintf("On %s there is one opening, at %s. Should I book it?", formatDay(result.Date), listed)
	}

	return fmt.Sprintf(
		"On %s I can offer %s. Which one suits you best?",
		formatDay(result.Date), listed,
	)
}

func bookingReply(result *scheduling.BookResult) string {
	return fmt.Sprintf(
		"You're all set. I've booked %s from %s to %s. Is there anything else I can help you with?",
		formatDay(result.Start), formatClock(result.Start), formatClock(result.End),
	)
}

func broadWindowReply() string {
	return "That's a fairly wide window. Did you have a particular time of day in mind, or shall I list the open slots for that day?"
}

func apologyReply() string {
	return "I'm sorry, I couldn't reach the calendar just now. Could we try that again in a moment?"
}
