package orchestration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/voicedesk/voicedesk-core/core/events"
	"github.com/voicedesk/voicedesk-core/core/gateway"
	"github.com/voicedesk/voicedesk-core/core/scheduling"
)

type invocationStatus int

const (
	invocationPending invocationStatus = iota
	invocationExecuting
	invocationCompleted
	invocationFailed
)

// toolInvocation tracks one tool call from its first mention on the wire
// until a result has been delivered on its correlation id.
type toolInvocation struct {
	callID    string
	name      string
	arguments strings.Builder
	status    invocationStatus
}

// toolCallState holds the at-most-one in-flight invocation together with
// the nudge timers armed for the caller's latest scheduling utterance.
type toolCallState struct {
	mu         sync.Mutex
	active     *toolInvocation
	hintCancel context.CancelFunc
}

func (s *toolCallState) defuse() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.hintCancel != nil {
		s.hintCancel()
		s.hintCancel = nil
	}
}

// stillPending reports whether no tool has begun executing since the
// timers were armed. Both nudge timers use this as their firing condition.
func (s *toolCallState) stillPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.active == nil || s.active.status == invocationPending
}

func (o *Orchestrator) handleToolCallAnnounced(ctx context.Context, event events.ToolCallAnnounced) {
	o.tools.mu.Lock()
	if active := o.tools.active; active != nil && active.callID != event.ID {
		o.tools.mu.Unlock()
		logger.WarnContext(ctx, "Rejecting concurrent tool call", "call_id", event.ID, "active_call_id", active.callID)
		o.sendToolError(ctx, event.ID, "another request is still being processed")
		return
	}
	if o.tools.active == nil {
		o.tools.active = &toolInvocation{callID: event.ID, name: event.Name}
	} else if event.Name != "" {
		o.tools.active.name = event.Name
	}
	o.tools.mu.Unlock()

	o.notifyToolEvent(event)
}

func (o *Orchestrator) handleToolCallArgumentsDelta(ctx context.Context, event events.ToolCallArgumentsDelta) {
	o.tools.mu.Lock()
	if o.tools.active == nil {
		// Some models stream arguments without a preceding announcement.
		o.tools.active = &toolInvocation{callID: event.ID}
	}
	if o.tools.active.callID == event.ID {
		o.tools.active.arguments.WriteString(event.Delta)
	}
	o.tools.mu.Unlock()

	o.notifyToolEvent(event)
}

func (o *Orchestrator) handleToolCallArgumentsDone(ctx context.Context, event events.ToolCallArgumentsDone) {
	o.notifyToolEvent(event)

	o.tools.mu.Lock()
	invocation := o.tools.active
	if invocation == nil || invocation.callID != event.ID {
		invocation = &toolInvocation{callID: event.ID}
		o.tools.active = invocation
	}
	if event.Name != "" {
		invocation.name = event.Name
	}
	arguments := event.Arguments
	if arguments == "" {
		arguments = invocation.arguments.String()
	}
	name := invocation.name
	o.tools.mu.Unlock()

	if name == "" {
		inferred, ok := inferToolName(arguments)
		if !ok {
			o.failInvocation(ctx, invocation, name, fmt.Errorf("%w: could not determine which tool to run", scheduling.ErrInvalidArguments))
			return
		}
		name = inferred
		logger.InfoContext(ctx, "Inferred tool from argument shape", "tool", name, "call_id", invocation.callID)
	}

	o.beginInvocation(invocation)
	go o.executeInvocation(ctx, invocation, name, arguments)
}

// beginInvocation defuses the nudge timers and moves the invocation out of
// Pending while still on the event loop. Execution itself runs on its own
// goroutine so a slow provider round trip cannot stall transcript
// handling or barge-in.
func (o *Orchestrator) beginInvocation(invocation *toolInvocation) {
	o.tools.defuse()
	o.changeState(StateAwaitingTool)
	o.tools.mu.Lock()
	invocation.status = invocationExecuting
	o.tools.mu.Unlock()
}

func (o *Orchestrator) executeInvocation(ctx context.Context, invocation *toolInvocation, name, arguments string) {
	ctx, span := tracer.Start(ctx, "execute tool call")
	defer span.End()

	calendarIDs := o.session.snapshotCalendarIDs()

	var (
		payload string
		reply   string
		err     error
	)
	switch name {
	case toolCheckAvailability:
		payload, reply, err = o.runCheckAvailability(ctx, arguments, calendarIDs)
	case toolGetAvailableSlots:
		payload, reply, err = o.runAvailableSlots(ctx, arguments, calendarIDs)
	case toolBookAppointment:
		payload, reply, err = o.runBookAppointment(ctx, arguments, calendarIDs)
	default:
		err = fmt.Errorf("%w: unknown tool %q", scheduling.ErrInvalidArguments, name)
	}

	if err != nil {
		o.failInvocation(ctx, invocation, name, err)
		return
	}

	o.tools.mu.Lock()
	invocation.status = invocationCompleted
	o.tools.active = nil
	o.tools.mu.Unlock()

	if sendErr := o.gateway.SendToolResult(ctx, invocation.callID, payload); sendErr != nil {
		logger.ErrorContext(ctx, "Failed to deliver tool result", "error", sendErr)
	}
	o.notifyToolEvent(events.NewToolCallCompleted(invocation.callID, name, payload))
	o.concludeToolCall(ctx, reply)
	o.changeState(StateConversing)
	o.gate.markWaitingForUser(true)
}

// failInvocation reports a failure back on the invocation's correlation id
// so the model can recover, and speaks the matching scripted line when one
// exists. Errors are never silently dropped.
func (o *Orchestrator) failInvocation(ctx context.Context, invocation *toolInvocation, name string, err error) {
	logger.WarnContext(ctx, "Tool call failed", "tool", name, "call_id", invocation.callID, "error", err)
	o.tools.defuse()

	o.tools.mu.Lock()
	invocation.status = invocationFailed
	if o.tools.active == invocation {
		o.tools.active = nil
	}
	o.tools.mu.Unlock()

	o.notifyToolEvent(events.NewToolCallFailed(invocation.callID, name, err.Error()))
	o.changeState(StateConversing)

	var providerErr *scheduling.ProviderError
	switch {
	case errors.Is(err, scheduling.ErrBroadWindow):
		o.sendToolError(ctx, invocation.callID, "window too broad for a direct check; narrow it down or list the day's slots instead")
		o.concludeToolCall(ctx, broadWindowReply())
	case errors.As(err, &providerErr):
		o.sendToolError(ctx, invocation.callID, "calendar temporarily unavailable")
		o.concludeToolCall(ctx, apologyReply())
	default:
		o.sendToolError(ctx, invocation.callID, err.Error())
		if respErr := o.requestResponse(ctx, gateway.ResponseOptions{
			Instructions: "The last tool call failed: " + err.Error() + ". Ask the caller for the missing or corrected detail.",
		}); respErr != nil {
			logger.ErrorContext(ctx, "Failed to request recovery response", "error", respErr)
		}
	}
}

func (o *Orchestrator) sendToolError(ctx context.Context, callID, message string) {
	payload, _ := json.Marshal(map[string]string{"error": message})
	if err := o.gateway.SendToolResult(ctx, callID, string(payload)); err != nil {
		logger.ErrorContext(ctx, "Failed to deliver tool error", "error", err)
	}
}

func (o *Orchestrator) runCheckAvailability(ctx context.Context, arguments string, calendarIDs []string) (string, string, error) {
	var parsed checkAvailabilityArguments
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return "", "", fmt.Errorf("%w: %v", scheduling.ErrInvalidArguments, err)
	}
	if parsed.StartTime == "" {
		return "", "", &scheduling.MissingFieldError{Field: "startTime"}
	}

	end := parsed.EndTime
	if end == "" {
		derived, err := o.defaultWindowEnd(parsed.StartTime)
		if err != nil {
			return "", "", err
		}
		end = derived
	}

	result, err := o.engine.CheckAvailability(ctx, scheduling.CheckRequest{
		Start:       parsed.StartTime,
		End:         end,
		CalendarIDs: calendarIDs,
	})
	if err != nil {
		return "", "", err
	}

	payload, err := json.Marshal(struct {
		Available bool   `json:"available"`
		Start     string `json:"start"`
		End       string `json:"end"`
		Conflicts int    `json:"conflicts"`
	}{
		Available: result.Available,
		Start:     result.Start.Format(time.RFC3339),
		End:       result.End.Format(time.RFC3339),
		Conflicts: len(result.Conflicts),
	})
	if err != nil {
		return "", "", err
	}

	return string(payload), availabilityReply(result), nil
}

func (o *Orchestrator) runAvailableSlots(ctx context.Context, arguments string, calendarIDs []string) (string, string, error) {
	var parsed availableSlotsArguments
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return "", "", fmt.Errorf("%w: %v", scheduling.ErrInvalidArguments, err)
	}
	if parsed.Date == "" {
		return "", "", &scheduling.MissingFieldError{Field: "date"}
	}

	duration := o.options.defaultSlotDuration
	if parsed.SlotMinutes > 0 {
		duration = time.Duration(parsed.SlotMinutes) * time.Minute
	}
	duration = scheduling.ClampSlotDuration(duration)

	result, err := o.engine.AvailableSlots(ctx, scheduling.SlotsRequest{
		Date:          parsed.Date,
		SlotDuration:  duration,
		BusinessHours: o.options.businessHours,
		CalendarIDs:   calendarIDs,
	})
	if err != nil {
		return "", "", err
	}

	type slotPayload struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	slots := make([]slotPayload, 0, len(result.Slots))
	discovered := make([]events.DiscoveredSlot, 0, len(result.Slots))
	for _, slot := range result.Slots {
		slots = append(slots, slotPayload{Start: slot.Start.Format(time.RFC3339), End: slot.End.Format(time.RFC3339)})
		discovered = append(discovered, events.DiscoveredSlot{Start: slot.Start, End: slot.End})
	}

	payload, err := json.Marshal(struct {
		Date  string        `json:"date"`
		Slots []slotPayload `json:"slots"`
	}{
		Date:  result.Date.Format("2006-01-02"),
		Slots: slots,
	})
	if err != nil {
		return "", "", err
	}

	o.notifySlotsDiscovered(events.NewSlotsDiscovered(result.Date, discovered))

	return string(payload), slotsReply(result), nil
}

func (o *Orchestrator) runBookAppointment(ctx context.Context, arguments string, calendarIDs []string) (string, string, error) {
	var parsed bookAppointmentArguments
	if err := json.Unmarshal([]byte(arguments), &parsed); err != nil {
		return "", "", fmt.Errorf("%w: %v", scheduling.ErrInvalidArguments, err)
	}
	if parsed.StartTime == "" {
		return "", "", &scheduling.MissingFieldError{Field: "startTime"}
	}
	if parsed.Customer == nil || parsed.Customer.Name == "" {
		return "", "", &scheduling.MissingFieldError{Field: "customer.name"}
	}

	end := parsed.EndTime
	if end == "" {
		derived, err := o.defaultWindowEnd(parsed.StartTime)
		if err != nil {
			return "", "", err
		}
		end = derived
	}

	var attendees []string
	if parsed.Customer.Email != "" {
		attendees = []string{parsed.Customer.Email}
	}
	description := parsed.Notes
	if parsed.Customer.Phone != "" {
		if description != "" {
			description += "\n"
		}
		description += "Phone: " + parsed.Customer.Phone
	}

	result, err := o.engine.Book(ctx, scheduling.BookRequest{
		Start:       parsed.StartTime,
		End:         end,
		Summary:     "Appointment: " + parsed.Customer.Name,
		Description: description,
		Attendees:   attendees,
		CalendarIDs: calendarIDs,
	})
	if err != nil {
		return "", "", err
	}

	payload, err := json.Marshal(struct {
		EventID string `json:"eventId"`
		Start   string `json:"start"`
		End     string `json:"end"`
	}{
		EventID: result.EventID,
		Start:   result.Start.Format(time.RFC3339),
		End:     result.End.Format(time.RFC3339),
	})
	if err != nil {
		return "", "", err
	}

	return string(payload), bookingReply(result), nil
}

// defaultWindowEnd derives a window end from its start plus the configured
// default appointment length, formatted the way the engine expects.
func (o *Orchestrator) defaultWindowEnd(start string) (string, error) {
	instant, err := scheduling.NormalizeToInstant(start, o.engine.Timezone())
	if err != nil {
		return "", err
	}

	return instant.Add(o.options.defaultAppointmentDuration).Format("2006-01-02T15:04:05"), nil
}

// nudgeToolUse reacts to a scheduling-flavored utterance that produced no
// tool call: it instructs the model to call the right tool now and arms
// the watchdog timers. The re-prompt fires once; the transcript fallback
// only applies to concrete times and also fires at most once.
func (o *Orchestrator) nudgeToolUse(ctx context.Context, transcript string) {
	o.tools.mu.Lock()
	if o.tools.active != nil {
		o.tools.mu.Unlock()
		return
	}
	if o.tools.hintCancel != nil {
		o.tools.hintCancel()
	}
	hintCtx, cancel := context.WithCancel(o.baseCtx)
	o.tools.hintCancel = cancel
	o.tools.mu.Unlock()

	o.changeState(StateAwaitingTool)
	instructions := toolHintInstructions(transcript)
	if err := o.requestResponse(ctx, gateway.ResponseOptions{Instructions: instructions}); err != nil {
		logger.ErrorContext(ctx, "Failed to request tool hint response", "error", err)
	}

	go o.armReprompt(hintCtx, instructions)
	if timeBearing(transcript) {
		go o.armTranscriptFallback(hintCtx, transcript)
	}
}

func toolHintInstructions(transcript string) string {
	switch {
	case timeBearing(transcript):
		return "The caller named a concrete time. Call the " + toolCheckAvailability + " tool for it now instead of answering from memory."
	default:
		return "The caller named a day. Call the " + toolGetAvailableSlots + " tool for it now instead of answering from memory."
	}
}

func (o *Orchestrator) armReprompt(ctx context.Context, instructions string) {
	timer := time.NewTimer(o.options.repromptDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	if !o.tools.stillPending() {
		return
	}

	logger.InfoContext(ctx, "No tool call after hint, re-prompting once")
	if err := o.requestResponse(ctx, gateway.ResponseOptions{Instructions: instructions}); err != nil {
		logger.ErrorContext(ctx, "Failed to re-prompt for tool call", "error", err)
	}
}

func (o *Orchestrator) armTranscriptFallback(ctx context.Context, transcript string) {
	timer := time.NewTimer(o.options.fallbackDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}
	if !o.tools.stillPending() {
		return
	}

	o.runTranscriptFallback(ctx, transcript)
}

// runTranscriptFallback answers a point availability question straight
// from the raw transcript when the model never got around to the tool
// call. The result is spoken and injected into the conversation so the
// model's context stays coherent.
func (o *Orchestrator) runTranscriptFallback(ctx context.Context, transcript string) {
	ctx, span := tracer.Start(ctx, "transcript fallback")
	defer span.End()

	// The forced tool call is abandoned whatever happens below.
	defer o.changeState(StateConversing)

	location := time.UTC
	if loaded, err := time.LoadLocation(o.engine.Timezone()); err == nil {
		location = loaded
	}

	start, ok := fallbackInstant(transcript, time.Now().In(location))
	if !ok {
		return
	}
	end, err := o.defaultWindowEnd(start)
	if err != nil {
		logger.WarnContext(ctx, "Transcript fallback could not derive a window", "error", err)
		return
	}

	logger.InfoContext(ctx, "Answering availability from transcript", "start", start)
	result, err := o.engine.CheckAvailability(ctx, scheduling.CheckRequest{
		Start:       start,
		End:         end,
		CalendarIDs: o.session.snapshotCalendarIDs(),
	})
	if err != nil {
		var providerErr *scheduling.ProviderError
		if errors.As(err, &providerErr) {
			o.sayScripted(ctx, apologyReply(), false)
		}
		logger.WarnContext(ctx, "Transcript fallback check failed", "error", err)
		return
	}

	reply := availabilityReply(result)
	o.sayScripted(ctx, reply, false)
	if err := o.gateway.CreateUserItem(ctx, "[note] The assistant already checked the calendar and told the caller: "+reply); err != nil {
		logger.WarnContext(ctx, "Failed to inject fallback note", "error", err)
	}
}
