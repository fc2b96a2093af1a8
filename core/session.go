package orchestration

import (
	"sync"

	"github.com/voicedesk/voicedesk-core/core/events"
)

// SessionState is a phase of a call's lifecycle. Transitions only move
// forward through the conversation loop; Disconnected is terminal.
type SessionState string

const (
	// StateConnecting covers the window between dialing the gateway and
	// the session being ready to speak.
	StateConnecting SessionState = "connecting"
	// StateGreeting is active while the configured opening line plays.
	StateGreeting SessionState = "greeting"
	// StateConversing is the steady state where the caller and the agent
	// take turns.
	StateConversing SessionState = "conversing"
	// StateAwaitingTool is active while a scheduling tool call is in
	// flight against the calendar.
	StateAwaitingTool SessionState = "awaiting_tool"
	// StateDisconnected is terminal; no further events are processed.
	StateDisconnected SessionState = "disconnected"
)

type session struct {
	id             string
	organizationID string
	agentID        string
	timezone       string
	greeting       string
	language       string

	mu          sync.Mutex
	state       SessionState
	calendarIDs []string
}

func (s *session) currentState() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// transition moves the session to a new state and reports whether the
// move happened. Once disconnected the session never leaves that state.
func (s *session) transition(to SessionState) (from SessionState, moved bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from = s.state
	if from == StateDisconnected || from == to {
		return from, false
	}

	s.state = to
	return from, true
}

func (s *session) setCalendarIDs(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calendarIDs = append([]string(nil), ids...)
}

// snapshotCalendarIDs returns the calendar set as of this moment. Tool
// executions pin the snapshot taken at dispatch time so a mid-flight
// update cannot change what a single invocation reads or writes.
func (s *session) snapshotCalendarIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.calendarIDs...)
}

const sessionEventQueueCapacity = 32

// sessionRuntime serializes event processing for one session on a single
// goroutine, so handlers observe gateway events in arrival order without
// locking.
type sessionRuntime struct {
	queue   chan events.Event
	closeCh chan struct{}
	done    chan struct{}

	startOnce sync.Once
	endOnce   sync.Once
}

func newSessionRuntime() *sessionRuntime {
	return &sessionRuntime{
		queue:   make(chan events.Event, sessionEventQueueCapacity),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (r *sessionRuntime) start(process func(events.Event)) {
	r.startOnce.Do(func() {
		go func() {
			defer close(r.done)
			for {
				select {
				case event := <-r.queue:
					process(event)
				case <-r.closeCh:
					// Drain whatever arrived before the close so no
					// acknowledged event is silently dropped.
					for {
						select {
						case event := <-r.queue:
							process(event)
						default:
							return
						}
					}
				}
			}
		}()
	})
}

// enqueue hands an event to the processing goroutine. It reports false
// once the runtime has ended.
func (r *sessionRuntime) enqueue(event events.Event) bool {
	select {
	case <-r.closeCh:
		return false
	default:
	}

	select {
	case r.queue <- event:
		return true
	case <-r.closeCh:
		return false
	}
}

func (r *sessionRuntime) end() {
	r.endOnce.Do(func() { close(r.closeCh) })
}

func (r *sessionRuntime) awaitCompletion() {
	<-r.done
}
