package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/voicedesk/voicedesk-core/core/events"
	"github.com/voicedesk/voicedesk-core/core/gateway"
)

const (
	kindSessionReady  events.Kind = "session.ready"
	kindSessionClosed events.Kind = "session.closed"
)

type sessionReadyEvent struct{ events.Base }

type sessionClosedEvent struct{ events.Base }

// gatewayCallbacks adapts the gateway's callback surface onto the session
// runtime. Every callback only enqueues; all handling happens on the
// runtime goroutine so events are processed strictly in arrival order.
func (o *Orchestrator) gatewayCallbacks() gateway.Callbacks {
	return gateway.Callbacks{
		OnSessionReady: func() {
			o.runtime.enqueue(sessionReadyEvent{events.NewBase(kindSessionReady)})
		},
		OnSpeechStarted: func() {
			o.runtime.enqueue(events.NewSpeechStarted())
		},
		OnSpeechStopped: func() {
			o.runtime.enqueue(events.NewSpeechStopped())
		},
		OnUserTranscriptDelta: func(itemID, delta string) {
			o.runtime.enqueue(events.NewUserTranscriptDelta(itemID, delta))
		},
		OnUserTranscriptFinal: func(itemID, transcript string) {
			o.runtime.enqueue(events.NewUserTranscriptFinal(itemID, transcript))
		},
		OnAgentTranscriptDelta: func(delta string) {
			o.runtime.enqueue(events.NewAgentTranscriptDelta(delta))
		},
		OnAgentTranscriptFinal: func(transcript string) {
			o.runtime.enqueue(events.NewAgentTranscriptFinal(transcript))
		},
		OnAudioDelta: func(responseID string, audio []byte) {
			o.runtime.enqueue(events.NewResponseAudioDelta(responseID, audio))
		},
		OnResponseStarted: func(responseID string) {
			o.runtime.enqueue(events.NewResponseStarted(responseID))
		},
		OnResponseDone: func(responseID string) {
			o.runtime.enqueue(events.NewResponseDone(responseID))
		},
		OnToolCallAnnounced: func(callID, name string) {
			o.runtime.enqueue(events.NewToolCallAnnounced(callID, name))
		},
		OnToolCallArgumentsDelta: func(callID, delta string) {
			o.runtime.enqueue(events.NewToolCallArgumentsDelta(callID, delta))
		},
		OnToolCallArgumentsDone: func(callID, name, arguments string) {
			o.runtime.enqueue(events.NewToolCallArgumentsDone(callID, name, arguments))
		},
		OnTransportError: func(err error) {
			o.runtime.enqueue(events.NewSessionError(err.Error()))
		},
		OnClosed: func() {
			o.runtime.enqueue(sessionClosedEvent{events.NewBase(kindSessionClosed)})
		},
	}
}

func (o *Orchestrator) processEvent(event events.Event) {
	ctx := o.baseCtx

	switch event := event.(type) {
	case sessionReadyEvent:
		o.handleSessionReady(ctx)
	case events.SpeechStarted:
		// The caller making noise is not yet a turn; interruption waits
		// for a meaningful transcript fragment.
	case events.SpeechStopped:
	case events.UserTranscriptDelta:
		if o.gate.shouldInterrupt(event.Delta) {
			o.interruptAgent(ctx)
		}
	case events.UserTranscriptFinal:
		o.handleUserTranscriptFinal(ctx, event)
	case events.AgentTranscriptDelta:
	case events.AgentTranscriptFinal:
		if o.suppressedTranscripts.Load() > 0 {
			o.suppressedTranscripts.Add(-1)
			return
		}
		o.notifyTranscript("agent", event.Transcript)
		o.router.enqueue(ctx, event.Transcript)
	case events.ResponseStarted:
		if o.expectedResponses.Load() > 0 {
			o.expectedResponses.Add(-1)
		} else if o.gate.isWaitingForUser() {
			// The model started talking on its own while the floor still
			// belongs to the caller. Cut it off before it plays; the stale
			// stamp drops whatever audio arrives before the cancel lands.
			logger.DebugContext(ctx, "Suppressing model-initiated response", "response_id", event.ResponseID)
			if err := o.gateway.CancelResponse(ctx); err != nil {
				logger.WarnContext(ctx, "Failed to cancel unsolicited response", "error", err)
			}
			o.playbackVersion = o.router.currentVersion() - 1
			return
		}
		o.gate.markAgentSpeaking(true)
		o.playbackVersion = o.router.currentVersion()
	case events.ResponseAudioDelta:
		o.router.deliverEmbedded(o.playbackVersion, event.Audio, "audio/pcm")
	case events.ResponseDone:
		o.gate.markAgentSpeaking(false)
		if o.greetingPlaying {
			// The greeting imposes no silence gate; conversation proceeds
			// immediately.
			o.greetingPlaying = false
			o.changeState(StateConversing)
		}
	case events.ToolCallAnnounced:
		o.handleToolCallAnnounced(ctx, event)
	case events.ToolCallArgumentsDelta:
		o.handleToolCallArgumentsDelta(ctx, event)
	case events.ToolCallArgumentsDone:
		o.handleToolCallArgumentsDone(ctx, event)
	case events.SessionError:
		logger.ErrorContext(ctx, "Session failed", "error", event.Error)
		o.notifyError(errors.New(event.Error))
		o.teardownOnce(ctx)
	case sessionClosedEvent:
		o.teardownOnce(ctx)
	default:
		logger.DebugContext(ctx, "Ignoring event", "kind", event.Kind())
	}
}

func (o *Orchestrator) handleSessionReady(ctx context.Context) {
	if o.session.greeting == "" {
		o.changeState(StateConversing)
		return
	}

	o.changeState(StateGreeting)
	o.greetingPlaying = true
	o.sayScripted(ctx, o.session.greeting, false)
	if o.router.usingExternal() {
		// No response lifecycle marks the end of externally synthesized
		// speech, so the greeting completes immediately.
		o.greetingPlaying = false
		o.changeState(StateConversing)
	}
}

func (o *Orchestrator) handleUserTranscriptFinal(ctx context.Context, event events.UserTranscriptFinal) {
	o.notifyTranscript("user", event.Transcript)
	if !meaningfulUtterance(event.Transcript) {
		return
	}

	o.gate.markWaitingForUser(false)
	if o.gate.shouldInterrupt(event.Transcript) {
		o.interruptAgent(ctx)
	}

	o.scheduleUtteranceEvaluation(event.Transcript)
}

// interruptAgent cuts off in-flight agent speech. The cancel goes out to
// the gateway before anything else so no scripted reply can overlap the
// tail of the interrupted response. Input audio buffered before the
// interruption is cleared so it cannot bleed into the caller's new turn.
func (o *Orchestrator) interruptAgent(ctx context.Context) {
	if err := o.gateway.CancelResponse(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to cancel in-flight response", "error", err)
	}
	if err := o.gateway.ClearInputAudio(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to clear buffered input audio", "error", err)
	}
	o.router.interrupt()
	o.gate.markAgentSpeaking(false)
}

// scheduleUtteranceEvaluation debounces end-of-utterance handling: rapid
// follow-on fragments replace the pending evaluation instead of stacking
// nudges.
func (o *Orchestrator) scheduleUtteranceEvaluation(transcript string) {
	o.debounceMu.Lock()
	if o.debounceCancel != nil {
		o.debounceCancel()
	}
	ctx, cancel := context.WithCancel(o.baseCtx)
	o.debounceCancel = cancel
	o.debounceMu.Unlock()

	go func() {
		timer := time.NewTimer(o.options.utteranceDebounce)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		o.evaluateUtterance(ctx, transcript)
	}()
}

func (o *Orchestrator) evaluateUtterance(ctx context.Context, transcript string) {
	switch o.session.currentState() {
	case StateConversing:
	case StateAwaitingTool:
		// A fresh scheduling utterance while the model keeps stalling may
		// re-force the tool, but never while an invocation is executing.
		if !o.tools.stillPending() {
			return
		}
	default:
		return
	}
	if !timeBearing(transcript) && !dayBearing(transcript) {
		return
	}

	o.nudgeToolUse(ctx, transcript)
}
