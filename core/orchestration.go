// Package orchestration coordinates a voice scheduling session end to
// end: it drives a realtime speech gateway, brokers the model's tool
// calls into calendar availability checks and bookings, keeps
// turn-taking civil, and routes agent speech to whichever synthesis path
// is active.
package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/voicedesk/voicedesk-core/core/calendar"
	"github.com/voicedesk/voicedesk-core/core/events"
	"github.com/voicedesk/voicedesk-core/core/gateway"
	"github.com/voicedesk/voicedesk-core/core/scheduling"
	"github.com/voicedesk/voicedesk-core/core/texttospeech"
)

// Orchestrator runs at most one voice scheduling session at a time. A
// disconnected orchestrator can be connected again for a fresh session.
type Orchestrator struct {
	gateway     gateway.Client
	provider    calendar.Provider
	synthesizer texttospeech.Synthesizer

	options     orchestratorOptions
	connectOpts connectOptions

	engine  *scheduling.Engine
	router  *speechRouter
	gate    turnGate
	session *session
	runtime *sessionRuntime
	tools   toolCallState

	baseCtx    context.Context
	baseCancel context.CancelFunc
	connected  atomic.Bool
	tornDown   atomic.Bool

	// sessionConfig is the configuration the gateway was connected with,
	// kept so the session can be reconfigured mid-call.
	sessionConfig gateway.SessionConfig

	// playbackVersion and greetingPlaying are only touched on the runtime
	// goroutine.
	playbackVersion int64
	greetingPlaying bool

	// suppressedTranscripts counts agent transcripts whose text was
	// already surfaced as a scripted line, so they are not reported or
	// synthesized a second time.
	suppressedTranscripts atomic.Int32

	// expectedResponses counts response lifecycles the orchestrator asked
	// for itself. A response starting with the counter at zero is
	// model-initiated and subject to the turn gate.
	expectedResponses atomic.Int32

	debounceMu     sync.Mutex
	debounceCancel context.CancelFunc
}

// NewOrchestrator builds an orchestrator. A gateway client and a calendar
// provider are required before Connect.
func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	orchestrator := &Orchestrator{options: defaultOrchestratorOptions()}
	for _, opt := range opts {
		opt(orchestrator)
	}

	return orchestrator
}

// Connect opens a session: it resolves the account timezone, advertises
// the scheduling tools, dials the gateway and starts processing its event
// stream. The system prompt carries the business's own instructions; the
// orchestrator appends its scheduling ground rules.
func (o *Orchestrator) Connect(ctx context.Context, systemPrompt string, opts ...ConnectOption) error {
	ctx, span := tracer.Start(ctx, "connect session")
	defer span.End()

	if o.gateway == nil {
		return errors.New("no gateway client configured")
	}
	if o.provider == nil {
		return errors.New("no calendar provider configured")
	}
	if o.connected.Swap(true) {
		return errors.New("session already connected")
	}

	// Leftovers from a previous session must not leak into this one.
	o.tornDown.Store(false)
	o.gate.markAgentSpeaking(false)
	o.gate.markWaitingForUser(false)
	o.tools.mu.Lock()
	o.tools.active = nil
	o.tools.hintCancel = nil
	o.tools.mu.Unlock()
	o.playbackVersion = 0
	o.greetingPlaying = false
	o.suppressedTranscripts.Store(0)
	o.expectedResponses.Store(0)

	for _, opt := range opts {
		opt(&o.connectOpts)
	}

	timezone := o.connectOpts.timezone
	if timezone == "" {
		resolved, err := o.provider.AccountTimezone(ctx)
		if err != nil {
			logger.WarnContext(ctx, "Could not resolve account timezone, using UTC", "error", err)
		} else {
			timezone = resolved
		}
	}
	o.engine = scheduling.NewEngine(o.provider, timezone)

	o.session = &session{
		id:             uuid.NewString(),
		organizationID: o.connectOpts.organizationID,
		agentID:        o.connectOpts.agentID,
		timezone:       timezone,
		greeting:       o.connectOpts.greeting,
		language:       o.connectOpts.language,
		state:          StateConnecting,
		calendarIDs:    append([]string(nil), o.connectOpts.calendarIDs...),
	}

	// The session outlives the Connect call; its lifetime is bounded by
	// Disconnect, not by the caller's context.
	o.baseCtx, o.baseCancel = context.WithCancel(context.WithoutCancel(ctx))

	o.router = newSpeechRouter(o.synthesizer, o.connectOpts.voice, o.connectOpts.onAudio)
	o.router.onFallback = func(text string) {
		// The session was connected text-only, so the gateway's own audio
		// has to be re-armed before the failed utterance is re-spoken on
		// the embedded path.
		config := o.sessionConfig
		config.EmitAudio = true
		if err := o.gateway.UpdateSession(o.baseCtx, config); err != nil {
			logger.ErrorContext(o.baseCtx, "Failed to re-enable embedded audio", "error", err)
		}
		o.sayScripted(o.baseCtx, text, true)
	}

	tools, err := toolDeclarations()
	if err != nil {
		o.connected.Store(false)
		return err
	}
	var declared []gateway.ToolDeclaration
	if err := copier.Copy(&declared, &tools); err != nil {
		o.connected.Store(false)
		return err
	}

	o.runtime = newSessionRuntime()
	o.runtime.start(o.processEvent)

	o.sessionConfig = gateway.SessionConfig{
		Instructions:  systemPrompt + "\n\n" + schedulingGroundRules,
		Voice:         o.connectOpts.voice,
		Language:      o.connectOpts.language,
		Tools:         declared,
		VoiceActivity: o.connectOpts.voiceActivity,
		EmitAudio:     !o.router.usingExternal(),
	}
	if err := o.gateway.Connect(ctx, o.sessionConfig, o.gatewayCallbacks()); err != nil {
		o.runtime.end()
		o.connected.Store(false)
		return err
	}

	logger.InfoContext(ctx, "Session connected", "session_id", o.session.id, "timezone", timezone)
	return nil
}

const schedulingGroundRules = "Never answer availability questions from memory. " +
	"When the caller names a concrete time, call checkAvailability. " +
	"When they ask what is open on a day, call getAvailableSlots. " +
	"Only call bookAppointment after the caller has confirmed a specific time and given their name."

// SetCalendarIDs replaces the calendar set whose union defines
// availability. Tool calls already executing keep the set they started
// with.
func (o *Orchestrator) SetCalendarIDs(ids ...string) {
	if o == nil || o.session == nil {
		return
	}

	o.session.setCalendarIDs(ids)
}

// SessionID returns the identifier of the current session, or an empty
// string before Connect.
func (o *Orchestrator) SessionID() string {
	if o == nil || o.session == nil {
		return ""
	}

	return o.session.id
}

// State returns the session's current lifecycle state.
func (o *Orchestrator) State() SessionState {
	if o == nil || o.session == nil {
		return StateDisconnected
	}

	return o.session.currentState()
}

// Disconnect tears the session down: timers are defused and queued
// playback discarded before the transport is released, then the call
// blocks until the event loop has drained.
func (o *Orchestrator) Disconnect(ctx context.Context) error {
	if o == nil || !o.connected.Load() {
		return nil
	}

	o.teardownOnce(ctx)
	o.runtime.awaitCompletion()
	o.connected.Store(false)

	return nil
}

// teardownOnce runs the teardown at most once per session, however the
// session ends.
func (o *Orchestrator) teardownOnce(ctx context.Context) {
	if o.tornDown.Swap(true) {
		return
	}
	o.teardown(ctx)
}

// teardown is the synchronous part of shutdown. It is safe to call from
// the runtime goroutine itself, which is how transport failures end a
// session.
func (o *Orchestrator) teardown(ctx context.Context) {
	o.tools.defuse()
	o.debounceMu.Lock()
	if o.debounceCancel != nil {
		o.debounceCancel()
		o.debounceCancel = nil
	}
	o.debounceMu.Unlock()
	o.router.interrupt()

	o.changeState(StateDisconnected)

	if err := o.gateway.Close(ctx); err != nil {
		logger.WarnContext(ctx, "Failed to close gateway cleanly", "error", err)
	}
	o.runtime.end()
	if o.baseCancel != nil {
		o.baseCancel()
	}
}

func (o *Orchestrator) changeState(to SessionState) {
	from, moved := o.session.transition(to)
	if !moved {
		return
	}

	logger.DebugContext(o.baseCtx, "Session state changed", "from", from, "to", to)
	o.notifyToolEvent(events.NewSessionStateChanged(string(from), string(to)))
	if o.connectOpts.onStateChanged != nil {
		o.connectOpts.onStateChanged(from, to)
	}
}

// requestResponse asks the model for a reply and records that the next
// response lifecycle on the wire was solicited by the orchestrator, so it
// passes the turn gate untouched.
func (o *Orchestrator) requestResponse(ctx context.Context, opts gateway.ResponseOptions) error {
	o.expectedResponses.Add(1)
	return o.gateway.CreateResponse(ctx, opts)
}

// sayScripted speaks a deterministic line through the active synthesis
// path. The line passes the turn gate; bypassGate is reserved for
// utterances that were already authorized once, such as a failed external
// synthesis being re-spoken.
func (o *Orchestrator) sayScripted(ctx context.Context, text string, bypassGate bool) {
	if text == "" || !o.gate.allowReply(bypassGate) {
		return
	}
	if o.gate.isAgentSpeaking() {
		o.interruptAgent(ctx)
	}

	o.notifyTranscript("agent", text)
	if o.router.usingExternal() {
		o.router.enqueue(ctx, text)
		return
	}
	o.suppressedTranscripts.Add(1)
	if err := o.requestResponse(ctx, gateway.ResponseOptions{Instructions: verbatimInstructions(text)}); err != nil {
		logger.ErrorContext(ctx, "Failed to request scripted response", "error", err)
	}
}

// concludeToolCall delivers the authoritative spoken restatement of a
// tool outcome and tells the model not to narrate the result on its own.
func (o *Orchestrator) concludeToolCall(ctx context.Context, reply string) {
	if o.gate.isAgentSpeaking() {
		o.interruptAgent(ctx)
	}

	o.notifyTranscript("agent", reply)
	o.suppressedTranscripts.Add(1)
	if o.router.usingExternal() {
		o.router.enqueue(ctx, reply)
		if err := o.requestResponse(ctx, gateway.ResponseOptions{
			Instructions: resultSuppressionInstructions,
			TextOnly:     true,
		}); err != nil {
			logger.ErrorContext(ctx, "Failed to suppress result narration", "error", err)
		}
		return
	}
	if err := o.requestResponse(ctx, gateway.ResponseOptions{Instructions: verbatimInstructions(reply)}); err != nil {
		logger.ErrorContext(ctx, "Failed to request scripted response", "error", err)
	}
}

const resultSuppressionInstructions = "The caller has already been told the tool result. " +
	"Do not repeat or describe it. Wait for the caller to speak."

func verbatimInstructions(text string) string {
	return "Say exactly the following to the caller, word for word, and nothing else: " + text
}

func (o *Orchestrator) notifyTranscript(role, text string) {
	if o.connectOpts.onTranscript != nil {
		o.connectOpts.onTranscript(role, text)
	}
}

func (o *Orchestrator) notifyToolEvent(event events.Event) {
	if o.connectOpts.onToolEvent != nil {
		o.connectOpts.onToolEvent(event)
	}
}

func (o *Orchestrator) notifySlotsDiscovered(event events.SlotsDiscovered) {
	if o.connectOpts.onSlotsDiscovered != nil {
		o.connectOpts.onSlotsDiscovered(event)
	}
}

func (o *Orchestrator) notifyError(err error) {
	if o.connectOpts.onError != nil {
		o.connectOpts.onError(err)
	}
}
