package orchestration

import (
	"time"

	"github.com/voicedesk/voicedesk-core/core/calendar"
	"github.com/voicedesk/voicedesk-core/core/events"
	"github.com/voicedesk/voicedesk-core/core/gateway"
	"github.com/voicedesk/voicedesk-core/core/scheduling"
	"github.com/voicedesk/voicedesk-core/core/texttospeech"
)

type orchestratorOptions struct {
	defaultAppointmentDuration time.Duration
	defaultSlotDuration        time.Duration
	businessHours              scheduling.BusinessHours

	repromptDelay     time.Duration
	fallbackDelay     time.Duration
	utteranceDebounce time.Duration
}

func defaultOrchestratorOptions() orchestratorOptions {
	return orchestratorOptions{
		defaultAppointmentDuration: time.Hour,
		defaultSlotDuration:        time.Hour,
		repromptDelay:              2 * time.Second,
		fallbackDelay:              3500 * time.Millisecond,
		utteranceDebounce:          300 * time.Millisecond,
	}
}

// OrchestratorOption configures an orchestrator at construction time.
type OrchestratorOption func(*Orchestrator)

// WithGatewayClient sets the realtime speech gateway the orchestrator
// drives. Required.
func WithGatewayClient(client gateway.Client) OrchestratorOption {
	return func(o *Orchestrator) { o.gateway = client }
}

// WithCalendarProvider sets the calendar backend availability is computed
// against. Required.
func WithCalendarProvider(provider calendar.Provider) OrchestratorOption {
	return func(o *Orchestrator) { o.provider = provider }
}

// WithSynthesizer routes agent speech through an external text-to-speech
// provider instead of the gateway's embedded audio.
func WithSynthesizer(synthesizer texttospeech.Synthesizer) OrchestratorOption {
	return func(o *Orchestrator) { o.synthesizer = synthesizer }
}

// WithDefaultAppointmentDuration sets the appointment length assumed when
// the caller names a start but no end. Defaults to one hour.
func WithDefaultAppointmentDuration(duration time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.options.defaultAppointmentDuration = duration }
}

// WithDefaultSlotDuration sets the slot length used when a slot listing
// request does not carry one. Defaults to one hour.
func WithDefaultSlotDuration(duration time.Duration) OrchestratorOption {
	return func(o *Orchestrator) { o.options.defaultSlotDuration = duration }
}

// WithBusinessHours overrides the bookable window slots are generated
// within.
func WithBusinessHours(hours scheduling.BusinessHours) OrchestratorOption {
	return func(o *Orchestrator) { o.options.businessHours = hours }
}

type connectOptions struct {
	organizationID string
	agentID        string
	calendarIDs    []string
	greeting       string
	language       string
	timezone       string
	voice          string
	voiceActivity  *gateway.VoiceActivityConfig

	onStateChanged    func(from, to SessionState)
	onTranscript      func(role, text string)
	onToolEvent       func(event events.Event)
	onSlotsDiscovered func(event events.SlotsDiscovered)
	onAudio           func(audio []byte, contentType string)
	onError           func(err error)
}

// ConnectOption configures a single session.
type ConnectOption func(*connectOptions)

// WithOrganizationID tags the session with the organization it belongs to.
func WithOrganizationID(id string) ConnectOption {
	return func(opts *connectOptions) { opts.organizationID = id }
}

// WithAgentID tags the session with the agent configuration it runs under.
func WithAgentID(id string) ConnectOption {
	return func(opts *connectOptions) { opts.agentID = id }
}

// WithCalendarIDs selects the calendars whose union defines availability.
// The set can be replaced mid-session with SetCalendarIDs.
func WithCalendarIDs(ids ...string) ConnectOption {
	return func(opts *connectOptions) { opts.calendarIDs = ids }
}

// WithGreeting sets an opening line spoken verbatim once the session is
// ready.
func WithGreeting(greeting string) ConnectOption {
	return func(opts *connectOptions) { opts.greeting = greeting }
}

// WithLanguage hints the gateway's transcription language.
func WithLanguage(language string) ConnectOption {
	return func(opts *connectOptions) { opts.language = language }
}

// WithTimezone overrides the account timezone availability is computed
// in. Without it the calendar provider's account setting is used.
func WithTimezone(timezone string) ConnectOption {
	return func(opts *connectOptions) { opts.timezone = timezone }
}

// WithVoice selects the voice for agent speech, on whichever synthesis
// path is active.
func WithVoice(voice string) ConnectOption {
	return func(opts *connectOptions) { opts.voice = voice }
}

// WithVoiceActivityConfig tunes the gateway's end-of-utterance detection.
func WithVoiceActivityConfig(config gateway.VoiceActivityConfig) ConnectOption {
	return func(opts *connectOptions) { opts.voiceActivity = &config }
}

// WithStateChangeCallback observes session lifecycle transitions.
func WithStateChangeCallback(callback func(from, to SessionState)) ConnectOption {
	return func(opts *connectOptions) { opts.onStateChanged = callback }
}

// WithTranscriptCallback observes finalized transcripts from both sides of
// the conversation. Role is "user" or "agent".
func WithTranscriptCallback(callback func(role, text string)) ConnectOption {
	return func(opts *connectOptions) { opts.onTranscript = callback }
}

// WithToolEventCallback observes the lifecycle of tool invocations.
func WithToolEventCallback(callback func(event events.Event)) ConnectOption {
	return func(opts *connectOptions) { opts.onToolEvent = callback }
}

// WithSlotsDiscoveredCallback observes availability results as they are
// computed, for consumers that mirror them into a UI.
func WithSlotsDiscoveredCallback(callback func(event events.SlotsDiscovered)) ConnectOption {
	return func(opts *connectOptions) { opts.onSlotsDiscovered = callback }
}

// WithAudioCallback receives playable agent audio in playback order.
func WithAudioCallback(callback func(audio []byte, contentType string)) ConnectOption {
	return func(opts *connectOptions) { opts.onAudio = callback }
}

// WithErrorCallback observes terminal session failures.
func WithErrorCallback(callback func(err error)) ConnectOption {
	return func(opts *connectOptions) { opts.onError = callback }
}
