// Package gateway defines the contract the orchestrator requires from a
// realtime speech gateway: an ordered event stream delivered through
// callbacks plus a small command surface. Event and command names on the
// wire are provider-specific; implementations translate them and drop
// anything they do not recognize.
package gateway

import (
	"context"
	"encoding/json"
)

// ToolDeclaration describes one tool exposed to the speech model.
type ToolDeclaration struct {
	Name        string
	Description string
	// Parameters is a JSON Schema object for the tool's arguments.
	Parameters json.RawMessage
}

// VoiceActivityConfig tunes the gateway's end-of-utterance detection.
type VoiceActivityConfig struct {
	// Threshold in [0, 1]; higher requires louder speech.
	Threshold float64
	// SilenceMillis of trailing silence before an utterance is final.
	SilenceMillis int
	// PrefixPaddingMillis of audio retained before detected speech.
	PrefixPaddingMillis int
}

// SessionConfig is the initial (and updatable) session configuration.
type SessionConfig struct {
	Instructions  string
	Voice         string
	Language      string
	Tools         []ToolDeclaration
	VoiceActivity *VoiceActivityConfig
	// EmitAudio controls whether the gateway streams its own synthesized
	// audio. Disabled when an external text-to-speech path is active.
	EmitAudio bool
}

// ResponseOptions shape one requested reply.
type ResponseOptions struct {
	// Instructions override the session instructions for this reply only.
	// Used for scripted "say exactly this" replies.
	Instructions string
	// TextOnly suppresses embedded audio for this reply.
	TextOnly bool
}

// Callbacks receives the gateway's ordered event stream. All callbacks are
// invoked from a single reader goroutine, in arrival order. Nil fields are
// skipped.
type Callbacks struct {
	OnSessionReady           func()
	OnSpeechStarted          func()
	OnSpeechStopped          func()
	OnUserTranscriptDelta    func(itemID, delta string)
	OnUserTranscriptFinal    func(itemID, transcript string)
	OnAgentTranscriptDelta   func(delta string)
	OnAgentTranscriptFinal   func(transcript string)
	OnAudioDelta             func(responseID string, audio []byte)
	OnResponseStarted        func(responseID string)
	OnResponseDone           func(responseID string)
	OnToolCallAnnounced      func(callID, name string)
	OnToolCallArgumentsDelta func(callID, delta string)
	OnToolCallArgumentsDone  func(callID, name, arguments string)
	// OnTransportError reports a terminal transport failure. The stream is
	// dead once this fires.
	OnTransportError func(error)
	OnClosed         func()
}

// Client is a duplex connection to one speech gateway session.
//
// Commands issued before the transport opens must be buffered and replayed
// in order once it does.
type Client interface {
	Connect(ctx context.Context, config SessionConfig, callbacks Callbacks) error
	UpdateSession(ctx context.Context, config SessionConfig) error
	// CreateResponse asks the model to produce a reply.
	CreateResponse(ctx context.Context, opts ResponseOptions) error
	// CancelResponse interrupts the in-flight reply, if any.
	CancelResponse(ctx context.Context) error
	// ClearInputAudio drops caller audio buffered at the gateway but not
	// yet committed to the conversation.
	ClearInputAudio(ctx context.Context) error
	// CreateUserItem injects a user text turn into the conversation.
	CreateUserItem(ctx context.Context, text string) error
	// SendToolResult delivers a tool's output on its correlation id.
	SendToolResult(ctx context.Context, callID, output string) error
	Close(ctx context.Context) error
}
