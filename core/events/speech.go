package events

const (
	// KindSpeechStarted identifies caller voice activity beginning.
	KindSpeechStarted Kind = "speech.started"
	// KindSpeechStopped identifies caller voice activity ending.
	KindSpeechStopped Kind = "speech.stopped"
)

// SpeechStarted marks caller voice activity beginning.
type SpeechStarted struct{ Base }

// NewSpeechStarted creates a speech started event.
func NewSpeechStarted() SpeechStarted {
	return SpeechStarted{Base: NewBase(KindSpeechStarted)}
}

// SpeechStopped marks caller voice activity ending.
type SpeechStopped struct{ Base }

// NewSpeechStopped creates a speech stopped event.
func NewSpeechStopped() SpeechStopped {
	return SpeechStopped{Base: NewBase(KindSpeechStopped)}
}
