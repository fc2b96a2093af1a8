package events

const (
	// KindResponseStarted identifies the gateway starting a reply.
	KindResponseStarted Kind = "response.started"
	// KindResponseAudioDelta identifies a streamed embedded audio chunk.
	KindResponseAudioDelta Kind = "response.audio_delta"
	// KindResponseDone identifies reply generation completion.
	KindResponseDone Kind = "response.done"
)

// ResponseStarted marks the start of one agent reply.
type ResponseStarted struct {
	Base
	ResponseID string
}

// NewResponseStarted creates a response started event.
func NewResponseStarted(responseID string) ResponseStarted {
	return ResponseStarted{Base: NewBase(KindResponseStarted), ResponseID: responseID}
}

// ResponseAudioDelta carries one embedded audio chunk of the reply.
type ResponseAudioDelta struct {
	Base
	ResponseID string
	Audio      []byte
}

// NewResponseAudioDelta creates an embedded audio chunk event.
func NewResponseAudioDelta(responseID string, audio []byte) ResponseAudioDelta {
	return ResponseAudioDelta{Base: NewBase(KindResponseAudioDelta), ResponseID: responseID, Audio: audio}
}

// ResponseDone marks the end of one agent reply.
type ResponseDone struct {
	Base
	ResponseID string
}

// NewResponseDone creates a response done event.
func NewResponseDone(responseID string) ResponseDone {
	return ResponseDone{Base: NewBase(KindResponseDone), ResponseID: responseID}
}
