package events

const (
	// KindUserTranscriptDelta identifies an append-only piece of the
	// caller's in-progress utterance.
	KindUserTranscriptDelta Kind = "transcript.user_delta"
	// KindUserTranscriptFinal identifies the terminal transcript for one
	// caller utterance.
	KindUserTranscriptFinal Kind = "transcript.user_final"
	// KindAgentTranscriptDelta identifies a streamed piece of the agent's
	// spoken reply.
	KindAgentTranscriptDelta Kind = "transcript.agent_delta"
	// KindAgentTranscriptFinal identifies the complete text of one agent
	// reply.
	KindAgentTranscriptFinal Kind = "transcript.agent_final"
)

// UserTranscriptDelta is a streamed fragment of the caller's utterance.
type UserTranscriptDelta struct {
	Base
	ItemID string
	Delta  string
}

// NewUserTranscriptDelta creates a user transcript delta event.
func NewUserTranscriptDelta(itemID, delta string) UserTranscriptDelta {
	return UserTranscriptDelta{Base: NewBase(KindUserTranscriptDelta), ItemID: itemID, Delta: delta}
}

// UserTranscriptFinal is the terminal transcript for a caller utterance.
type UserTranscriptFinal struct {
	Base
	ItemID     string
	Transcript string
}

// NewUserTranscriptFinal creates a final user transcript event.
func NewUserTranscriptFinal(itemID, transcript string) UserTranscriptFinal {
	return UserTranscriptFinal{Base: NewBase(KindUserTranscriptFinal), ItemID: itemID, Transcript: transcript}
}

// AgentTranscriptDelta is a streamed fragment of the agent's reply text.
type AgentTranscriptDelta struct {
	Base
	Delta string
}

// NewAgentTranscriptDelta creates an agent transcript delta event.
func NewAgentTranscriptDelta(delta string) AgentTranscriptDelta {
	return AgentTranscriptDelta{Base: NewBase(KindAgentTranscriptDelta), Delta: delta}
}

// AgentTranscriptFinal is the complete text of one agent reply.
type AgentTranscriptFinal struct {
	Base
	Transcript string
}

// NewAgentTranscriptFinal creates a final agent transcript event.
func NewAgentTranscriptFinal(transcript string) AgentTranscriptFinal {
	return AgentTranscriptFinal{Base: NewBase(KindAgentTranscriptFinal), Transcript: transcript}
}
