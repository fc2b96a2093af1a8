package events

const (
	// KindSessionStateChanged identifies a session state transition.
	KindSessionStateChanged Kind = "session.state_changed"
	// KindSessionError identifies a terminal transport-level failure.
	KindSessionError Kind = "session.error"
)

// SessionStateChanged marks a session state machine transition.
type SessionStateChanged struct {
	Base
	From string
	To   string
}

// NewSessionStateChanged creates a session state transition event.
func NewSessionStateChanged(from, to string) SessionStateChanged {
	return SessionStateChanged{Base: NewBase(KindSessionStateChanged), From: from, To: to}
}

// SessionError marks a transport failure that ends the session.
type SessionError struct {
	Base
	Error string
}

// NewSessionError creates a session error event.
func NewSessionError(err string) SessionError {
	return SessionError{Base: NewBase(KindSessionError), Error: err}
}
