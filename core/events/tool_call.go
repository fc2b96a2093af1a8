package events

const (
	// KindToolCallAnnounced identifies the model announcing a tool call.
	KindToolCallAnnounced Kind = "tool_call.announced"
	// KindToolCallArgumentsDelta identifies a streamed argument fragment.
	KindToolCallArgumentsDelta Kind = "tool_call.arguments_delta"
	// KindToolCallArgumentsDone identifies argument streaming completion.
	KindToolCallArgumentsDone Kind = "tool_call.arguments_done"
	// KindToolCallCompleted identifies successful tool execution.
	KindToolCallCompleted Kind = "tool_call.completed"
	// KindToolCallFailed identifies tool execution failure.
	KindToolCallFailed Kind = "tool_call.failed"
)

// ToolCallAnnounced marks the model requesting a tool invocation.
type ToolCallAnnounced struct {
	Base
	ID   string
	Name string
}

// NewToolCallAnnounced creates a tool call announced event.
func NewToolCallAnnounced(id, name string) ToolCallAnnounced {
	return ToolCallAnnounced{Base: NewBase(KindToolCallAnnounced), ID: id, Name: name}
}

// ToolCallArgumentsDelta carries one streamed argument fragment.
type ToolCallArgumentsDelta struct {
	Base
	ID    string
	Delta string
}

// NewToolCallArgumentsDelta creates an argument fragment event.
func NewToolCallArgumentsDelta(id, delta string) ToolCallArgumentsDelta {
	return ToolCallArgumentsDelta{Base: NewBase(KindToolCallArgumentsDelta), ID: id, Delta: delta}
}

// ToolCallArgumentsDone marks the argument stream as complete.
type ToolCallArgumentsDone struct {
	Base
	ID        string
	Name      string
	Arguments string
}

// NewToolCallArgumentsDone creates an arguments complete event.
func NewToolCallArgumentsDone(id, name, arguments string) ToolCallArgumentsDone {
	return ToolCallArgumentsDone{Base: NewBase(KindToolCallArgumentsDone), ID: id, Name: name, Arguments: arguments}
}

// ToolCallCompleted marks successful tool execution.
type ToolCallCompleted struct {
	Base
	ID       string
	Name     string
	Response string
}

// NewToolCallCompleted creates a tool call completed event.
func NewToolCallCompleted(id, name, response string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted), ID: id, Name: name, Response: response}
}

// ToolCallFailed marks failed tool execution.
type ToolCallFailed struct {
	Base
	ID    string
	Name  string
	Error string
}

// NewToolCallFailed creates a tool call failed event.
func NewToolCallFailed(id, name, err string) ToolCallFailed {
	return ToolCallFailed{Base: NewBase(KindToolCallFailed), ID: id, Name: name, Error: err}
}
