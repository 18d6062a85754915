package domain

// OutboundName is the event name of the client-facing lexicon.
type OutboundName string

const (
	OutboundConnected OutboundName = "connected"
	OutboundNodeStart OutboundName = "node_start"
	OutboundNodeEnd   OutboundName = "node_end"
	OutboundToken     OutboundName = "token"
	OutboundDBSave    OutboundName = "db_save"
	OutboundDone      OutboundName = "done"
	OutboundError     OutboundName = "error"
)

// OutboundEvent is one message delivered to a single client connection.
// Data is marshalled as the JSON payload of the event.
type OutboundEvent struct {
	Name OutboundName
	Data any
}

// ConnectedData is the payload of connected.
type ConnectedData struct {
	ID string `json:"id"`
}

// NodeStartData is the payload of node_start.
type NodeStartData struct {
	Node string `json:"node"`
}

// NodeEndData is the payload of node_end.
type NodeEndData struct {
	Node   string `json:"node"`
	Output string `json:"output"`
}

// TokenData is the payload of token.
type TokenData struct {
	Node    string `json:"node"`
	Content string `json:"content"`
}

// DoneData is the payload of done.
type DoneData struct {
	Success bool `json:"success"`
}

// ErrorData is the payload of error.
type ErrorData struct {
	Message string `json:"message"`
}

// IsTerminal reports whether the event ends a run's stream.
func (e OutboundEvent) IsTerminal() bool {
	return e.Name == OutboundDone || e.Name == OutboundError
}
