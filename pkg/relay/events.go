package relay

// Transport event names, shared by server and client.
const (
	EventChatMessage  = "chat:message"
	EventChatBacklog  = "chat:backlog"
	EventDebugHistory = "debug:history"
)

// ChatMessage is the payload of a chat:message event in either
// direction. Inbound only Text is required; User is whatever display
// name the client chose. TS is epoch millis.
type ChatMessage struct {
	ID   string `json:"id,omitempty"`
	Role string `json:"role,omitempty"`
	User string `json:"user,omitempty"`
	Text string `json:"text"`
	TS   int64  `json:"ts,omitempty"`
}

// Emitter delivers an outbound event to one session's connection.
// Implementations must tolerate unknown session IDs (the connection may
// already be gone) by dropping the event.
type Emitter interface {
	Emit(sessionID, event string, payload any)
}
