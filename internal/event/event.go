// Package event defines the observational events the assistant emits for
// display layers (transcript panel, status line, log tail).
package event

// Type discriminates event shapes.
type Type string

const (
	TypeLog        Type = "log"
	TypeStatus     Type = "status"
	TypeTranscript Type = "transcript"
)

// Role identifies the speaker in a transcript event.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Event is a tagged record; Message is set for log/status events, Role and
// Text for transcript events.
type Event struct {
	Type    Type   `json:"type"`
	Message string `json:"message,omitempty"`
	Role    Role   `json:"role,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Sink receives events synchronously from whichever goroutine produced
// them; receivers must not block significantly.
type Sink func(Event)

// Emit delivers e to the sink if one is attached.
func (s Sink) Emit(e Event) {
	if s != nil {
		s(e)
	}
}

func Log(message string) Event {
	return Event{Type: TypeLog, Message: message}
}

func Status(message string) Event {
	return Event{Type: TypeStatus, Message: message}
}

func Transcript(role Role, text string) Event {
	return Event{Type: TypeTranscript, Role: role, Text: text}
}
