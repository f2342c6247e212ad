package vawk

// Message is a sealed interface representing one entry of an assembled prompt.
// The unexported marker method prevents external implementations.
// Role() returns the message's role without requiring a type switch.
type Message interface {
	isMessage()
	Role() Role
}

// SystemMessage carries instructions or reference context for the model.
type SystemMessage struct {
	Text string
}

func (SystemMessage) isMessage() {}

// Role returns RoleSystem.
func (SystemMessage) Role() Role { return RoleSystem }

// UserMessage represents a message from the user.
type UserMessage struct {
	Text string
}

func (UserMessage) isMessage() {}

// Role returns RoleUser.
func (UserMessage) Role() Role { return RoleUser }

// AssistantMessage represents a prior reply from the model.
type AssistantMessage struct {
	Text string
}

func (AssistantMessage) isMessage() {}

// Role returns RoleAssistant.
func (AssistantMessage) Role() Role { return RoleAssistant }

// MessageText returns the text carried by msg.
func MessageText(msg Message) string {
	switch m := msg.(type) {
	case SystemMessage:
		return m.Text
	case UserMessage:
		return m.Text
	case AssistantMessage:
		return m.Text
	default:
		return ""
	}
}

// Interface compliance checks.
var (
	_ Message = SystemMessage{}
	_ Message = UserMessage{}
	_ Message = AssistantMessage{}
)
