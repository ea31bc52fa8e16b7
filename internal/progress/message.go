package progress

const (
	StageError    = "error"
	StageComplete = "complete"
)

// Message is one notification on an owner's progress stream.
type Message struct {
	Stage    string         `json:"stage"`
	Progress float64        `json:"progress"`
	Message  string         `json:"message,omitempty"`
	Payload  map[string]any `json:"payload,omitempty"`
}

// Terminal reports whether the message ends a job's stream.
func (m Message) Terminal() bool {
	return m.Stage == StageError || m.Stage == StageComplete
}

// JobID returns the correlating job id carried in the payload.
func (m Message) JobID() string {
	id, _ := m.Payload["jobId"].(string)
	return id
}

func Stage(stage string, pct float64, message string, payload map[string]any) Message {
	return Message{Stage: stage, Progress: clamp(pct), Message: message, Payload: payload}
}

// Error builds the terminal failure message.
func Error(message string, payload map[string]any) Message {
	return Message{Stage: StageError, Message: message, Payload: payload}
}

// Complete builds the terminal success message.
func Complete(payload map[string]any) Message {
	return Message{Stage: StageComplete, Progress: 100, Message: "completed", Payload: payload}
}

func clamp(pct float64) float64 {
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return pct
	}
}
