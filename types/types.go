package types

const (
	TypeWebsocketPing       = "ping"
	TypeWebsocketPong       = "pong"
	TypeWebsocketAsk        = "ask"
	TypeWebsocketAnswer     = "answer"
	TypeWebsocketProcessing = "processing"
	TypeWebsocketError      = "error"
)

type WebsocketRequest struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketAskPayload struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id,omitempty"`
	Question string `json:"question"`
}

type WebsocketResponse struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type WebsocketAnswerPayload struct {
	Delta string `json:"delta,omitempty"`
	Done  bool   `json:"done,omitempty"`
}

// Message represents a single message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamHandler receives incremental pieces of a streamed completion
type StreamHandler func(delta string)
