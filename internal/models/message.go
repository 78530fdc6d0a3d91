package models

import "encoding/json"

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single transcript entry.
// Sources is kept raw: its shape varies across backend versions and is
// interpreted only by the citation normalizer.
type Message struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Content   string          `json:"content"`
	Sources   json.RawMessage `json:"sources,omitempty"`
	CreatedAt Timestamp       `json:"created_at"`
}

// IsAssistant reports whether the message was produced by the backend assistant.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// SendMessageInput is the request body for posting a user message.
type SendMessageInput struct {
	ChatID         string  `json:"chat_id"`
	Message        string  `json:"message"`
	Stream         bool    `json:"stream"`
	LLMProvider    string  `json:"llm_provider"`
	LLMModel       string  `json:"llm_model"`
	LLMTemperature float64 `json:"llm_temperature"`
}

// SendResult is the assistant-oriented response to a posted message.
// Fields are optional; the transcript refetch is the source of truth.
type SendResult struct {
	Content string          `json:"content"`
	Sources json.RawMessage `json:"sources,omitempty"`
}
