package models

// Chat is a conversation bound to a set of documents.
// Created by the backend and immutable from the client's perspective.
type Chat struct {
	ID           string    `json:"id"`
	SystemPrompt string    `json:"system_prompt"`
	Personality  *string   `json:"personality"`
	CreatedAt    Timestamp `json:"created_at"`
}

// CreateChatInput is the request body for creating a chat.
// Personality is sent as null when empty.
type CreateChatInput struct {
	SystemPrompt   string   `json:"system_prompt"`
	Personality    *string  `json:"personality"`
	DocumentIDs    []string `json:"document_ids"`
	LLMProvider    string   `json:"llm_provider"`
	LLMModel       string   `json:"llm_model"`
	LLMTemperature float64  `json:"llm_temperature"`
}

// chatTitlePromptLen is the number of prompt characters shown when a chat has no personality.
const chatTitlePromptLen = 30

// PersonalityName returns the chat personality or "" when unset.
func (c Chat) PersonalityName() string {
	if c.Personality == nil {
		return ""
	}
	return *c.Personality
}

// ChatTitle returns the sidebar title for a chat.
func ChatTitle(c Chat) string {
	if p := c.PersonalityName(); p != "" {
		return Capitalize(p) + " Chat"
	}
	return Truncate(c.SystemPrompt, chatTitlePromptLen)
}

// AssistantName returns the chat header title.
func AssistantName(c Chat) string {
	if p := c.PersonalityName(); p != "" {
		return Capitalize(p) + " Assistant"
	}
	return "AI Research Assistant"
}

// PersonalityBadge returns the header badge text.
func PersonalityBadge(c Chat) string {
	if p := c.PersonalityName(); p != "" {
		return p
	}
	return "Default"
}
