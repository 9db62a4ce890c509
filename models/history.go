package models

import "time"

// ChatHistory is everything the assistant popup remembers for one session.
type ChatHistory struct {
	Messages        []ChatMessage        `json:"messages"`
	BackendResponse *BackendChatResponse `json:"backend_response,omitempty"`
	ReferenceTitles map[string]string    `json:"reference_titles"`
	CitationTexts   map[string]string    `json:"citation_texts"`
	ShowCitations   bool                 `json:"show_citations"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// NewChatHistory returns the empty history a new visitor starts from.
func NewChatHistory() *ChatHistory {
	return &ChatHistory{
		Messages:        []ChatMessage{},
		ReferenceTitles: map[string]string{},
		CitationTexts:   map[string]string{},
		ShowCitations:   true,
	}
}
