// models/chat.go
package models

// ChatRequest is the body accepted by the chat backend and by /api/chat.
// ContextHint is always sent as null to the backend.
type ChatRequest struct {
	Query       string  `json:"query" binding:"required,min=1,max=2000"`
	ContextHint *string `json:"context_hint"`
	SessionID   string  `json:"session_id,omitempty"`
}

type Reference struct {
	Label     string `json:"label"`
	Chapter   string `json:"chapter"`
	HeadingID string `json:"headingId"`
	PIndex    int    `json:"pIndex"`
	URL       string `json:"url"`
}

type FollowUp struct {
	Label    string `json:"label"`
	Question string `json:"question"`
}

// BackendChatResponse is returned unchanged from the chat backend.
type BackendChatResponse struct {
	Intent     string      `json:"intent"`
	Content    string      `json:"content"`
	Status     string      `json:"status"`
	References []Reference `json:"references"`
	FollowUps  []FollowUp  `json:"follow_ups"`
	Note       string      `json:"note"`
}

// ResolvedReference is a backend reference cross-linked into the e-book.
type ResolvedReference struct {
	Reference
	ParagraphID  string `json:"paragraphId"`
	HeadingTitle string `json:"headingTitle"`
	Excerpt      string `json:"excerpt,omitempty"`
}

// ChatMessage is one line of a conversation as the front end renders it.
type ChatMessage struct {
	Sender    string     `json:"sender"` // "user" or "ai"
	Text      string     `json:"text"`
	FollowUps []FollowUp `json:"followUps,omitempty"`
}

// ChatReply is what /api/chat returns to the front end.
type ChatReply struct {
	Answered    bool                 `json:"answered"`
	Message     string               `json:"message"`
	MessageHTML string               `json:"messageHtml,omitempty"`
	Response    *BackendChatResponse `json:"response,omitempty"`
	References  []ResolvedReference  `json:"references"`
	SessionID   string               `json:"session_id,omitempty"`
}

// ExplainRequest asks for a term explanation, optionally as a follow-up.
type ExplainRequest struct {
	Term     string `json:"term" binding:"required"`
	FollowUp string `json:"follow_up,omitempty"`
}

type TermExplanation struct {
	Term                string   `json:"term"`
	Explanation         string   `json:"explanation"`
	InteractiveQuestion string   `json:"interactiveQuestion,omitempty"`
	CitationText        string   `json:"citationText,omitempty"`
	Citation            Citation `json:"citation"`
}
