// Package domain defines the records kept by the ledger and the inputs that create or change them.
package domain

import "time"

// Session is the top-level grouping of LLM work.
type Session struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Conversation is a thread of exchanges inside exactly one session.
type Conversation struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Exchange is one user message and the assistant reply to it.
// Exchanges are immutable once stored.
type Exchange struct {
	ID               int64     `json:"id"`
	ConversationID   int64     `json:"conversation_id"`
	UserMessage      string    `json:"user_message"`
	AssistantMessage string    `json:"assistant_message"`
	Model            *string   `json:"model"`
	InputTokens      *int      `json:"input_tokens"`
	OutputTokens     *int      `json:"output_tokens"`
	CreatedAt        time.Time `json:"created_at"`
}

// TotalTokens returns input plus output tokens, or nil when either is unknown.
func (e *Exchange) TotalTokens() *int {
	if e.InputTokens == nil || e.OutputTokens == nil {
		return nil
	}
	total := *e.InputTokens + *e.OutputTokens
	return &total
}
