package domain

import (
	"encoding/json"
	"unicode/utf8"
)

const (
	MaxNameLength  = 255
	MaxModelLength = 100
)

// SessionCreate holds the fields for a new session.
type SessionCreate struct {
	Name        string  `json:"name" validate:"required,min=1,max=255"`
	Description *string `json:"description"`
}

// SessionUpdate is a merge patch: only fields present in the request are applied.
type SessionUpdate struct {
	Name        Patch[string] `json:"name"`
	Description Patch[string] `json:"description"`
}

// Validate checks the fields that were supplied.
func (u SessionUpdate) Validate() error {
	return validateTitle("name", u.Name)
}

// ConversationCreate holds the fields for a new conversation.
type ConversationCreate struct {
	SessionID int64  `json:"session_id"`
	Title     string `json:"title" validate:"required,min=1,max=255"`
}

// ConversationUpdate is a merge patch over a conversation.
type ConversationUpdate struct {
	Title Patch[string] `json:"title"`
}

// Validate checks the fields that were supplied.
func (u ConversationUpdate) Validate() error {
	return validateTitle("title", u.Title)
}

// ExchangeCreate holds the fields for a new exchange.
type ExchangeCreate struct {
	ConversationID   int64   `json:"conversation_id"`
	UserMessage      string  `json:"user_message" validate:"required,min=1"`
	AssistantMessage string  `json:"assistant_message" validate:"required,min=1"`
	Model            *string `json:"model" validate:"omitnil,max=100"`
	InputTokens      *int    `json:"input_tokens" validate:"omitnil,min=0"`
	OutputTokens     *int    `json:"output_tokens" validate:"omitnil,min=0"`
}

// Patch is one field of a merge-patch body. Set reports whether the key was
// present at all; Value is nil when the key was sent as null.
type Patch[T any] struct {
	Set   bool
	Value *T
}

// Some returns a patch that sets the field to v.
func Some[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Value: &v}
}

// Null returns a patch that clears the field.
func Null[T any]() Patch[T] {
	return Patch[T]{Set: true}
}

// UnmarshalJSON marks the field as present.
func (p *Patch[T]) UnmarshalJSON(data []byte) error {
	p.Set = true
	if string(data) == "null" {
		p.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	p.Value = &v
	return nil
}

// MarshalJSON writes the value or null.
func (p Patch[T]) MarshalJSON() ([]byte, error) {
	if p.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*p.Value)
}

func validateTitle(field string, p Patch[string]) error {
	if !p.Set {
		return nil
	}
	if p.Value == nil {
		return &ValidationError{Field: field, Message: "must not be null"}
	}
	n := utf8.RuneCountInString(*p.Value)
	if n < 1 || n > MaxNameLength {
		return &ValidationError{Field: field, Message: "must be between 1 and 255 characters"}
	}
	return nil
}

// ChatRequest asks a provider to answer Message in the context of an
// existing conversation.
type ChatRequest struct {
	Message      string   `json:"message" validate:"required,min=1"`
	Provider     string   `json:"provider"`
	Model        *string  `json:"model" validate:"omitnil,min=1,max=100"`
	SystemPrompt *string  `json:"system_prompt"`
	MaxTokens    *int     `json:"max_tokens" validate:"omitnil,min=1"`
	Temperature  *float64 `json:"temperature" validate:"omitnil,min=0,max=2"`
	Stream       bool     `json:"stream"`
}
