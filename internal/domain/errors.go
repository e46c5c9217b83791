package domain

import (
	"errors"
	"fmt"
)

// Entity names used in error messages.
const (
	EntitySession      = "Session"
	EntityConversation = "Conversation"
	EntityExchange     = "Exchange"
)

// ErrNotFound matches every NotFoundError.
var ErrNotFound = errors.New("not found")

// NotFoundError reports a missing record. Parent is set when the missing
// record was the required owner of a record being created.
type NotFoundError struct {
	Entity string
	ID     int64
	Parent bool
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with id %d not found", e.Entity, e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a field that breaks its contract.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsNotFound reports whether err is a not-found outcome.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
