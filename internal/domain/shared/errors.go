// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrConflict         = errors.New("conflict")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrInvalidState     = errors.New("invalid state")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Infrastructure errors
	ErrPersistence        = errors.New("persistence failure")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "user", "reward", "learning"
	Op      string // Operation that failed, e.g., "Award", "Submit"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message, safe to show to clients
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Validationf builds a validation error with a formatted message.
func Validationf(domain, op, format string, args ...any) *DomainError {
	return NewDomainError(domain, op, ErrValidation, fmt.Sprintf(format, args...))
}

// User domain errors
var (
	ErrUserNotFound    = NewDomainError("user", "Find", ErrNotFound, "user not found")
	ErrInvalidUserID   = NewDomainError("user", "Validate", ErrInvalidID, "invalid user id")
	ErrInvalidNickname = NewDomainError("user", "Validate", ErrInvalidInput, "nickname must be 2-40 characters")
)

// Reward domain errors
var (
	ErrInvalidAmount    = NewDomainError("reward", "Validate", ErrValueOutOfRange, "amount must be a positive integer")
	ErrInvalidAction    = NewDomainError("reward", "Validate", ErrEmptyValue, "action kind is required")
	ErrInvalidSource    = NewDomainError("reward", "Validate", ErrInvalidInput, "source reference requires type and id")
	ErrAlreadyPerformed = NewDomainError("reward", "Award", ErrConflict, "action already performed")
	ErrBadgeNotFound    = NewDomainError("reward", "FindBadge", ErrNotFound, "badge not found")
)

// Learning domain errors
var (
	ErrModuleNotFound = NewDomainError("learning", "FindModule", ErrNotFound, "learning module not found")
	ErrLessonNotFound = NewDomainError("learning", "FindLesson", ErrNotFound, "lesson not found")
	ErrQuizNotFound   = NewDomainError("learning", "FindQuiz", ErrNotFound, "quiz not found")
	ErrQuizEmpty      = NewDomainError("learning", "Submit", ErrValidation, "quiz has no questions")
	ErrNoAnswers      = NewDomainError("learning", "Submit", ErrEmptyValue, "answers are required")
	ErrTooManyAnswers = NewDomainError("learning", "Submit", ErrValueOutOfRange, "more answers than questions")
)

// Community domain errors
var (
	ErrPostNotFound      = NewDomainError("community", "FindPost", ErrNotFound, "post not found")
	ErrPollNotFound      = NewDomainError("community", "FindPoll", ErrNotFound, "poll not found")
	ErrPollClosed        = NewDomainError("community", "Vote", ErrConflict, "poll is closed")
	ErrInvalidPollOption = NewDomainError("community", "Vote", ErrInvalidInput, "unknown poll option")
	ErrMemoryNotFound    = NewDomainError("community", "FindMemory", ErrNotFound, "memory not found")
	ErrChallengeNotFound = NewDomainError("community", "FindChallenge", ErrNotFound, "challenge not found")
	ErrChallengeInactive = NewDomainError("community", "Complete", ErrConflict, "challenge is not active")
	ErrSelfLike          = NewDomainError("community", "Like", ErrInvalidInput, "cannot like your own post")
	ErrAlreadyLiked      = NewDomainError("community", "Like", ErrConflict, "post already liked")
	ErrAlreadyVoted      = NewDomainError("community", "Vote", ErrConflict, "already voted in this poll")
	ErrAlreadyCompleted  = NewDomainError("community", "Complete", ErrConflict, "already completed")
)

// Civic catalog errors
var (
	ErrPoliticianNotFound = NewDomainError("civic", "FindPolitician", ErrNotFound, "politician not found")
	ErrInvalidVote        = NewDomainError("civic", "Validate", ErrInvalidInput, "vote must be yes, no, abstain or absent")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if the error is an "already done" outcome.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrAlreadyProcessed)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsUnauthorized checks if the error is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout)
}

// PublicMessage returns the client-safe message for err.
// Errors without domain context collapse to fallback.
func PublicMessage(err error, fallback string) string {
	var de *DomainError
	if errors.As(err, &de) && !errors.Is(de.Kind, ErrPersistence) {
		return de.Message
	}
	return fallback
}
