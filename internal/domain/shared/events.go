package shared

import (
	"context"
	"time"
)

// EventType identifies a domain event.
type EventType string

const (
	EventXPAwarded      EventType = "xp_awarded"
	EventBadgeUnlocked  EventType = "badge_unlocked"
	EventStreakExtended EventType = "streak_extended"
	EventQuizPassed     EventType = "quiz_passed"
)

// Event is a fact that already happened and was committed.
type Event interface {
	EventType() EventType
	OccurredAt() time.Time
	AggregateID() string
	Payload() map[string]interface{}
}

// EventPublisher delivers committed events to interested parties.
// Delivery is best-effort; publishers must not block the caller for long.
type EventPublisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// BaseEvent carries the fields every event has.
type BaseEvent struct {
	Type      EventType
	Timestamp time.Time
	Aggregate string
}

// EventType returns the event type.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt returns when the event happened.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID returns the id of the user the event belongs to.
func (e BaseEvent) AggregateID() string {
	return e.Aggregate
}

// NewBaseEvent creates a BaseEvent stamped with the current UTC time.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Aggregate: aggregateID,
	}
}

// XPAwardedEvent is emitted after an award commits.
type XPAwardedEvent struct {
	BaseEvent
	ActionKind string
	Amount     int
	NewTotal   int
	Level      int
}

func (e XPAwardedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"action_kind": e.ActionKind,
		"amount":      e.Amount,
		"new_total":   e.NewTotal,
		"level":       e.Level,
	}
}

// NewXPAwardedEvent creates an XPAwardedEvent.
func NewXPAwardedEvent(userID, actionKind string, amount, newTotal, level int) XPAwardedEvent {
	return XPAwardedEvent{
		BaseEvent:  NewBaseEvent(EventXPAwarded, userID),
		ActionKind: actionKind,
		Amount:     amount,
		NewTotal:   newTotal,
		Level:      level,
	}
}

// BadgeUnlockedEvent is emitted once per newly earned badge.
type BadgeUnlockedEvent struct {
	BaseEvent
	BadgeCode string
	BadgeName string
	Emoji     string
}

func (e BadgeUnlockedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"badge_code": e.BadgeCode,
		"badge_name": e.BadgeName,
		"emoji":      e.Emoji,
	}
}

// NewBadgeUnlockedEvent creates a BadgeUnlockedEvent.
func NewBadgeUnlockedEvent(userID, code, name, emoji string) BadgeUnlockedEvent {
	return BadgeUnlockedEvent{
		BaseEvent: NewBaseEvent(EventBadgeUnlocked, userID),
		BadgeCode: code,
		BadgeName: name,
		Emoji:     emoji,
	}
}

// StreakExtendedEvent is emitted when an award moves the streak forward.
type StreakExtendedEvent struct {
	BaseEvent
	Current int
	Longest int
}

func (e StreakExtendedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"current": e.Current,
		"longest": e.Longest,
	}
}

// NewStreakExtendedEvent creates a StreakExtendedEvent.
func NewStreakExtendedEvent(userID string, current, longest int) StreakExtendedEvent {
	return StreakExtendedEvent{
		BaseEvent: NewBaseEvent(EventStreakExtended, userID),
		Current:   current,
		Longest:   longest,
	}
}

// QuizPassedEvent is emitted on the first passing attempt of a quiz.
type QuizPassedEvent struct {
	BaseEvent
	QuizID string
	Score  int
}

func (e QuizPassedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"quiz_id": e.QuizID,
		"score":   e.Score,
	}
}

// NewQuizPassedEvent creates a QuizPassedEvent.
func NewQuizPassedEvent(userID, quizID string, score int) QuizPassedEvent {
	return QuizPassedEvent{
		BaseEvent: NewBaseEvent(EventQuizPassed, userID),
		QuizID:    quizID,
		Score:     score,
	}
}

// NopPublisher discards events.
type NopPublisher struct{}

// Publish implements EventPublisher.
func (NopPublisher) Publish(context.Context, ...Event) error { return nil }
