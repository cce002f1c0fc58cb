package events

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedEventType = errors.New("unsupported event type")
	ErrInvalidEventFormat   = errors.New("invalid event format")

	ErrMissingRepository = errors.New("missing repository in event")
	ErrMissingRelease    = errors.New("missing release in event")
)

// EventError represents an event-related error with context
type EventError struct {
	Op        string // parse or validate
	EventType string
	Err       error
}

func (e *EventError) Error() string {
	if e.EventType != "" {
		return fmt.Sprintf("event %s failed for type %s: %v", e.Op, e.EventType, e.Err)
	}
	return fmt.Sprintf("event %s failed: %v", e.Op, e.Err)
}

func (e *EventError) Unwrap() error {
	return e.Err
}

func unsupportedEventTypeError(eventType string) error {
	return &EventError{Op: "parse", EventType: eventType, Err: ErrUnsupportedEventType}
}

func parsingError(eventType string, err error) error {
	return &EventError{Op: "parse", EventType: eventType, Err: fmt.Errorf("%w: %v", ErrInvalidEventFormat, err)}
}

func validationError(eventType string, err error) error {
	return &EventError{Op: "validate", EventType: eventType, Err: err}
}
