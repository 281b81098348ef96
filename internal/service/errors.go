package service

import "errors"

// ValidationError represents user input issues.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var errQueueFull = errors.New("archive queue full")
