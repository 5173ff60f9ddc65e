package event

import "fmt"

// HandlerPanicError wraps a value recovered from a panicking handler
type HandlerPanicError struct {
	EventType string
	Value     any
}

func (e *HandlerPanicError) Error() string {
	return fmt.Sprintf("handler panicked on %s: %v", e.EventType, e.Value)
}
