package graph

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownNode    = errors.New("unknown node")
	ErrUnknownEdge    = errors.New("unknown edge")
	ErrSlotRange      = errors.New("slot out of range")
	ErrTypeMismatch   = errors.New("port type mismatch")
	ErrSlotOccupied   = errors.New("input slot already connected")
	ErrCycle          = errors.New("cycle detected")
	ErrNotTriggerable = errors.New("node cannot be triggered")
)

// Error wraps a graph edit rejection. Kind is one of the sentinel errors
// above so callers can match it with errors.Is.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

func errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
