package stream

import (
	"errors"
	"fmt"
)

// State is the lifecycle position of one stream session
type State int

const (
	StateIdle State = iota
	StateReading
	StateDraining
	StateClosed
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateClosed || s == StateCancelled || s == StateFailed
}

// Trigger is an input to the state machine
type Trigger int

const (
	TriggerOpen Trigger = iota
	TriggerChunk
	TriggerEOF
	TriggerDrained
	TriggerCancel
	TriggerFail
)

func (t Trigger) String() string {
	switch t {
	case TriggerOpen:
		return "open"
	case TriggerChunk:
		return "chunk"
	case TriggerEOF:
		return "eof"
	case TriggerDrained:
		return "drained"
	case TriggerCancel:
		return "cancel"
	case TriggerFail:
		return "fail"
	default:
		return "unknown"
	}
}

// ErrInvalidTransition is returned for a trigger the current state does not accept
var ErrInvalidTransition = errors.New("invalid stream state transition")

// Next returns the state reached from s on t
func (s State) Next(t Trigger) (State, error) {
	switch {
	case s == StateIdle && t == TriggerOpen:
		return StateReading, nil
	case s == StateReading && t == TriggerChunk:
		return StateReading, nil
	case s == StateReading && t == TriggerEOF:
		return StateDraining, nil
	case s == StateDraining && t == TriggerDrained:
		return StateClosed, nil
	case (s == StateReading || s == StateDraining) && t == TriggerCancel:
		return StateCancelled, nil
	case !s.Terminal() && t == TriggerFail:
		return StateFailed, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, t)
}
