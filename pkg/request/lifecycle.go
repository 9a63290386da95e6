package request

import "fmt"

// State of a RequestBuilder.
type State int

const (
	StateCreated State = iota
	StateConfigured
	StateExecuting
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateConfigured:
		return "configured"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// IsFinal returns true if the builder has already been sent.
func (s State) IsFinal() bool {
	return s == StateCompleted || s == StateFailed
}

// Lifecycle enforces the single use of a builder:
// Created -> Configured -> Executing -> Completed | Failed.
// The zero value is in the Created state.
type Lifecycle struct {
	state State
}

func (l *Lifecycle) State() State {
	return l.state
}

// Configure moves the builder to the Configured state.
// ErrBuilderConsumed is returned if the terminal call has already started.
func (l *Lifecycle) Configure() error {
	switch l.state {
	case StateCreated, StateConfigured:
		l.state = StateConfigured
		return nil
	default:
		return fmt.Errorf("%w: cannot configure the builder in the %s state", ErrBuilderConsumed, l.state)
	}
}

// Execute moves the builder to the Executing state.
// ErrBuilderConsumed is returned on the second terminal call.
func (l *Lifecycle) Execute() error {
	switch l.state {
	case StateCreated, StateConfigured:
		l.state = StateExecuting
		return nil
	default:
		return fmt.Errorf("%w: cannot send the builder in the %s state", ErrBuilderConsumed, l.state)
	}
}

// Done finishes the terminal call, the state is Completed if err is nil, otherwise Failed.
func (l *Lifecycle) Done(err error) {
	if err == nil {
		l.state = StateCompleted
	} else {
		l.state = StateFailed
	}
}
