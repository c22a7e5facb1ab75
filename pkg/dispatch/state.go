package dispatch

import (
	"go.uber.org/zap"
)

// State is a step of one exchange.
type State string

const (
	StateIdle       State = "idle"
	StateGating     State = "gating"
	StateRejected   State = "rejected"
	StateAccepted   State = "accepted"
	StateAssembling State = "assembling"
	StateCalling    State = "calling"
	StateShaping    State = "shaping"
	StateDelivering State = "delivering"
	StateDone       State = "done"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no transition leaves the state.
func (s State) Terminal() bool {
	return s == StateDone || s == StateCancelled
}

// StateHook observes every transition of every exchange.
type StateHook func(from, to State)

// exchange tracks the state of one Send call.
type exchange struct {
	state  State
	hook   StateHook
	logger *zap.Logger
}

func (e *exchange) to(next State) {
	if e.state.Terminal() {
		return
	}
	prev := e.state
	e.state = next

	e.logger.Debug("exchange state",
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
	)
	if e.hook != nil {
		e.hook(prev, next)
	}
}
