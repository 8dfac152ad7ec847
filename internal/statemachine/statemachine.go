// Package statemachine implements the controller's 4-state connection
// lifecycle and its observer fan-out.
package statemachine

import (
	"fmt"
	"log/slog"
	"sync"
)

// State is one of the four connection lifecycle states.
type State string

const (
	Disconnected State = "disconnected"
	Connecting   State = "connecting"
	Connected    State = "connected"
	Error        State = "error"
)

var validTransitions = map[State]map[State]bool{
	Disconnected: {Connecting: true},
	Connecting:   {Connected: true, Error: true, Disconnected: true},
	Connected:    {Disconnected: true},
	Error:        {Disconnected: true, Connecting: true},
}

// TransitionError reports an attempted transition not in the allowed
// table — a programmer error, not a runtime condition callers recover
// from.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("statemachine: invalid transition %s -> %s", e.From, e.To)
}

// Observer is notified after every accepted transition.
type Observer func(from, to State)

// Machine is a connection state machine with registered observers.
// Safe for concurrent use.
type Machine struct {
	mu        sync.Mutex
	state     State
	observers []Observer
	logger    *slog.Logger
}

// New returns a machine starting in Disconnected. A nil logger falls
// back to the standard logger.
func New(logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{state: Disconnected, logger: logger}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Observe registers an observer invoked with (from, to) after every
// accepted transition. Panics from an observer are caught and logged;
// they never propagate and never prevent other observers from running.
func (m *Machine) Observe(obs Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, obs)
}

// Transition moves the machine to `to`. It panics with a *TransitionError
// if `to` is not a valid target from the current state — this is a
// programmer error in the orchestrator, not a recoverable condition.
func (m *Machine) Transition(to State) {
	m.mu.Lock()
	from := m.state
	allowed := validTransitions[from][to]
	if !allowed {
		m.mu.Unlock()
		panic(&TransitionError{From: from, To: to})
	}
	m.state = to
	observers := append([]Observer(nil), m.observers...)
	m.mu.Unlock()

	for _, obs := range observers {
		m.runObserver(obs, from, to)
	}
}

func (m *Machine) runObserver(obs Observer, from, to State) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("statemachine: observer panicked", slog.Any("panic", r))
		}
	}()
	obs(from, to)
}
