// Package presence tracks whether the embedding app is in the
// foreground. The reconciliation engine consults it to decide whether
// an inbound message should raise a local notification.
package presence

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/lmoreira/courier/internal/bus"
)

// State represents the app visibility state.
type State string

const (
	Starting   State = "STARTING"
	Foreground State = "FOREGROUND"
	Background State = "BACKGROUND"
	Stopped    State = "STOPPED"
)

// validTransitions defines allowed state transitions.
var validTransitions = map[State][]State{
	Starting:   {Foreground, Background, Stopped},
	Foreground: {Background, Stopped},
	Background: {Foreground, Stopped},
	Stopped:    {},
}

// Machine tracks and enforces app visibility transitions.
type Machine struct {
	mu      sync.RWMutex
	current State
	bus     *bus.Bus
}

// NewMachine creates a new state machine starting in Starting state.
func NewMachine(b *bus.Bus) *Machine {
	return &Machine{
		current: Starting,
		bus:     b,
	}
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Foregrounded reports whether the app is currently visible.
func (m *Machine) Foregrounded() bool {
	return m.Current() == Foreground
}

// Transition attempts to move to a new state. Returns error if transition is invalid.
func (m *Machine) Transition(to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	allowed := validTransitions[m.current]
	if !slices.Contains(allowed, to) {
		return fmt.Errorf("invalid transition from %s to %s", m.current, to)
	}
	from := m.current
	m.current = to
	if m.bus != nil {
		m.bus.Publish(bus.Event{
			Kind:      "app.state_changed",
			Timestamp: time.Now(),
			Payload: Change{
				From: from,
				To:   to,
			},
		})
	}
	return nil
}

// Change is the payload for app state change events.
type Change struct {
	From State
	To   State
}
