package presence

import (
	"testing"

	"github.com/lmoreira/courier/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Starting {
		t.Errorf("initial state = %s, want STARTING", m.Current())
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Starting, Foreground},
		{Starting, Background},
		{Starting, Stopped},
		{Foreground, Background},
		{Foreground, Stopped},
		{Background, Foreground},
		{Background, Stopped},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			// Walk to the "from" state.
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestStoppedIsTerminal(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Stopped); err != nil {
		t.Fatal(err)
	}
	for _, to := range []State{Starting, Foreground, Background} {
		if err := m.Transition(to); err == nil {
			t.Errorf("Transition(STOPPED -> %s) should fail", to)
		}
	}
	if m.Current() != Stopped {
		t.Errorf("state = %s, want STOPPED (should not have changed)", m.Current())
	}
}

func TestCannotReturnToStarting(t *testing.T) {
	m := NewMachine(nil)
	if err := m.Transition(Foreground); err != nil {
		t.Fatal(err)
	}
	if err := m.Transition(Starting); err == nil {
		t.Error("Transition(FOREGROUND -> STARTING) should fail")
	}
}

func TestForegrounded(t *testing.T) {
	m := NewMachine(nil)
	if m.Foregrounded() {
		t.Error("Foregrounded() = true before any transition")
	}
	if err := m.Transition(Foreground); err != nil {
		t.Fatal(err)
	}
	if !m.Foregrounded() {
		t.Error("Foregrounded() = false after FOREGROUND transition")
	}
	if err := m.Transition(Background); err != nil {
		t.Fatal(err)
	}
	if m.Foregrounded() {
		t.Error("Foregrounded() = true after BACKGROUND transition")
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("app.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Background); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != "app.state_changed" {
		t.Errorf("event kind = %q, want app.state_changed", evt.Kind)
	}
	change, ok := evt.Payload.(Change)
	if !ok {
		t.Fatalf("payload type = %T, want Change", evt.Payload)
	}
	if change.From != Starting || change.To != Background {
		t.Errorf("change = %v -> %v, want STARTING -> BACKGROUND", change.From, change.To)
	}
}

// TestVisibilityToggleLifecycle simulates the app going through a normal
// session: start in the background, come to the front, go back, and stop.
func TestVisibilityToggleLifecycle(t *testing.T) {
	m := NewMachine(nil)

	steps := []State{Background, Foreground, Background, Foreground, Stopped}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
	}
	if m.Current() != Stopped {
		t.Errorf("final state = %s, want STOPPED", m.Current())
	}
}

// walkTo drives the machine to the target state through valid transitions.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	if m.Current() == target {
		return
	}
	var path []State
	switch target {
	case Foreground:
		path = []State{Foreground}
	case Background:
		path = []State{Background}
	case Stopped:
		path = []State{Stopped}
	case Starting:
		// Already there; machines start in STARTING.
	}
	for _, s := range path {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): transition to %s failed: %v", target, s, err)
		}
	}
}
