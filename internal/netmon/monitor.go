// Package netmon classifies the active network adapter into coarse
// connectivity classes and broadcasts transitions.
package netmon

import (
	"context"
	"log"

	"workb-agent/internal/broadcast"
)

// Status is a coarse network adapter class.
type Status string

const (
	StatusWifi     Status = "wifi"
	StatusCellular Status = "cellular"
	StatusNone     Status = "none"
	StatusUnknown  Status = "unknown"
)

// State is the monitor's broadcast value.
type State struct {
	Status      Status `json:"status"`
	IsConnected bool   `json:"isConnected"`
}

// Provider abstracts the platform's network stack.
type Provider interface {
	// Fetch performs a single point-in-time classification.
	Fetch(ctx context.Context) (State, error)
	// Subscribe streams adapter transitions until the returned function is
	// called. Implementations may deliver redundant samples; the monitor
	// filters them.
	Subscribe(fn func(State)) func()
}

// Monitor owns the network state and its observers. Construct one per
// process and inject it; it is not a package-level singleton.
type Monitor struct {
	provider    Provider
	hub         *broadcast.Hub[State]
	unsubscribe func()
}

// New creates a monitor over the given provider.
func New(provider Provider) *Monitor {
	initial := State{Status: StatusUnknown}
	return &Monitor{
		provider: provider,
		hub:      broadcast.NewHub(initial, func(a, b State) bool { return a == b }),
	}
}

// Initialize fetches the current adapter state and starts continuous
// monitoring. Safe to call once per monitor.
func (m *Monitor) Initialize(ctx context.Context) {
	if _, err := m.Check(ctx); err != nil {
		log.Printf("network: initial check failed: %v", err)
	}
	if m.unsubscribe == nil {
		m.unsubscribe = m.provider.Subscribe(func(s State) {
			m.hub.Update(s)
		})
	}
	state := m.hub.Snapshot()
	log.Printf("network: initialized: %s connected=%t", state.Status, state.IsConnected)
}

// Check performs one point-in-time classification and routes it through the
// same update-and-broadcast path used by continuous monitoring. A provider
// error leaves the status at unknown.
func (m *Monitor) Check(ctx context.Context) (State, error) {
	state, err := m.provider.Fetch(ctx)
	if err != nil {
		m.hub.Update(State{Status: StatusUnknown})
		return m.hub.Snapshot(), err
	}
	m.hub.Update(state)
	return state, nil
}

// Snapshot returns the current network state.
func (m *Monitor) Snapshot() State {
	return m.hub.Snapshot()
}

// IsConnected reports whether any adapter is up.
func (m *Monitor) IsConnected() bool {
	return m.hub.Snapshot().IsConnected
}

// Subscribe registers an observer; it returns the current state and an
// unsubscribe function. Observers are notified on transitions only.
func (m *Monitor) Subscribe(fn func(State)) (State, func()) {
	return m.hub.Subscribe(fn)
}

// Cleanup stops continuous monitoring and drops all observers.
func (m *Monitor) Cleanup() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	m.hub.ClearListeners()
	log.Println("network: cleanup complete")
}
