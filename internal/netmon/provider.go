package netmon

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"
)

// InterfaceProvider classifies connectivity from the host's network
// interfaces. Wireless adapters are recognized by kernel naming conventions;
// anything else that is up counts as unknown-but-connected, matching the
// coarse classes the agent cares about.
type InterfaceProvider struct {
	// PollInterval paces the Subscribe loop. Zero means 10 seconds.
	PollInterval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

var wifiPrefixes = []string{"wl", "wifi", "ath"}
var cellularPrefixes = []string{"wwan", "rmnet", "ppp"}

// Fetch classifies the currently active interfaces.
func (p *InterfaceProvider) Fetch(ctx context.Context) (State, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return State{Status: StatusUnknown}, err
	}

	state := State{Status: StatusNone}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil || len(addrs) == 0 {
			continue
		}

		name := strings.ToLower(iface.Name)
		switch {
		case hasAnyPrefix(name, wifiPrefixes):
			// Wifi wins over any other adapter class.
			return State{Status: StatusWifi, IsConnected: true}, nil
		case hasAnyPrefix(name, cellularPrefixes):
			state = State{Status: StatusCellular, IsConnected: true}
		default:
			if !state.IsConnected {
				state = State{Status: StatusUnknown, IsConnected: true}
			}
		}
	}
	return state, nil
}

func hasAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Subscribe polls for adapter transitions. Redundant samples are delivered;
// the monitor's broadcaster filters them.
func (p *InterfaceProvider) Subscribe(fn func(State)) func() {
	interval := p.PollInterval
	if interval <= 0 {
		interval = 10 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if state, err := p.Fetch(ctx); err == nil {
					fn(state)
				}
			}
		}
	}()

	return cancel
}
