// Package location owns the agent's office-proximity state: it samples a
// position provider, classifies each sample against the office geofence,
// folds in wifi connectivity, and broadcasts change-only updates.
package location

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"workb-agent/config"
	"workb-agent/internal/broadcast"
	"workb-agent/internal/geo"
	"workb-agent/internal/netmon"
)

// LocationStatus classifies the last position sample.
type LocationStatus string

const (
	LocationOffice  LocationStatus = "office"
	LocationRemote  LocationStatus = "remote"
	LocationUnknown LocationStatus = "unknown"
	LocationDenied  LocationStatus = "denied"
)

// WifiStatus classifies wifi connectivity.
type WifiStatus string

const (
	WifiConnected    WifiStatus = "connected"
	WifiDisconnected WifiStatus = "disconnected"
	WifiUnknown      WifiStatus = "unknown"
)

// State is the session's broadcast value. LastUpdated is informational and
// deliberately excluded from change detection.
type State struct {
	LocationStatus  LocationStatus `json:"locationStatus"`
	WifiStatus      WifiStatus     `json:"wifiStatus"`
	IsAtOffice      bool           `json:"isAtOffice"`
	IsWifiConnected bool           `json:"isWifiConnected"`
	LastUpdated     *time.Time     `json:"lastUpdated"`
}

func trackedEqual(a, b State) bool {
	return a.LocationStatus == b.LocationStatus &&
		a.WifiStatus == b.WifiStatus &&
		a.IsAtOffice == b.IsAtOffice &&
		a.IsWifiConnected == b.IsWifiConnected
}

// ErrPermissionDenied reports that the position provider refused access.
var ErrPermissionDenied = errors.New("location: permission denied")

// Provider abstracts the position source.
type Provider interface {
	Current(ctx context.Context) (geo.Coordinate, error)
}

// Position is one timestamped sample returned to one-shot callers.
type Position struct {
	Coordinate geo.Coordinate
	Timestamp  time.Time
}

// Session is the process's single location watch. One logical owner calls
// Initialize/StartWatching/Cleanup; concurrent observers use Subscribe.
type Session struct {
	office       geo.Coordinate
	radiusMeters float64
	cfg          config.LocationConfig

	provider Provider
	network  *netmon.Monitor
	hub      *broadcast.Hub[State]

	mu          sync.Mutex
	initialized bool
	watchCancel context.CancelFunc
	cached      *Position
	lastWatched *geo.Coordinate
}

// NewSession builds a session over a provider and the connectivity monitor.
func NewSession(office *config.OfficeConfig, loc config.LocationConfig, provider Provider, network *netmon.Monitor) *Session {
	return &Session{
		office:       geo.Coordinate{Lat: office.Latitude, Lon: office.Longitude},
		radiusMeters: office.RadiusMeters,
		cfg:          loc,
		provider:     provider,
		network:      network,
		hub: broadcast.NewHub(State{
			LocationStatus: LocationUnknown,
			WifiStatus:     WifiUnknown,
		}, trackedEqual),
	}
}

// Initialize prepares the session: one immediate position fetch and one
// connectivity check. Idempotent; returns false without panicking when the
// provider denies access, leaving the state at denied.
func (s *Session) Initialize(ctx context.Context) bool {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return true
	}
	s.mu.Unlock()

	if pos := s.CurrentLocation(ctx); pos == nil {
		if s.hub.Snapshot().LocationStatus == LocationDenied {
			return false
		}
		// Position unavailable is not fatal for initialization; the next
		// sample can still succeed.
	}

	s.checkWifi(ctx)

	s.mu.Lock()
	s.initialized = true
	s.mu.Unlock()
	log.Println("location: initialized")
	return true
}

// CurrentLocation performs a one-shot position fetch. A sample younger than
// the configured max age is served from cache; otherwise the provider is
// queried under the fetch timeout. Any provider error resolves to nil after
// degrading the broadcast state.
func (s *Session) CurrentLocation(ctx context.Context) *Position {
	s.mu.Lock()
	if s.cached != nil && time.Since(s.cached.Timestamp) <= s.cfg.MaxSampleAge {
		cached := *s.cached
		s.mu.Unlock()
		return &cached
	}
	s.mu.Unlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	coord, err := s.provider.Current(fetchCtx)
	if err != nil {
		s.handleError(err)
		return nil
	}

	pos := s.handleSample(coord)
	return &pos
}

// StartWatching begins continuous sampling, debounced by the configured
// minimum interval and distance filter. Idempotent.
func (s *Session) StartWatching() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.watchCancel = cancel
	go s.watch(ctx)
	log.Println("location: started watching")
}

// StopWatching halts continuous sampling. Idempotent.
func (s *Session) StopWatching() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watchCancel == nil {
		return
	}
	s.watchCancel()
	s.watchCancel = nil
	log.Println("location: stopped watching")
}

func (s *Session) watch(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sampleOnce(ctx)
		}
	}
}

// sampleOnce fetches one watch sample, applying the distance filter: a move
// shorter than the filter since the last processed sample is suppressed.
func (s *Session) sampleOnce(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	coord, err := s.provider.Current(fetchCtx)
	if err != nil {
		s.handleError(err)
		return
	}

	s.mu.Lock()
	if s.lastWatched != nil {
		moved := geo.Distance(coord.Lat, coord.Lon, s.lastWatched.Lat, s.lastWatched.Lon)
		if moved < s.cfg.DistanceFilterMeters {
			s.mu.Unlock()
			return
		}
	}
	s.mu.Unlock()

	s.handleSample(coord)
}

// handleSample classifies a sample and updates the broadcast state.
func (s *Session) handleSample(coord geo.Coordinate) Position {
	status, atOffice := geo.Classify(coord, s.office, s.radiusMeters)
	now := time.Now()
	pos := Position{Coordinate: coord, Timestamp: now}

	s.mu.Lock()
	s.cached = &pos
	s.lastWatched = &coord
	s.mu.Unlock()

	locStatus := LocationRemote
	if status == geo.StatusOffice {
		locStatus = LocationOffice
	}
	log.Printf("location: sample %.5f,%.5f at office=%t", coord.Lat, coord.Lon, atOffice)

	s.hub.Apply(func(prev State) State {
		prev.LocationStatus = locStatus
		prev.IsAtOffice = atOffice
		prev.LastUpdated = &now
		return prev
	})
	return pos
}

func (s *Session) handleError(err error) {
	status := LocationUnknown
	if errors.Is(err, ErrPermissionDenied) {
		status = LocationDenied
	}
	log.Printf("location: provider error: %v", err)

	s.hub.Apply(func(prev State) State {
		prev.LocationStatus = status
		prev.IsAtOffice = false
		return prev
	})
}

// checkWifi folds the connectivity monitor's classification into the
// session state.
func (s *Session) checkWifi(ctx context.Context) {
	net, err := s.network.Check(ctx)
	wifiStatus := WifiDisconnected
	wifiConnected := false
	switch {
	case err != nil:
		wifiStatus = WifiUnknown
	case net.Status == netmon.StatusWifi && net.IsConnected:
		wifiStatus = WifiConnected
		wifiConnected = true
	}

	s.hub.Apply(func(prev State) State {
		prev.WifiStatus = wifiStatus
		prev.IsWifiConnected = wifiConnected
		return prev
	})
}

// Refresh concurrently triggers one position fetch and one connectivity
// check and waits for both, regardless of individual outcome.
func (s *Session) Refresh(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.CurrentLocation(ctx)
	}()
	go func() {
		defer wg.Done()
		s.checkWifi(ctx)
	}()
	wg.Wait()
}

// Snapshot returns the current state.
func (s *Session) Snapshot() State {
	return s.hub.Snapshot()
}

// Subscribe registers an observer and returns the current snapshot plus an
// unsubscribe function. Observers see change-only updates afterwards.
func (s *Session) Subscribe(fn func(State)) (State, func()) {
	return s.hub.Subscribe(fn)
}

// Cleanup stops watching, drops all observers, and resets the state to
// unknown so a later Initialize never reflects stale data.
func (s *Session) Cleanup() {
	s.StopWatching()
	s.hub.ClearListeners()

	s.mu.Lock()
	s.initialized = false
	s.cached = nil
	s.lastWatched = nil
	s.mu.Unlock()

	s.hub.Update(State{
		LocationStatus: LocationUnknown,
		WifiStatus:     WifiUnknown,
	})
	log.Println("location: cleanup complete")
}
