package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"workb-agent/config"
	"workb-agent/internal/geo"
)

// FixedProvider always reports one coordinate. Used for office-desk installs
// where the machine does not move, and in tests.
type FixedProvider struct {
	Coordinate geo.Coordinate
}

func (p *FixedProvider) Current(ctx context.Context) (geo.Coordinate, error) {
	return p.Coordinate, nil
}

// BeaconProvider polls a location beacon endpoint (typically a phone
// companion app publishing its GPS fix) over HTTP.
type BeaconProvider struct {
	cfg    config.BeaconRequest
	client *http.Client
}

// NewBeaconProvider builds a provider for the configured beacon endpoint.
func NewBeaconProvider(cfg config.BeaconRequest) *BeaconProvider {
	return &BeaconProvider{
		cfg: cfg,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// beaconResponse models the beacon's fix payload.
type beaconResponse struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Current fetches the latest fix. A 401/403 from the beacon maps onto
// ErrPermissionDenied so the session degrades to the denied status.
func (p *BeaconProvider) Current(ctx context.Context) (geo.Coordinate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to create beacon request: %w", err)
	}
	for key, value := range p.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("beacon request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return geo.Coordinate{}, ErrPermissionDenied
	}
	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("beacon returned non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to read beacon response: %w", err)
	}

	var fix beaconResponse
	if err := json.Unmarshal(body, &fix); err != nil {
		return geo.Coordinate{}, fmt.Errorf("failed to unmarshal beacon response: %w", err)
	}
	return geo.Coordinate{Lat: fix.Lat, Lon: fix.Lon}, nil
}
