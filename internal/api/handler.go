package api

import (
	"github.com/SherClockHolmes/webpush-go"

	"workb-agent/config"
	"workb-agent/internal/location"
	"workb-agent/internal/netmon"
	"workb-agent/internal/storage"
	"workb-agent/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	auth       *store.Auth
	attendance *store.Attendance
	leave      *store.Leave
	notices    *store.Notices
	location   *location.Session
	network    *netmon.Monitor
	storage    *storage.Storage
	realtime   store.Realtime
	webpush    *webpush.Options
}

// Deps bundles everything the local API exposes.
type Deps struct {
	Server     config.ServerConfig
	Auth       *store.Auth
	Attendance *store.Attendance
	Leave      *store.Leave
	Notices    *store.Notices
	Location   *location.Session
	Network    *netmon.Monitor
	Storage    *storage.Storage
	Realtime   store.Realtime
	WebPush    *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	return &Handler{
		auth:       deps.Auth,
		attendance: deps.Attendance,
		leave:      deps.Leave,
		notices:    deps.Notices,
		location:   deps.Location,
		network:    deps.Network,
		storage:    deps.Storage,
		realtime:   deps.Realtime,
		webpush:    deps.WebPush,
	}
}
