package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"workb-agent/config"
	"workb-agent/internal/api"
	"workb-agent/internal/apiclient"
	"workb-agent/internal/geo"
	"workb-agent/internal/location"
	"workb-agent/internal/netmon"
	"workb-agent/internal/notification"
	"workb-agent/internal/realtime"
	"workb-agent/internal/storage"
	"workb-agent/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "workb-agent ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	// Check for VAPID keys
	if cfg.Push.PublicKey == "" || cfg.Push.PrivateKey == "" {
		logger.Fatalf("VAPID keys must be configured. Please generate them and add them to your config file.")
	}

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	// Initialize local persistence
	localStore, err := storage.Open(&cfg.Storage)
	if err != nil {
		logger.Fatalf("failed to initialize local storage: %v", err)
	}
	logger.Println("local storage initialized")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connectivity and location monitoring
	network := netmon.New(&netmon.InterfaceProvider{})
	network.Initialize(ctx)

	var positions location.Provider
	if cfg.Location.Beacon.URL != "" {
		positions = location.NewBeaconProvider(cfg.Location.Beacon)
	} else {
		logger.Println("no location beacon configured, pinning position to the office")
		positions = &location.FixedProvider{Coordinate: geo.Coordinate{
			Lat: cfg.Office.Latitude,
			Lon: cfg.Office.Longitude,
		}}
	}
	session := location.NewSession(&cfg.Office, cfg.Location, positions, network)
	if !session.Initialize(ctx) {
		logger.Println("location provider denied access, proximity tracking degraded")
	}
	session.StartWatching()

	// Realtime session and domain stores
	rt := realtime.NewClient(cfg.Realtime, localStore)
	backend := apiclient.New(&cfg.Backend, localStore)

	authStore := store.NewAuth(backend, localStore, rt, cfg.Demo)
	attendanceStore := store.NewAttendance(backend, rt, cfg.Demo)
	leaveStore := store.NewLeave(backend, rt, cfg.Demo)
	noticeStore := store.NewNotices(backend, rt, cfg.Demo)

	attendanceStore.SetupRealtimeListeners()
	leaveStore.SetupRealtimeListeners()
	noticeStore.SetupRealtimeListeners()

	// Restore a persisted session, if any
	if ok, err := authStore.CheckAuth(ctx); err != nil {
		logger.Printf("failed to restore persisted session: %v", err)
	} else if ok {
		if err := attendanceStore.FetchStatus(ctx); err != nil {
			logger.Printf("initial attendance fetch failed: %v", err)
		}
	}

	// Notification pipeline
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, localStore.DB(), &webpushOptions)
	pool.Start(ctx)
	dispatcher := notification.NewDispatcher(pool)
	dispatcher.Start(rt)

	// Initialize router
	router := api.NewRouter(api.Deps{
		Server:     cfg.Server,
		Auth:       authStore,
		Attendance: attendanceStore,
		Leave:      leaveStore,
		Notices:    noticeStore,
		Location:   session,
		Network:    network,
		Storage:    localStore,
		Realtime:   rt,
		WebPush:    &webpushOptions,
	})
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")

	dispatcher.Stop()
	rt.Disconnect()
	session.Cleanup()
	network.Cleanup()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Agent gracefully stopped")
}
