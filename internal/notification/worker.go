package notification

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"workb-agent/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of Sender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for delivering push payloads to every
// registered subscription.
type WorkerPool struct {
	size    int
	jobs    chan Payload
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Payload, size), // Buffered channel
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

// worker is the actual worker goroutine.
func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notification: worker %d started", id)
	for {
		select {
		case payload := <-wp.jobs:
			log.Printf("notification: worker %d delivering %s payload", id, payload.Type)
			wp.deliver(ctx, payload)
		case <-ctx.Done():
			log.Printf("notification: worker %d shutting down", id)
			return
		}
	}
}

// Dispatch sends a payload to the worker pool.
func (wp *WorkerPool) Dispatch(payload Payload) {
	wp.jobs <- payload
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Payload {
	return wp.jobs
}

// deliver fans one payload out to every registered subscription.
func (wp *WorkerPool) deliver(ctx context.Context, payload Payload) {
	var subscriptions []model.PushSubscription
	if err := wp.db.WithContext(ctx).Find(&subscriptions).Error; err != nil {
		log.Printf("notification: error fetching subscriptions: %v", err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("notification: failed to serialize payload: %v", err)
		return
	}

	log.Printf("notification: sending %d notifications", len(subscriptions))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, body)
	}
}

// send sends a single web push notification.
func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("notification: error sending to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Printf("notification: subscription %s expired, deleting", sub.Endpoint)
		if err := wp.db.WithContext(ctx).Delete(&sub).Error; err != nil {
			log.Printf("notification: failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
