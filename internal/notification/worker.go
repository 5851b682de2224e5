package notification

import (
	"context"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog/log"

	"aicc-ivr-backend/internal/model"
	"aicc-ivr-backend/internal/store"
)

// Job asks for an alert to every device of an engineer assigned to a call.
type Job struct {
	EngineerID  string
	CallID      string
	CompanyName string
}

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool manages a pool of workers for sending engineer alerts.
type WorkerPool struct {
	size    int
	jobs    chan Job
	subs    store.SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs store.SubscriptionStore, webpushOptions *webpush.Options) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Job, size*16),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Debug().Int("worker", id).Msg("alert worker started")
	for {
		select {
		case job := <-wp.jobs:
			log.Debug().Int("worker", id).Str("call_id", job.CallID).Str("engineer_id", job.EngineerID).Msg("processing alert")
			wp.sendAlerts(ctx, job)
		case <-ctx.Done():
			log.Debug().Int("worker", id).Msg("alert worker shutting down")
			return
		}
	}
}

// Dispatch queues a job. It never blocks the caller: when the queue is
// full the alert is dropped and logged.
func (wp *WorkerPool) Dispatch(job Job) {
	select {
	case wp.jobs <- job:
	default:
		log.Warn().Str("call_id", job.CallID).Str("engineer_id", job.EngineerID).Msg("alert queue full, dropping alert")
	}
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Job {
	return wp.jobs
}

// AlertMessage is the text pushed to the engineer's devices.
func AlertMessage(job Job) string {
	company := job.CompanyName
	if company == "" {
		company = "미등록"
	}
	return fmt.Sprintf("%s 고객 통화가 배정되었습니다. (%s)", company, job.CallID)
}

func (wp *WorkerPool) sendAlerts(ctx context.Context, job Job) {
	subscriptions, err := wp.subs.SubscriptionsForEngineer(ctx, job.EngineerID)
	if err != nil {
		log.Error().Err(err).Str("engineer_id", job.EngineerID).Msg("failed to fetch subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Info().Int("count", len(subscriptions)).Str("engineer_id", job.EngineerID).Str("call_id", job.CallID).Msg("sending alerts")
	payload := []byte(AlertMessage(job))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to send notification")
		return
	}
	defer resp.Body.Close()

	// Handle expired subscriptions
	if resp.StatusCode == http.StatusGone {
		log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("failed to delete expired subscription")
		}
	}
}
