package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/bytedance/sonic"

	"kitchen-orders-backend/internal/model"
	"kitchen-orders-backend/internal/store"
)

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

// Alert is one new-order notice for a restaurant's kitchen devices.
type Alert struct {
	RestaurantID string `json:"-"`
	OrderID      string `json:"orderId"`
	Number       int64  `json:"number"`
	Title        string `json:"title"`
	Body         string `json:"body"`
}

// NewOrderAlert builds the kitchen notice for a freshly placed order.
func NewOrderAlert(order model.Order) Alert {
	items := 0
	for _, line := range order.Items {
		items += line.Quantity
	}
	return Alert{
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		Number:       order.Number,
		Title:        fmt.Sprintf("New order #%d", order.Number),
		Body:         fmt.Sprintf("%s, %s, %d item(s)", order.CustomerName, order.Type, items),
	}
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Alert
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	logger  *slog.Logger
}

// NewWorkerPool creates a new worker pool. A nil logger discards output.
func NewWorkerPool(size int, st store.Store, webpushOptions *webpush.Options, logger *slog.Logger) *WorkerPool {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Alert, size*16),
		store:   st,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	wp.logger.Debug("push worker started", slog.Int("worker", id))
	for {
		select {
		case alert := <-wp.jobs:
			wp.sendAlert(ctx, alert)
		case <-ctx.Done():
			wp.logger.Debug("push worker shutting down", slog.Int("worker", id))
			return
		}
	}
}

// Dispatch queues an alert. When the queue is full the alert is dropped so
// the caller never waits on push delivery.
func (wp *WorkerPool) Dispatch(alert Alert) {
	select {
	case wp.jobs <- alert:
	default:
		wp.logger.Warn("push queue full, dropping alert",
			slog.String("restaurant", alert.RestaurantID),
			slog.String("order", alert.OrderID))
	}
}

// NotifyNewOrder queues the kitchen alert for order.
func (wp *WorkerPool) NotifyNewOrder(order model.Order) {
	wp.Dispatch(NewOrderAlert(order))
}

// Jobs returns the jobs channel for testing.
func (wp *WorkerPool) Jobs() chan Alert {
	return wp.jobs
}

func (wp *WorkerPool) sendAlert(ctx context.Context, alert Alert) {
	subscriptions, err := wp.store.PushSubscriptions(ctx, alert.RestaurantID)
	if err != nil {
		wp.logger.Error("failed to fetch push subscriptions",
			slog.String("restaurant", alert.RestaurantID),
			slog.String("error", err.Error()))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := sonic.ConfigStd.Marshal(alert)
	if err != nil {
		wp.logger.Error("failed to encode push payload", slog.String("error", err.Error()))
		return
	}

	wp.logger.Info("sending kitchen alerts",
		slog.String("order", alert.OrderID),
		slog.Int("devices", len(subscriptions)))
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
		wp.logger.Warn("push send failed", slog.String("endpoint", sub.Endpoint), slog.String("error", err.Error()))
		return
	}
	defer resp.Body.Close()

	// The push service has forgotten this device.
	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		wp.logger.Info("removing expired push subscription", slog.String("endpoint", sub.Endpoint))
		if err := wp.store.DeletePushSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription",
				slog.String("endpoint", sub.Endpoint),
				slog.String("error", err.Error()))
		}
	}
}
