package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/luzzdev/luzzia/internal/storage"
)

// Event names fired by the service.
const (
	EventUserCreated   = "user_created"
	EventThreadCreated = "thread_created"
)

const deliveryTimeout = 10 * time.Second

type envelope struct {
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Dispatcher delivers events to the webhooks registered in the admin panel.
// Delivery is best-effort: failures are logged and never propagate to the
// operation that triggered the event.
type Dispatcher struct {
	store  storage.AdminStorage
	client *http.Client
	logger *zap.Logger
}

func NewDispatcher(store storage.AdminStorage, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		client: &http.Client{Timeout: deliveryTimeout},
		logger: logger,
	}
}

// Fire delivers the event to all matching webhooks in the background.
func (d *Dispatcher) Fire(event string, data any) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		d.Dispatch(ctx, event, data)
	}()
}

// Dispatch delivers the event synchronously to all webhooks registered for
// it.
func (d *Dispatcher) Dispatch(ctx context.Context, event string, data any) {
	hooks, err := d.store.ListWebhooks(ctx)
	if err != nil {
		d.logger.Error("Failed to list webhooks", zap.Error(err), zap.String("event", event))
		return
	}

	body, err := json.Marshal(envelope{Event: event, Timestamp: time.Now(), Data: data})
	if err != nil {
		d.logger.Error("Failed to encode webhook payload", zap.Error(err), zap.String("event", event))
		return
	}

	for _, hook := range hooks {
		if hook.Event != event {
			continue
		}
		if err := d.deliver(ctx, hook.URL, body); err != nil {
			d.logger.Warn("Webhook delivery failed",
				zap.Error(err),
				zap.String("event", event),
				zap.String("webhook", hook.Name),
				zap.String("url", hook.URL))
			continue
		}
		d.logger.Debug("Webhook delivered",
			zap.String("event", event),
			zap.String("webhook", hook.Name))
	}
}

func (d *Dispatcher) deliver(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
