package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"docai/internal/logger"
	"docai/internal/model"
	"docai/internal/platform/rabbitmq"
)

// WebhookWorker drains the document event queue and forwards every event to
// an n8n (or any HTTP) webhook.
type WebhookWorker struct {
	conn       *amqp.Connection
	queueName  string
	webhookURL string
	httpClient *http.Client

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWebhookWorker(conn *amqp.Connection, queueName, webhookURL string, timeout time.Duration) *WebhookWorker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookWorker{
		conn:       conn,
		queueName:  queueName,
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (w *WebhookWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(8, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"docai-webhook",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				w.handle(workerCtx, d)
			}
		}
	}()

	logger.Info("webhook worker started", "queue", w.queueName)
	return nil
}

func (w *WebhookWorker) handle(ctx context.Context, d amqp.Delivery) {
	var event model.DocumentEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		logger.ErrorErr(err, "worker decode document event failed")
		_ = d.Nack(false, false)
		return
	}

	if err := w.Forward(ctx, event); err != nil {
		logger.ErrorErr(err, "worker forward document event failed",
			"event", event.Event, "document_id", event.Document.ID)
		_ = d.Nack(false, false)
		return
	}

	_ = d.Ack(false)
}

// Forward posts a single event to the webhook. Any non-2xx reply is an error.
func (w *WebhookWorker) Forward(ctx context.Context, event model.DocumentEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal webhook payload failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook response status %d", resp.StatusCode)
	}
	return nil
}

func (w *WebhookWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
