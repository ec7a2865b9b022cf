package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/devvoxel/itemdb/internal/logging"
)

const (
	defaultQueueSize = 64
	defaultTimeout   = 5 * time.Second
)

// WebhookConfig configures the outbound HTTP notifier.
type WebhookConfig struct {
	URL       string
	QueueSize int
	Timeout   time.Duration
}

type event struct {
	Kind    string `json:"kind"` // "change" or "error"
	Action  string `json:"action,omitempty"`
	Key     string `json:"key,omitempty"`
	Editor  string `json:"editor,omitempty"`
	Comment string `json:"comment,omitempty"`
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
	Cause   string `json:"cause,omitempty"`
}

// Webhook posts events as JSON to a configured URL from a single background
// worker. Enqueueing never blocks; when the queue is full the event is
// dropped and counted in the log.
type Webhook struct {
	url    string
	client *http.Client
	log    logging.Logger
	queue  chan event
	done   chan struct{}

	mu     sync.Mutex
	closed bool
}

// NewWebhook starts the delivery worker.
func NewWebhook(cfg WebhookConfig, log logging.Logger) *Webhook {
	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	w := &Webhook{
		url:    cfg.URL,
		client: &http.Client{Timeout: timeout},
		log:    log,
		queue:  make(chan event, size),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Webhook) NotifyChange(action, key, editor, comment string) {
	w.enqueue(event{Kind: "change", Action: action, Key: key, Editor: editor, Comment: comment})
}

func (w *Webhook) NotifyError(source, message string, cause error) {
	e := event{Kind: "error", Source: source, Message: message}
	if cause != nil {
		e.Cause = cause.Error()
	}
	w.enqueue(e)
}

func (w *Webhook) enqueue(e event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		w.log.Warn(context.Background(), "notifier closed, dropping event", "kind", e.Kind, "key", e.Key)
		return
	}
	select {
	case w.queue <- e:
	default:
		w.log.Warn(context.Background(), "notification queue full, dropping event", "kind", e.Kind, "key", e.Key)
	}
}

// Close stops accepting events and waits for already queued ones to drain.
// Safe to call more than once, and events arriving during or after
// shutdown are dropped rather than racing the closed queue.
func (w *Webhook) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *Webhook) run() {
	defer close(w.done)
	for e := range w.queue {
		w.deliver(e)
	}
}

func (w *Webhook) deliver(e event) {
	body, err := json.Marshal(e)
	if err != nil {
		w.log.Warn(context.Background(), "notification marshal failed", "error", err)
		return
	}
	resp, err := w.client.Post(w.url, "application/json", bytes.NewReader(body))
	if err != nil {
		w.log.Warn(context.Background(), "notification delivery failed", "error", err)
		return
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 300 {
		w.log.Warn(context.Background(), "notification rejected", "status", resp.StatusCode)
	}
}
