// Package notify delivers best-effort change and error notifications.
// Delivery must never block or fail a mutation; a full queue drops the
// message.
package notify

import (
	"context"

	"github.com/devvoxel/itemdb/internal/logging"
)

// Notifier receives change and error events from the record store.
type Notifier interface {
	NotifyChange(action, key, editor, comment string)
	NotifyError(source, message string, cause error)
	Close()
}

// Nop discards all notifications.
type Nop struct{}

func (Nop) NotifyChange(string, string, string, string) {}
func (Nop) NotifyError(string, string, error)           {}
func (Nop) Close()                                      {}

// Select returns a webhook notifier when a URL is configured, Nop otherwise.
func Select(cfg WebhookConfig, log logging.Logger) Notifier {
	if cfg.URL == "" {
		return Nop{}
	}
	log.Info(context.Background(), "webhook notifier enabled", "url", cfg.URL)
	return NewWebhook(cfg, log)
}
