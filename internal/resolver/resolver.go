// Package resolver defines the optional external item lookup used when a
// key is absent from the store.
package resolver

import (
	"context"

	"github.com/devvoxel/itemdb/internal/item"
	"github.com/devvoxel/itemdb/internal/logging"
)

// Provider is an external source of named items. Resolve returns nil when
// the provider does not know the name; errors are treated the same way by
// callers, so providers should reserve them for real failures worth logging.
type Provider interface {
	Name() string
	Available() bool
	Resolve(ctx context.Context, name string) (*item.Item, error)
}

// Null is a Provider that never resolves anything.
type Null struct{}

func (Null) Name() string                                        { return "none" }
func (Null) Available() bool                                     { return false }
func (Null) Resolve(context.Context, string) (*item.Item, error) { return nil, nil }

// Select returns the first available provider, or Null when none is.
func Select(log logging.Logger, providers ...Provider) Provider {
	for _, p := range providers {
		if p != nil && p.Available() {
			log.Info(context.Background(), "item resolver selected", "provider", p.Name())
			return p
		}
	}
	return Null{}
}
