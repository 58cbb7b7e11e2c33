// Package webhook implements delivery-id deduplication for inbound
// webhooks, backed by Redis so dedup survives across process restarts and
// multiple ingress replicas.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultTTL is how long a delivery id is remembered. GitHub redelivers
// within minutes on failure, never days later, so one day comfortably
// covers retries without growing the key set unbounded.
const defaultTTL = 24 * time.Hour

// Deduper marks webhook delivery ids as seen, returning true the first
// time a given id is observed and false on every subsequent duplicate
// delivery.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeduper constructs a Deduper over an already-connected Redis client.
func NewDeduper(client *redis.Client) *Deduper {
	return &Deduper{client: client, ttl: defaultTTL}
}

// SeenFirstTime atomically records deliveryID and reports whether this is
// the first time it has been observed (SET NX semantics).
func (d *Deduper) SeenFirstTime(ctx context.Context, source, deliveryID string) (bool, error) {
	if deliveryID == "" {
		// No delivery id header at all: process every delivery rather
		// than falsely deduping distinct events under the same empty key.
		return true, nil
	}
	key := fmt.Sprintf("webhook:delivery:%s:%s", source, deliveryID)
	ok, err := d.client.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}
