package notify

import (
	"context"
	"sync"
)

type collectorKey struct{}

// Collector gathers the notifications raised while one request is being served.
type Collector struct {
	mu    sync.Mutex
	items []Notification
}

func WithCollector(ctx context.Context) (context.Context, *Collector) {
	c := &Collector{}
	return context.WithValue(ctx, collectorKey{}, c), c
}

func CollectorFrom(ctx context.Context) *Collector {
	c, _ := ctx.Value(collectorKey{}).(*Collector)
	return c
}

func (c *Collector) add(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
}

// Notifications never returns nil so it encodes as an empty JSON array.
func (c *Collector) Notifications() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}

// ContextNotifier records into the Collector attached to ctx, if any.
type ContextNotifier struct{}

func (ContextNotifier) Notify(ctx context.Context, n Notification) {
	if c := CollectorFrom(ctx); c != nil {
		c.add(n)
	}
}
