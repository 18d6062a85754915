package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/kukjun/ai-agent-playground/internal/core/domain"
	"github.com/kukjun/ai-agent-playground/internal/core/ports"
)

const defaultOutboundBuffer = 64

// Hub owns one outbound queue per open client connection. Events are never
// broadcast; each Deliver targets exactly one connection.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*conn
	buffer int
}

type conn struct {
	queue chan domain.OutboundEvent
	done  chan struct{}
	once  sync.Once
}

func (c *conn) close() {
	c.once.Do(func() { close(c.done) })
}

var _ ports.Transport = (*Hub)(nil)

// NewHub creates a hub whose queues hold up to buffer pending events.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultOutboundBuffer
	}
	return &Hub{conns: make(map[string]*conn), buffer: buffer}
}

// Register opens a queue for connID. The returned channel is never closed;
// readers stop when their connection ends.
func (h *Hub) Register(connID string) (<-chan domain.OutboundEvent, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[connID]; ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrSessionExists, connID)
	}
	c := &conn{
		queue: make(chan domain.OutboundEvent, h.buffer),
		done:  make(chan struct{}),
	}
	h.conns[connID] = c
	return c.queue, nil
}

// Unregister closes the connection. Pending and future deliveries to it
// fail with domain.ErrSessionGone.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	delete(h.conns, connID)
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// Deliver blocks until ev is queued for connID, the connection closes, or
// ctx is done. Events are queued in call order.
func (h *Hub) Deliver(ctx context.Context, connID string, ev domain.OutboundEvent) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return domain.ErrSessionGone
	}

	select {
	case <-c.done:
		return domain.ErrSessionGone
	default:
	}

	select {
	case c.queue <- ev:
		return nil
	case <-c.done:
		return domain.ErrSessionGone
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
