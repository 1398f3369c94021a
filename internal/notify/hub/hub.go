// Package hub is the in-memory broadcaster: one process, many groups.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"dinehub/internal/notify"
	"dinehub/pkg/logger"
)

type Hub struct {
	logger *logger.Logger

	mu     sync.Mutex
	groups map[string]map[string]notify.Subscriber
	closed bool
}

func New(log *logger.Logger) *Hub {
	return &Hub{
		logger: log,
		groups: make(map[string]map[string]notify.Subscriber),
	}
}

func (h *Hub) Join(group string, sub notify.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	members := h.groups[group]
	if members == nil {
		members = make(map[string]notify.Subscriber)
		h.groups[group] = members
	}
	members[sub.ID()] = sub
}

func (h *Hub) Leave(group string, sub notify.Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.groups[group]
	if members == nil {
		return
	}
	delete(members, sub.ID())
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// Publish marshals the frame once and offers it to every current member.
// Holding the lock across the fan-out serializes publishes, which is what
// gives each group its FIFO ordering and makes Join atomic with respect to
// the next publish. Sends are non-blocking, so the critical section stays
// short even with slow viewers.
func (h *Hub) Publish(ctx context.Context, group, event string, payload any) error {
	frame, err := json.Marshal(notify.Envelope{Type: event, Order: payload})
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.groups[group] {
		if !sub.Send(frame) {
			h.logger.Warn("", "notify_dropped",
				fmt.Sprintf("Dropped %s event for slow viewer %s in group %s", event, id, group), nil)
		}
	}
	return nil
}

// Close empties every group. Later publishes deliver to no one and later
// joins are ignored.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.groups = make(map[string]map[string]notify.Subscriber)
	return nil
}
