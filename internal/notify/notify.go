// Package notify defines the per-tenant event fan-out contract. Group
// membership is the isolation boundary: group names are built only from
// tenant identifiers the caller has already validated.
package notify

import "context"

const (
	EventNewOrder      = "new_order"
	EventOrderAccepted = "order_accepted"
)

func WaiterGroup(clientID string) string {
	return "waiter_" + clientID
}

func KitchenGroup(clientID string) string {
	return "kitchen_" + clientID
}

// Envelope is the frame a viewer receives.
type Envelope struct {
	Type  string `json:"type"`
	Order any    `json:"order"`
}

// Subscriber is one connected viewer. Send offers a marshalled frame and
// must never block; false reports the frame was dropped.
type Subscriber interface {
	ID() string
	Send(message []byte) bool
}

// Broadcaster fans events out to every subscriber present in the group at
// publish time. There is no backlog: late joiners miss earlier events.
type Broadcaster interface {
	Join(group string, sub Subscriber)
	Leave(group string, sub Subscriber)
	Publish(ctx context.Context, group, event string, payload any) error
	Close() error
}
