// Package snapshot builds the payloads broadcast to panel viewers.
package snapshot

import (
	"context"
	"strconv"
	"time"

	"dinehub/internal/orderservice/core"
	"dinehub/pkg/models"
)

type Builder struct {
	store core.OrderStore
}

func NewBuilder(store core.OrderStore) *Builder {
	return &Builder{store: store}
}

// Build re-reads the order and its items from the store. Callers invoke it
// only after their mutation committed; an order loaded before the write
// can carry a stale, possibly empty item collection, and that staleness
// must never reach a broadcast.
func (b *Builder) Build(ctx context.Context, orderID int64) (*models.OrderSnapshot, error) {
	order, err := b.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return fromOrder(order), nil
}

func fromOrder(order *models.Order) *models.OrderSnapshot {
	memberCount := order.MemberCount
	if memberCount < 1 {
		memberCount = 1
	}

	snap := &models.OrderSnapshot{
		ID:            order.ID,
		ClientID:      order.ClientID,
		Username:      order.Username,
		CustomerName:  order.CustomerName,
		CustomerPhone: deref(order.CustomerPhone),
		MemberCount:   memberCount,
		TableNumber:   order.TableNumber,
		WaiterName:    deref(order.WaiterName),
		TotalAmount:   formatMoney(order.TotalAmount),
		Status:        order.Status,
		OrderTime:     order.OrderTime.Format(time.RFC3339),
		CreatedAt:     order.CreatedAt.Format(time.RFC3339),
		Items:         make([]models.SnapshotItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		snap.Items = append(snap.Items, models.SnapshotItem{
			Name:     item.Name,
			Portion:  item.Portion,
			Quantity: item.Quantity,
			Price:    formatMoney(item.Price),
		})
	}
	return snap
}

func formatMoney(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 2, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
