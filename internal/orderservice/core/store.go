package core

import (
	"context"

	"dinehub/pkg/models"
)

// OrderStore is the persistence contract for the order aggregate. Every
// Order leaving the store carries its items; writes are atomic per row.
type OrderStore interface {
	CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, id int64) (*models.Order, error)
	ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.Order, error)
	SetWaiter(ctx context.Context, id int64, waiterName string) (*models.Order, error)
	Stats(ctx context.Context, clientID, username string) (*models.OrderStats, error)
}

// TenantRegistry resolves and authenticates restaurant accounts.
type TenantRegistry interface {
	Resolve(ctx context.Context, clientID string) (*models.Tenant, error)
	Authenticate(ctx context.Context, username, password string) (*models.StaffIdentity, error)
	ListWaiters(ctx context.Context, clientID string) ([]models.Waiter, error)
}
