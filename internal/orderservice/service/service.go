package service

import (
	"context"
	"errors"
	"fmt"

	"dinehub/internal/notify"
	"dinehub/internal/orderservice/core"
	"dinehub/internal/orderservice/lifecycle"
	"dinehub/internal/orderservice/snapshot"
	"dinehub/pkg/logger"
	"dinehub/pkg/models"
)

type OrderService struct {
	store       core.OrderStore
	tenants     core.TenantRegistry
	broadcaster notify.Broadcaster
	snapshots   *snapshot.Builder
	logger      *logger.Logger
}

func NewOrderService(store core.OrderStore, tenants core.TenantRegistry, broadcaster notify.Broadcaster, log *logger.Logger) *OrderService {
	return &OrderService{
		store:       store,
		tenants:     tenants,
		broadcaster: broadcaster,
		snapshots:   snapshot.NewBuilder(store),
		logger:      log,
	}
}

// Place creates a pending order and pushes new_order to the tenant's
// waiter panels.
func (s *OrderService) Place(ctx context.Context, req *models.CreateOrderRequest, requestID string) (*models.Order, error) {
	tenant, err := s.tenants.Resolve(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, core.ErrTenantNotFound) {
			return nil, core.Invalidf("Company not found.")
		}
		s.logger.Error(requestID, "tenant_resolve_failed", "Failed to resolve tenant", err)
		return nil, err
	}
	if !tenant.IsActive {
		return nil, core.ErrTenantInactive
	}

	order, err := s.store.CreateOrder(ctx, req)
	if err != nil {
		if !errors.Is(err, core.ErrValidation) {
			s.logger.Error(requestID, "order_creation_failed", "Failed to create order in database", err)
		}
		return nil, err
	}
	s.logger.Debug(requestID, "order_created", fmt.Sprintf("Order created with ID: %d", order.ID))

	s.broadcast(ctx, requestID, notify.WaiterGroup(order.ClientID), notify.EventNewOrder, order.ID)

	return order, nil
}

// Accept assigns a waiter to a pending order, moves it to preparing and
// pushes order_accepted to the tenant's kitchen panels.
func (s *OrderService) Accept(ctx context.Context, orderID int64, waiterName, requestID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Accept(order.Status); err != nil {
		return nil, err
	}
	if err := s.requireActiveTenant(ctx, order.ClientID); err != nil {
		return nil, err
	}

	accepted, err := s.store.SetWaiter(ctx, orderID, waiterName)
	if err != nil {
		s.logger.Error(requestID, "order_accept_failed", fmt.Sprintf("Failed to accept order %d", orderID), err)
		return nil, err
	}
	s.logger.Info(requestID, "order_accepted", fmt.Sprintf("Order %d accepted by %s", orderID, waiterName))

	s.broadcast(ctx, requestID, notify.KitchenGroup(accepted.ClientID), notify.EventOrderAccepted, accepted.ID)

	return accepted, nil
}

// Advance sets the status directly. Plain status moves push no panel
// event; panels refresh through the list endpoints.
func (s *OrderService) Advance(ctx context.Context, orderID int64, next models.Status, requestID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Advance(order.Status, next); err != nil {
		return nil, err
	}
	if err := s.requireActiveTenant(ctx, order.ClientID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateStatus(ctx, orderID, next)
	if err != nil {
		s.logger.Error(requestID, "status_update_failed", fmt.Sprintf("Failed to update status of order %d", orderID), err)
		return nil, err
	}
	s.logger.Info(requestID, "status_updated", fmt.Sprintf("Order %d moved from %s to %s", orderID, order.Status, next))

	return updated, nil
}

func (s *OrderService) Cancel(ctx context.Context, orderID int64, requestID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Cancel(order.Status); err != nil {
		return nil, err
	}
	if err := s.requireActiveTenant(ctx, order.ClientID); err != nil {
		return nil, err
	}

	cancelled, err := s.store.UpdateStatus(ctx, orderID, models.StatusCancelled)
	if err != nil {
		s.logger.Error(requestID, "order_cancel_failed", fmt.Sprintf("Failed to cancel order %d", orderID), err)
		return nil, err
	}
	s.logger.Info(requestID, "order_cancelled", fmt.Sprintf("Order %d cancelled", orderID))

	return cancelled, nil
}

func (s *OrderService) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	return s.store.GetOrder(ctx, orderID)
}

func (s *OrderService) List(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	return s.store.ListOrders(ctx, filter)
}

func (s *OrderService) Stats(ctx context.Context, clientID, username string) (*models.OrderStats, error) {
	return s.store.Stats(ctx, clientID, username)
}

// requireActiveTenant blocks mutations for deactivated restaurants. Orders
// can outlive their company row (client_id is not a foreign key), so a
// missing tenant does not block.
func (s *OrderService) requireActiveTenant(ctx context.Context, clientID string) error {
	tenant, err := s.tenants.Resolve(ctx, clientID)
	if err != nil {
		if errors.Is(err, core.ErrTenantNotFound) {
			return nil
		}
		return err
	}
	if !tenant.IsActive {
		return core.ErrTenantInactive
	}
	return nil
}

// broadcast pushes a freshly rebuilt snapshot to the group. The mutation
// already committed; failures here are logged and swallowed, never
// surfaced to the mutating caller.
func (s *OrderService) broadcast(ctx context.Context, requestID, group, event string, orderID int64) {
	snap, err := s.snapshots.Build(ctx, orderID)
	if err != nil {
		s.logger.Error(requestID, "notify_failed", fmt.Sprintf("Failed to build %s snapshot for order %d", event, orderID), err)
		return
	}
	if err := s.broadcaster.Publish(ctx, group, event, snap); err != nil {
		s.logger.Error(requestID, "notify_failed", fmt.Sprintf("Failed to publish %s for order %d", event, orderID), err)
		return
	}
	s.logger.Debug(requestID, "notify_published", fmt.Sprintf("Published %s for order %d to %s", event, orderID, group))
}
