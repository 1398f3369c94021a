package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"dinehub/internal/notify/hub"
	"dinehub/internal/orderservice/core"
	"dinehub/internal/orderservice/service"
	"dinehub/pkg/logger"
	"dinehub/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu     sync.Mutex
	nextID int64
	orders map[int64]*models.Order
}

func newFakeStore() *fakeStore {
	return &fakeStore{orders: make(map[int64]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	clone := *o
	clone.Items = append([]models.OrderItem(nil), o.Items...)
	return &clone
}

func (f *fakeStore) CreateOrder(_ context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	now := time.Now().UTC()
	memberCount := 1
	if req.MemberCount != nil {
		memberCount = *req.MemberCount
	}
	order := &models.Order{
		ID:                  f.nextID,
		SessionID:           req.SessionID,
		ClientID:            req.ClientID,
		Username:            req.Username,
		CustomerName:        req.CustomerName,
		CustomerPhone:       req.CustomerPhone,
		TableNumber:         req.TableNumber,
		MemberCount:         memberCount,
		Subtotal:            req.Subtotal,
		TaxAmount:           req.TaxAmount,
		TotalAmount:         req.TotalAmount,
		Status:              models.StatusPending,
		OrderTime:           req.OrderTime,
		SpecialInstructions: req.SpecialInstructions,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	for i, item := range req.Items {
		order.Items = append(order.Items, models.OrderItem{
			ID:         int64(i + 1),
			OrderID:    order.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Portion:    item.Portion,
			Quantity:   item.Quantity,
			Price:      item.Price,
			Tax:        item.Tax,
			CreatedAt:  now,
		})
	}
	f.orders[order.ID] = order
	return cloneOrder(order), nil
}

func (f *fakeStore) GetOrder(_ context.Context, id int64) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[id]
	if !ok {
		return nil, core.ErrOrderNotFound
	}
	return cloneOrder(order), nil
}

func (f *fakeStore) ListOrders(_ context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.ClientID == "" {
		return nil, core.Invalidf("client_id is required.")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var list []models.Order
	for _, order := range f.orders {
		if order.ClientID != filter.ClientID {
			continue
		}
		if filter.Username != "" && order.Username != filter.Username {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		list = append(list, *cloneOrder(order))
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID > list[j].ID })
	return list, nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, id int64, status models.Status) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[id]
	if !ok {
		return nil, core.ErrOrderNotFound
	}
	order.Status = status
	order.UpdatedAt = time.Now().UTC()
	return cloneOrder(order), nil
}

func (f *fakeStore) SetWaiter(_ context.Context, id int64, waiterName string) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	order, ok := f.orders[id]
	if !ok {
		return nil, core.ErrOrderNotFound
	}
	order.WaiterName = &waiterName
	order.Status = models.StatusPreparing
	order.UpdatedAt = time.Now().UTC()
	return cloneOrder(order), nil
}

func (f *fakeStore) Stats(_ context.Context, clientID, username string) (*models.OrderStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	stats := &models.OrderStats{}
	for _, order := range f.orders {
		if order.ClientID != clientID || order.Username != username {
			continue
		}
		stats.TotalOrders++
		switch order.Status {
		case models.StatusPending:
			stats.PendingOrders++
		case models.StatusPreparing:
			stats.PreparingOrders++
		case models.StatusReady:
			stats.ReadyOrders++
		case models.StatusCompleted:
			stats.CompletedOrders++
			stats.TotalRevenue += order.TotalAmount
		case models.StatusCancelled:
			stats.CancelledOrders++
		}
	}
	return stats, nil
}

func (f *fakeStore) setStatus(t *testing.T, id int64, status models.Status) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	require.True(t, ok)
	order.Status = status
}

type fakeAccount struct {
	password string
	identity models.StaffIdentity
}

type fakeTenants struct {
	tenants  map[string]*models.Tenant
	accounts map[string]fakeAccount
	waiters  map[string][]models.Waiter
}

func newFakeTenants() *fakeTenants {
	return &fakeTenants{
		tenants: map[string]*models.Tenant{
			"acme": {ClientID: "acme", FirmName: "Acme Diner", Place: "Chennai", IsActive: true},
			"dust": {ClientID: "dust", FirmName: "Dusty Spoon", Place: "Salem", IsActive: false},
		},
		waiters: map[string][]models.Waiter{
			"acme": {
				{ID: 9, Username: "arul_staff", FullName: "Arul K", UserType: "user"},
				{ID: 7, Username: "meena_staff", FullName: "Meena R", UserType: "user"},
			},
		},
		accounts: map[string]fakeAccount{
			"meena_staff": {
				password: "filter-coffee",
				identity: models.StaffIdentity{
					ID:                 7,
					Username:           "meena_staff",
					FullName:           "Meena R",
					RestaurantUsername: "acme_admin",
					UserType:           "staff",
					Role:               "both",
					ClientID:           "acme",
					FirmName:           "Acme Diner",
					Place:              "Chennai",
					IsActive:           true,
				},
			},
			"dusty_staff": {
				password: "stale-vada",
				identity: models.StaffIdentity{ID: 8, Username: "dusty_staff", ClientID: "dust"},
			},
		},
	}
}

func (f *fakeTenants) Resolve(_ context.Context, clientID string) (*models.Tenant, error) {
	tenant, ok := f.tenants[clientID]
	if !ok {
		return nil, core.ErrTenantNotFound
	}
	clone := *tenant
	return &clone, nil
}

func (f *fakeTenants) Authenticate(_ context.Context, username, password string) (*models.StaffIdentity, error) {
	account, ok := f.accounts[username]
	if !ok || account.password != password {
		return nil, core.ErrInvalidCredentials
	}
	tenant, ok := f.tenants[account.identity.ClientID]
	if !ok || !tenant.IsActive {
		return nil, core.ErrTenantInactive
	}
	identity := account.identity
	return &identity, nil
}

func (f *fakeTenants) ListWaiters(_ context.Context, clientID string) ([]models.Waiter, error) {
	return append([]models.Waiter(nil), f.waiters[clientID]...), nil
}

func newTestAPI(t *testing.T) (*http.ServeMux, *fakeStore) {
	t.Helper()
	log := logger.NewLogger("order-service")
	store := newFakeStore()
	tenants := newFakeTenants()
	svc := service.NewOrderService(store, tenants, hub.New(log), log)
	mux := http.NewServeMux()
	NewOrderHandler(svc, tenants, log).Register(mux)
	return mux, store
}

func doRequest(t *testing.T, mux *http.ServeMux, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
	default:
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type apiEnvelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Count   int                   `json:"count"`
	Order   *models.Order         `json:"order"`
	Orders  []models.Order        `json:"orders"`
	Stats   *models.OrderStats    `json:"stats"`
	User    *models.StaffIdentity `json:"user"`
	Waiters []models.Waiter       `json:"waiters"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return env
}

func orderPayload() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		SessionID:    "sess-9001",
		ClientID:     "acme",
		Username:     "acme_admin",
		CustomerName: "Meera",
		TableNumber:  "T4",
		Subtotal:     240,
		TaxAmount:    12,
		TotalAmount:  252,
		OrderTime:    time.Date(2025, 3, 14, 12, 30, 0, 0, time.UTC),
		Items: []models.OrderItemRequest{
			{MenuItemID: 11, Name: "Masala Dosa", Portion: "full", Quantity: 2, Price: 100, Tax: 5},
			{MenuItemID: 3, Name: "Filter Coffee", Quantity: 1, Price: 40, Tax: 5},
		},
	}
}

func TestCreateOrderReturnsCreatedOrder(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Order created successfully.", env.Message)
	require.NotNil(t, env.Order)
	assert.Equal(t, int64(1), env.Order.ID)
	assert.Equal(t, models.StatusPending, env.Order.Status)
	assert.Len(t, env.Order.Items, 2)

	// Derived fields ride along on the wire; item_count sums quantities.
	assert.Contains(t, rec.Body.String(), `"item_count":3`)
	assert.Contains(t, rec.Body.String(), `"item_total":200`)
}

func TestCreateOrderRejections(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/orders/", "{not json")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid JSON payload", decodeEnvelope(t, rec).Message)

	payload := orderPayload()
	payload.CustomerName = ""
	rec = doRequest(t, mux, http.MethodPost, "/api/orders/", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "customer_name is required.", env.Message)

	payload = orderPayload()
	payload.ClientID = "ghost"
	rec = doRequest(t, mux, http.MethodPost, "/api/orders/", payload)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Company not found.", decodeEnvelope(t, rec).Message)

	payload = orderPayload()
	payload.ClientID = "dust"
	rec = doRequest(t, mux, http.MethodPost, "/api/orders/", payload)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Your restaurant account is inactive. Contact your administrator.", decodeEnvelope(t, rec).Message)
}

func TestGetOrder(t *testing.T) {
	mux, _ := newTestAPI(t)
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())

	rec := doRequest(t, mux, http.MethodGet, "/api/orders/1/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	require.NotNil(t, env.Order)
	assert.Equal(t, "Meera", env.Order.CustomerName)

	rec = doRequest(t, mux, http.MethodGet, "/api/orders/999/", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found.", decodeEnvelope(t, rec).Message)

	// Path ids that are not integers behave like missing orders.
	rec = doRequest(t, mux, http.MethodGet, "/api/orders/abc/", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found.", decodeEnvelope(t, rec).Message)
}

func TestListOrders(t *testing.T) {
	mux, _ := newTestAPI(t)
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())
	second := orderPayload()
	second.Username = "acme_counter"
	doRequest(t, mux, http.MethodPost, "/api/orders/", second)

	rec := doRequest(t, mux, http.MethodGet, "/api/orders/list/?client_id=acme", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, 2, env.Count)
	require.Len(t, env.Orders, 2)
	assert.Equal(t, int64(2), env.Orders[0].ID, "newest order first")

	rec = doRequest(t, mux, http.MethodGet, "/api/orders/list/?client_id=acme&username=acme_counter", nil)
	env = decodeEnvelope(t, rec)
	assert.Equal(t, 1, env.Count)

	rec = doRequest(t, mux, http.MethodGet, "/api/orders/list/", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "client_id is required.", decodeEnvelope(t, rec).Message)

	// No matches still yields an array, never null.
	rec = doRequest(t, mux, http.MethodGet, "/api/orders/list/?client_id=nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"orders":[]`)
	assert.Equal(t, 0, decodeEnvelope(t, rec).Count)
}

func TestListOrdersFiltersByStatus(t *testing.T) {
	mux, store := newTestAPI(t)
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())
	store.setStatus(t, 1, models.StatusReady)

	rec := doRequest(t, mux, http.MethodGet, "/api/orders/list/?client_id=acme&status=ready", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.Len(t, env.Orders, 1)
	assert.Equal(t, int64(1), env.Orders[0].ID)
}

func TestOrderStats(t *testing.T) {
	mux, store := newTestAPI(t)
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())
	store.setStatus(t, 2, models.StatusCompleted)

	rec := doRequest(t, mux, http.MethodGet, "/api/orders/stats/?client_id=acme&username=acme_admin", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Stats)
	assert.Equal(t, 2, env.Stats.TotalOrders)
	assert.Equal(t, 1, env.Stats.PendingOrders)
	assert.Equal(t, 1, env.Stats.CompletedOrders)
	assert.InDelta(t, 252, env.Stats.TotalRevenue, 0.001)

	rec = doRequest(t, mux, http.MethodGet, "/api/orders/stats/?client_id=acme", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "client_id and username are required.", decodeEnvelope(t, rec).Message)
}

func TestAcceptOrder(t *testing.T) {
	mux, _ := newTestAPI(t)
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())

	rec := doRequest(t, mux, http.MethodPost, "/api/orders/1/accept/", models.AcceptOrderRequest{WaiterName: "  Rajan "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Order accepted by Rajan and sent to kitchen.", env.Message)
	require.NotNil(t, env.Order)
	assert.Equal(t, models.StatusPreparing, env.Order.Status)
	require.NotNil(t, env.Order.WaiterName)
	assert.Equal(t, "Rajan", *env.Order.WaiterName)

	rec = doRequest(t, mux, http.MethodPost, "/api/orders/1/accept/", models.AcceptOrderRequest{WaiterName: "Suresh"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, `Cannot accept an order with status "preparing". Only pending orders can be accepted.`, decodeEnvelope(t, rec).Message)

	rec = doRequest(t, mux, http.MethodPost, "/api/orders/1/accept/", models.AcceptOrderRequest{WaiterName: "   "})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "waiter_name is required.", decodeEnvelope(t, rec).Message)

	rec = doRequest(t, mux, http.MethodPost, "/api/orders/99/accept/", models.AcceptOrderRequest{WaiterName: "Rajan"})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found.", decodeEnvelope(t, rec).Message)
}

func TestUpdateOrderStatus(t *testing.T) {
	mux, store := newTestAPI(t)
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())

	rec := doRequest(t, mux, http.MethodPatch, "/api/orders/1/status/", models.UpdateStatusRequest{Status: "ready"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Order status updated successfully.", env.Message)
	require.NotNil(t, env.Order)
	assert.Equal(t, models.StatusReady, env.Order.Status)

	rec = doRequest(t, mux, http.MethodPatch, "/api/orders/1/status/", models.UpdateStatusRequest{Status: "burnt"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status must be one of: pending, preparing, ready, completed, cancelled.", decodeEnvelope(t, rec).Message)

	rec = doRequest(t, mux, http.MethodPatch, "/api/orders/1/status/", models.UpdateStatusRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "status is required.", decodeEnvelope(t, rec).Message)

	store.setStatus(t, 1, models.StatusCompleted)
	rec = doRequest(t, mux, http.MethodPatch, "/api/orders/1/status/", models.UpdateStatusRequest{Status: "pending"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot change status of a completed order.", decodeEnvelope(t, rec).Message)
}

func TestCancelOrder(t *testing.T) {
	mux, _ := newTestAPI(t)
	doRequest(t, mux, http.MethodPost, "/api/orders/", orderPayload())

	rec := doRequest(t, mux, http.MethodPost, "/api/orders/1/cancel/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Order cancelled successfully.", env.Message)
	require.NotNil(t, env.Order)
	assert.Equal(t, models.StatusCancelled, env.Order.Status)

	rec = doRequest(t, mux, http.MethodPost, "/api/orders/1/cancel/", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Cannot cancel an order with status: cancelled.", decodeEnvelope(t, rec).Message)
}

func TestWaiterList(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := doRequest(t, mux, http.MethodGet, "/api/waiters/?client_id=acme", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	require.Len(t, env.Waiters, 2)
	assert.Equal(t, "arul_staff", env.Waiters[0].Username)
	assert.Equal(t, "Meena R", env.Waiters[1].FullName)
	assert.Equal(t, "user", env.Waiters[0].UserType)

	rec = doRequest(t, mux, http.MethodGet, "/api/waiters/", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "client_id is required.", decodeEnvelope(t, rec).Message)

	// Tenants with no staff get an array, never null.
	rec = doRequest(t, mux, http.MethodGet, "/api/waiters/?client_id=dust", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"waiters":[]`)
}

func TestStaffLogin(t *testing.T) {
	mux, _ := newTestAPI(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/staff-login/", models.StaffLoginRequest{Username: "meena_staff", Password: "filter-coffee"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "Login successful", env.Message)
	require.NotNil(t, env.User)
	assert.Equal(t, "meena_staff", env.User.Username)
	assert.Equal(t, "acme_admin", env.User.RestaurantUsername)

	rec = doRequest(t, mux, http.MethodPost, "/api/staff-login/", models.StaffLoginRequest{Username: "meena_staff", Password: "wrong"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid credentials. Please check your username and password.", decodeEnvelope(t, rec).Message)

	rec = doRequest(t, mux, http.MethodPost, "/api/staff-login/", models.StaffLoginRequest{Username: "dusty_staff", Password: "stale-vada"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Your restaurant account is inactive. Contact your administrator.", decodeEnvelope(t, rec).Message)

	rec = doRequest(t, mux, http.MethodPost, "/api/staff-login/", models.StaffLoginRequest{Username: "meena_staff"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Username and password are required.", decodeEnvelope(t, rec).Message)
}
