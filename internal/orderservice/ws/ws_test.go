package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dinehub/internal/notify"
	"dinehub/internal/notify/hub"
	"dinehub/internal/orderservice/core"
	"dinehub/pkg/logger"
	"dinehub/pkg/models"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry struct {
	tenants map[string]*models.Tenant
}

func (f *fakeRegistry) Resolve(_ context.Context, clientID string) (*models.Tenant, error) {
	tenant, ok := f.tenants[clientID]
	if !ok {
		return nil, core.ErrTenantNotFound
	}
	clone := *tenant
	return &clone, nil
}

func (f *fakeRegistry) Authenticate(context.Context, string, string) (*models.StaffIdentity, error) {
	return nil, core.ErrInvalidCredentials
}

func (f *fakeRegistry) ListWaiters(context.Context, string) ([]models.Waiter, error) {
	return nil, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	log := logger.NewLogger("order-service")
	broadcaster := hub.New(log)
	registry := &fakeRegistry{tenants: map[string]*models.Tenant{
		"acme": {ClientID: "acme", IsActive: true},
		"dust": {ClientID: "dust", IsActive: false},
	}}

	mux := http.NewServeMux()
	handler := NewHandler(registry, broadcaster, 8, log)
	handler.Register(mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(handler.CloseAll)
	return srv, broadcaster
}

func dial(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

type frame struct {
	Type  string               `json:"type"`
	Order models.OrderSnapshot `json:"order"`
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var f frame
	require.NoError(t, json.Unmarshal(raw, &f))
	return f
}

func snapshot(id int64, status models.Status) models.OrderSnapshot {
	return models.OrderSnapshot{
		ID:           id,
		ClientID:     "acme",
		Username:     "acme_admin",
		CustomerName: "Meera",
		MemberCount:  2,
		TableNumber:  "T4",
		TotalAmount:  "252.00",
		Status:       status,
		Items:        []models.SnapshotItem{{Name: "Masala Dosa", Quantity: 2, Price: "100.00"}},
	}
}

func TestWaiterPanelReceivesPublishedEvents(t *testing.T) {
	srv, broadcaster := newTestServer(t)
	conn := dial(t, srv, "/ws/waiter/acme/")

	err := broadcaster.Publish(context.Background(), notify.WaiterGroup("acme"), notify.EventNewOrder, snapshot(41, models.StatusPending))
	require.NoError(t, err)

	f := readFrame(t, conn)
	assert.Equal(t, "new_order", f.Type)
	assert.Equal(t, int64(41), f.Order.ID)
	assert.Equal(t, "252.00", f.Order.TotalAmount)
	require.Len(t, f.Order.Items, 1)
	assert.Equal(t, "100.00", f.Order.Items[0].Price)
}

func TestKitchenPanelOnlySeesItsOwnGroup(t *testing.T) {
	srv, broadcaster := newTestServer(t)
	conn := dial(t, srv, "/ws/kitchen/acme/")

	// A waiter event must not reach the kitchen panel; the next frame
	// the panel sees is the kitchen one.
	require.NoError(t, broadcaster.Publish(context.Background(), notify.WaiterGroup("acme"), notify.EventNewOrder, snapshot(7, models.StatusPending)))
	require.NoError(t, broadcaster.Publish(context.Background(), notify.KitchenGroup("acme"), notify.EventOrderAccepted, snapshot(8, models.StatusPreparing)))

	f := readFrame(t, conn)
	assert.Equal(t, "order_accepted", f.Type)
	assert.Equal(t, int64(8), f.Order.ID)
	assert.Equal(t, models.StatusPreparing, f.Order.Status)
}

func TestTwoTenantsAreIsolated(t *testing.T) {
	srv, broadcaster := newTestServer(t)
	acme := dial(t, srv, "/ws/waiter/acme/")

	other := snapshot(9, models.StatusPending)
	other.ClientID = "dust"
	require.NoError(t, broadcaster.Publish(context.Background(), notify.WaiterGroup("dust"), notify.EventNewOrder, other))
	require.NoError(t, broadcaster.Publish(context.Background(), notify.WaiterGroup("acme"), notify.EventNewOrder, snapshot(10, models.StatusPending)))

	f := readFrame(t, acme)
	assert.Equal(t, int64(10), f.Order.ID)
}

func TestHandshakeRejections(t *testing.T) {
	srv, _ := newTestServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url+"/ws/waiter/ghost/", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(url+"/ws/kitchen/dust/", nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

type recordingBroadcaster struct {
	*hub.Hub

	mu     sync.Mutex
	joins  []string
	leaves []string
}

func (r *recordingBroadcaster) Join(group string, sub notify.Subscriber) {
	r.mu.Lock()
	r.joins = append(r.joins, group)
	r.mu.Unlock()
	r.Hub.Join(group, sub)
}

func (r *recordingBroadcaster) Leave(group string, sub notify.Subscriber) {
	r.mu.Lock()
	r.leaves = append(r.leaves, group)
	r.mu.Unlock()
	r.Hub.Leave(group, sub)
}

func (r *recordingBroadcaster) left() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.leaves...)
}

func TestDisconnectLeavesGroup(t *testing.T) {
	log := logger.NewLogger("order-service")
	broadcaster := &recordingBroadcaster{Hub: hub.New(log)}
	registry := &fakeRegistry{tenants: map[string]*models.Tenant{
		"acme": {ClientID: "acme", IsActive: true},
	}}

	mux := http.NewServeMux()
	handler := NewHandler(registry, broadcaster, 8, log)
	handler.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dial(t, srv, "/ws/waiter/acme/")
	require.Eventually(t, func() bool {
		broadcaster.mu.Lock()
		defer broadcaster.mu.Unlock()
		return len(broadcaster.joins) == 1
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	assert.Eventually(t, func() bool {
		left := broadcaster.left()
		return len(left) == 1 && left[0] == notify.WaiterGroup("acme")
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCloseAllTellsViewersToGoAway(t *testing.T) {
	log := logger.NewLogger("order-service")
	broadcaster := hub.New(log)
	registry := &fakeRegistry{tenants: map[string]*models.Tenant{
		"acme": {ClientID: "acme", IsActive: true},
	}}

	mux := http.NewServeMux()
	handler := NewHandler(registry, broadcaster, 8, log)
	handler.Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	conn := dial(t, srv, "/ws/waiter/acme/")

	// The dial returns at the handshake; wait for the serve goroutine to
	// finish registering the connection.
	require.Eventually(t, func() bool {
		handler.mu.Lock()
		defer handler.mu.Unlock()
		return len(handler.clients) == 1
	}, time.Second, 10*time.Millisecond)

	handler.CloseAll()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "expected going-away close, got %v", err)
}
