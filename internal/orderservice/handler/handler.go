package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"dinehub/internal/orderservice/core"
	"dinehub/internal/orderservice/service"
	"dinehub/internal/orderservice/validation"
	"dinehub/pkg/logger"
	"dinehub/pkg/models"

	"github.com/google/uuid"
)

type OrderHandler struct {
	service   *service.OrderService
	tenants   core.TenantRegistry
	validator *validation.OrderValidator
	logger    *logger.Logger
}

func NewOrderHandler(orderService *service.OrderService, tenants core.TenantRegistry, logger *logger.Logger) *OrderHandler {
	return &OrderHandler{
		service:   orderService,
		tenants:   tenants,
		validator: validation.NewOrderValidator(),
		logger:    logger,
	}
}

// Register wires the REST routes. The panel clients call every endpoint
// with a trailing slash; {$} keeps the patterns from swallowing deeper
// paths.
func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders/{$}", h.CreateOrder)
	mux.HandleFunc("GET /api/orders/list/{$}", h.ListOrders)
	mux.HandleFunc("GET /api/orders/stats/{$}", h.OrderStats)
	mux.HandleFunc("GET /api/orders/{id}/{$}", h.GetOrder)
	mux.HandleFunc("POST /api/orders/{id}/accept/{$}", h.AcceptOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status/{$}", h.UpdateOrderStatus)
	mux.HandleFunc("POST /api/orders/{id}/cancel/{$}", h.CancelOrder)
	mux.HandleFunc("GET /api/waiters/{$}", h.WaiterList)
	mux.HandleFunc("POST /api/staff-login/{$}", h.StaffLogin)
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Invalid JSON payload", err)
		jsonError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	if err := h.validator.Validate(&req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Validation failed", err)
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.logger.Debug(requestID, "order_received", "New order received")

	order, err := h.service.Place(r.Context(), &req, requestID)
	if err != nil {
		h.writeError(w, requestID, "order_processing_failed", err)
		return
	}

	jsonResponse(w, http.StatusCreated, envelope{
		"success": true,
		"message": "Order created successfully.",
		"order":   order,
	})
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	filter := models.OrderFilter{
		ClientID: r.URL.Query().Get("client_id"),
		Username: r.URL.Query().Get("username"),
		Status:   models.Status(r.URL.Query().Get("status")),
	}

	orders, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, requestID, "order_list_failed", err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

func (h *OrderHandler) OrderStats(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	clientID := r.URL.Query().Get("client_id")
	username := r.URL.Query().Get("username")
	if clientID == "" || username == "" {
		jsonError(w, http.StatusBadRequest, "client_id and username are required.")
		return
	}

	stats, err := h.service.Stats(r.Context(), clientID, username)
	if err != nil {
		h.writeError(w, requestID, "order_stats_failed", err)
		return
	}

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"stats":   stats,
	})
}

func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	orderID, err := parseOrderID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Order not found.")
		return
	}

	order, err := h.service.Get(r.Context(), orderID)
	if err != nil {
		h.writeError(w, requestID, "order_lookup_failed", err)
		return
	}

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"order":   order,
	})
}

func (h *OrderHandler) AcceptOrder(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	orderID, err := parseOrderID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Order not found.")
		return
	}

	var req models.AcceptOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Invalid JSON payload", err)
		jsonError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	waiterName := strings.TrimSpace(req.WaiterName)
	if err := h.validator.ValidateWaiterName(waiterName); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.Accept(r.Context(), orderID, waiterName, requestID)
	if err != nil {
		h.writeError(w, requestID, "order_accept_failed", err)
		return
	}

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"message": fmt.Sprintf("Order accepted by %s and sent to kitchen.", waiterName),
		"order":   order,
	})
}

func (h *OrderHandler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	orderID, err := parseOrderID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Order not found.")
		return
	}

	var req models.UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Invalid JSON payload", err)
		jsonError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	status, err := h.validator.ValidateStatus(req.Status)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.Advance(r.Context(), orderID, status, requestID)
	if err != nil {
		h.writeError(w, requestID, "status_update_failed", err)
		return
	}

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"message": "Order status updated successfully.",
		"order":   order,
	})
}

func (h *OrderHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	orderID, err := parseOrderID(r)
	if err != nil {
		jsonError(w, http.StatusNotFound, "Order not found.")
		return
	}

	order, err := h.service.Cancel(r.Context(), orderID, requestID)
	if err != nil {
		h.writeError(w, requestID, "order_cancel_failed", err)
		return
	}

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"message": "Order cancelled successfully.",
		"order":   order,
	})
}

// WaiterList feeds the accept panel's waiter dropdown.
func (h *OrderHandler) WaiterList(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	clientID := r.URL.Query().Get("client_id")
	if clientID == "" {
		jsonError(w, http.StatusBadRequest, "client_id is required.")
		return
	}

	waiters, err := h.tenants.ListWaiters(r.Context(), clientID)
	if err != nil {
		h.writeError(w, requestID, "waiter_list_failed", err)
		return
	}
	if waiters == nil {
		waiters = []models.Waiter{}
	}

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"waiters": waiters,
	})
}

func (h *OrderHandler) StaffLogin(w http.ResponseWriter, r *http.Request) {
	requestID := getRequestID(r)

	var req models.StaffLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error(requestID, "validation_failed", "Invalid JSON payload", err)
		jsonError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	username := strings.TrimSpace(req.Username)
	if username == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, "Username and password are required.")
		return
	}

	identity, err := h.tenants.Authenticate(r.Context(), username, req.Password)
	if err != nil {
		h.writeError(w, requestID, "staff_login_failed", err)
		return
	}

	h.logger.Info(requestID, "staff_login", "Staff member logged in")

	jsonResponse(w, http.StatusOK, envelope{
		"success": true,
		"message": "Login successful",
		"user":    identity,
	})
}

// writeError maps service errors onto the HTTP envelope. Anything not
// recognised is a 500 and gets logged with its cause.
func (h *OrderHandler) writeError(w http.ResponseWriter, requestID, action string, err error) {
	var transition *core.InvalidTransitionError
	switch {
	case errors.As(err, &transition):
		jsonError(w, http.StatusBadRequest, transition.Error())
	case errors.Is(err, core.ErrValidation):
		jsonError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, core.ErrOrderNotFound):
		jsonError(w, http.StatusNotFound, "Order not found.")
	case errors.Is(err, core.ErrTenantInactive):
		jsonError(w, http.StatusForbidden, "Your restaurant account is inactive. Contact your administrator.")
	case errors.Is(err, core.ErrInvalidCredentials):
		jsonError(w, http.StatusUnauthorized, "Invalid credentials. Please check your username and password.")
	default:
		h.logger.Error(requestID, action, "Request failed", err)
		jsonError(w, http.StatusInternalServerError, "Internal server error.")
	}
}

type envelope map[string]any

func jsonResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, envelope{"success": false, "message": message})
}

func getRequestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return "req-" + uuid.NewString()
}

func parseOrderID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}
