package models

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusReady, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) String() string {
	return string(s)
}

type Tenant struct {
	ClientID  string    `json:"client_id"`
	FirmName  string    `json:"firm_name"`
	Place     string    `json:"place"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type StaffAccount struct {
	ID           int64     `json:"id"`
	ClientID     string    `json:"client_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"full_name"`
	UserType     string    `json:"user_type"`
	Role         *string   `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StaffIdentity is what a successful credential check hands back to the
// panels: the display name shown as the waiter, and the account name the
// restaurant's orders are filed under.
type StaffIdentity struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username"`
	FullName           string `json:"full_name"`
	RestaurantUsername string `json:"restaurant_username"`
	UserType           string `json:"user_type"`
	Role               string `json:"role"`
	ClientID           string `json:"client_id"`
	FirmName           string `json:"firm_name"`
	Place              string `json:"place"`
	IsActive           bool   `json:"is_active"`
}

// Waiter is the trimmed staff row the accept panel fills its waiter
// dropdown from.
type Waiter struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	FullName string `json:"full_name"`
	UserType string `json:"user_type"`
}

type Order struct {
	ID                  int64       `json:"id"`
	SessionID           string      `json:"session_id"`
	ClientID            string      `json:"client_id"`
	Username            string      `json:"username"`
	CustomerName        string      `json:"customer_name"`
	CustomerPhone       *string     `json:"customer_phone"`
	TableNumber         string      `json:"table_number"`
	WaiterName          *string     `json:"waiter_name"`
	MemberCount         int         `json:"member_count"`
	Subtotal            float64     `json:"subtotal"`
	TaxAmount           float64     `json:"tax_amount"`
	TotalAmount         float64     `json:"total_amount"`
	Status              Status      `json:"status"`
	OrderTime           time.Time   `json:"order_time"`
	SpecialInstructions *string     `json:"special_instructions"`
	Items               []OrderItem `json:"order_items"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// ItemCount is the number of plates ordered, not the number of lines.
func (o Order) ItemCount() int {
	n := 0
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		ItemCount int `json:"item_count"`
	}{alias(o), o.ItemCount()})
}

type OrderItem struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"-"`
	MenuItemID int       `json:"menu_item_id"`
	Name       string    `json:"name"`
	Portion    string    `json:"portion"`
	Quantity   int       `json:"quantity"`
	Price      float64   `json:"price"`
	Tax        float64   `json:"tax"`
	CreatedAt  time.Time `json:"created_at"`
}

// Derived amounts are recomputed on every read, never stored.

func (i OrderItem) ItemTotal() float64 {
	return i.Price * float64(i.Quantity)
}

func (i OrderItem) TaxValue() float64 {
	return i.ItemTotal() * i.Tax / 100
}

func (i OrderItem) ItemTotalWithTax() float64 {
	return i.ItemTotal() + i.TaxValue()
}

func (i OrderItem) MarshalJSON() ([]byte, error) {
	type alias OrderItem
	return json.Marshal(struct {
		alias
		ItemTotal        float64 `json:"item_total"`
		TaxAmount        float64 `json:"tax_amount"`
		ItemTotalWithTax float64 `json:"item_total_with_tax"`
	}{alias(i), i.ItemTotal(), i.TaxValue(), i.ItemTotalWithTax()})
}

type CreateOrderRequest struct {
	SessionID           string             `json:"session_id"`
	ClientID            string             `json:"client_id"`
	Username            string             `json:"username"`
	CustomerName        string             `json:"customer_name"`
	CustomerPhone       *string            `json:"customer_phone,omitempty"`
	TableNumber         string             `json:"table_number"`
	MemberCount         *int               `json:"member_count,omitempty"`
	Subtotal            float64            `json:"subtotal"`
	TaxAmount           float64            `json:"tax_amount"`
	TotalAmount         float64            `json:"total_amount"`
	OrderTime           time.Time          `json:"order_time"`
	SpecialInstructions *string            `json:"special_instructions,omitempty"`
	Items               []OrderItemRequest `json:"items"`
}

type OrderItemRequest struct {
	MenuItemID int     `json:"menu_item_id"`
	Name       string  `json:"name"`
	Portion    string  `json:"portion"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	Tax        float64 `json:"tax"`
}

type AcceptOrderRequest struct {
	WaiterName string `json:"waiter_name"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type StaffLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// OrderFilter scopes list queries. ClientID is mandatory; Username and
// Status narrow the result when set.
type OrderFilter struct {
	ClientID string
	Username string
	Status   Status
}

type OrderStats struct {
	TotalOrders     int     `json:"total_orders"`
	PendingOrders   int     `json:"pending_orders"`
	PreparingOrders int     `json:"preparing_orders"`
	ReadyOrders     int     `json:"ready_orders"`
	CompletedOrders int     `json:"completed_orders"`
	CancelledOrders int     `json:"cancelled_orders"`
	TotalRevenue    float64 `json:"total_revenue"`
}

// OrderSnapshot is the push payload sent to panel viewers. Money travels
// as fixed two-decimal strings and timestamps as RFC 3339.
type OrderSnapshot struct {
	ID            int64          `json:"id"`
	ClientID      string         `json:"client_id"`
	Username      string         `json:"username"`
	CustomerName  string         `json:"customer_name"`
	CustomerPhone string         `json:"customer_phone"`
	MemberCount   int            `json:"member_count"`
	TableNumber   string         `json:"table_number"`
	WaiterName    string         `json:"waiter_name"`
	TotalAmount   string         `json:"total_amount"`
	Status        Status         `json:"status"`
	OrderTime     string         `json:"order_time"`
	CreatedAt     string         `json:"created_at"`
	Items         []SnapshotItem `json:"items"`
}

func (s OrderSnapshot) ItemCount() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

type SnapshotItem struct {
	Name     string `json:"name"`
	Portion  string `json:"portion"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}
