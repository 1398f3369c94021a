package validation

import (
	"unicode/utf8"

	"dinehub/internal/orderservice/core"
	"dinehub/pkg/models"
)

type OrderValidator struct{}

func NewOrderValidator() *OrderValidator {
	return &OrderValidator{}
}

func (v *OrderValidator) Validate(req *models.CreateOrderRequest) error {
	if err := v.validateIdentity(req); err != nil {
		return err
	}
	if err := v.validateCustomer(req); err != nil {
		return err
	}
	if err := v.validateAmounts(req); err != nil {
		return err
	}
	return v.validateItems(req.Items)
}

func (v *OrderValidator) validateIdentity(req *models.CreateOrderRequest) error {
	if req.SessionID == "" {
		return core.Invalidf("session_id is required.")
	}
	if utf8.RuneCountInString(req.SessionID) > 100 {
		return core.Invalidf("session_id must be at most 100 characters.")
	}
	if req.ClientID == "" {
		return core.Invalidf("client_id is required.")
	}
	if utf8.RuneCountInString(req.ClientID) > 100 {
		return core.Invalidf("client_id must be at most 100 characters.")
	}
	if req.Username == "" {
		return core.Invalidf("username is required.")
	}
	if utf8.RuneCountInString(req.Username) > 100 {
		return core.Invalidf("username must be at most 100 characters.")
	}
	return nil
}

func (v *OrderValidator) validateCustomer(req *models.CreateOrderRequest) error {
	if req.CustomerName == "" {
		return core.Invalidf("customer_name is required.")
	}
	if utf8.RuneCountInString(req.CustomerName) > 200 {
		return core.Invalidf("customer_name must be at most 200 characters.")
	}
	if req.CustomerPhone != nil && utf8.RuneCountInString(*req.CustomerPhone) > 20 {
		return core.Invalidf("customer_phone must be at most 20 characters.")
	}
	if req.TableNumber == "" {
		return core.Invalidf("table_number is required.")
	}
	if utf8.RuneCountInString(req.TableNumber) > 20 {
		return core.Invalidf("table_number must be at most 20 characters.")
	}
	if req.MemberCount != nil && *req.MemberCount < 1 {
		return core.Invalidf("member_count must be at least 1.")
	}
	if req.OrderTime.IsZero() {
		return core.Invalidf("order_time is required.")
	}
	return nil
}

func (v *OrderValidator) validateAmounts(req *models.CreateOrderRequest) error {
	if req.Subtotal < 0 {
		return core.Invalidf("subtotal cannot be negative.")
	}
	if req.TaxAmount < 0 {
		return core.Invalidf("tax_amount cannot be negative.")
	}
	if req.TotalAmount < 0 {
		return core.Invalidf("total_amount cannot be negative.")
	}
	return nil
}

func (v *OrderValidator) validateItems(items []models.OrderItemRequest) error {
	if len(items) < 1 {
		return core.Invalidf("items must contain at least one item.")
	}

	for _, item := range items {
		if item.Name == "" {
			return core.Invalidf("item name is required.")
		}
		if utf8.RuneCountInString(item.Name) > 200 {
			return core.Invalidf("item name must be at most 200 characters.")
		}
		if utf8.RuneCountInString(item.Portion) > 20 {
			return core.Invalidf("item portion must be at most 20 characters.")
		}
		if item.Quantity < 1 {
			return core.Invalidf("item quantity must be at least 1.")
		}
		if item.Price < 0 {
			return core.Invalidf("item price cannot be negative.")
		}
		if item.Tax < 0 {
			return core.Invalidf("item tax cannot be negative.")
		}
	}

	return nil
}

// ValidateWaiterName guards the acceptance request. The caller trims.
func (v *OrderValidator) ValidateWaiterName(name string) error {
	if name == "" {
		return core.Invalidf("waiter_name is required.")
	}
	if utf8.RuneCountInString(name) > 200 {
		return core.Invalidf("waiter_name must be at most 200 characters.")
	}
	return nil
}

// ValidateStatus parses the advance-status value.
func (v *OrderValidator) ValidateStatus(raw string) (models.Status, error) {
	if raw == "" {
		return "", core.Invalidf("status is required.")
	}
	status := models.Status(raw)
	if !status.Valid() {
		return "", core.Invalidf("status must be one of: pending, preparing, ready, completed, cancelled.")
	}
	return status, nil
}
