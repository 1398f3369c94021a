package db

import (
	"context"
	"errors"
	"fmt"

	"dinehub/internal/orderservice/core"
	"dinehub/pkg/logger"
	"dinehub/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, session_id, client_id, username, customer_name, customer_phone,
               table_number, waiter_name, member_count, subtotal, tax_amount, total_amount,
               status, order_time, special_instructions, created_at, updated_at`

type OrderDB struct {
	dbPool *pgxpool.Pool
	logger *logger.Logger
}

func NewOrderDB(dbPool *pgxpool.Pool, logger *logger.Logger) *OrderDB {
	return &OrderDB{
		dbPool: dbPool,
		logger: logger,
	}
}

// CreateOrder writes the order row and all item rows in one transaction.
// The returned order carries its items with database-assigned ids.
func (d *OrderDB) CreateOrder(ctx context.Context, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := validateCreate(req); err != nil {
		return nil, err
	}

	memberCount := 1
	if req.MemberCount != nil {
		memberCount = *req.MemberCount
	}

	tx, err := d.dbPool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, `
        INSERT INTO orders (session_id, client_id, username, customer_name, customer_phone,
                            table_number, member_count, subtotal, tax_amount, total_amount,
                            status, order_time, special_instructions)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', $11, $12)
        RETURNING `+orderColumns+`
    `, req.SessionID, req.ClientID, req.Username, req.CustomerName, req.CustomerPhone,
		req.TableNumber, memberCount, req.Subtotal, req.TaxAmount, req.TotalAmount,
		req.OrderTime, req.SpecialInstructions))
	if err != nil {
		return nil, err
	}

	batch := &pgx.Batch{}
	for _, item := range req.Items {
		batch.Queue(`
            INSERT INTO order_items (order_id, menu_item_id, name, portion, quantity, price, tax)
            VALUES ($1, $2, $3, $4, $5, $6, $7)
            RETURNING id, created_at
        `, order.ID, item.MenuItemID, item.Name, item.Portion, item.Quantity, item.Price, item.Tax)
	}

	br := tx.SendBatch(ctx, batch)
	for _, item := range req.Items {
		row := models.OrderItem{
			OrderID:    order.ID,
			MenuItemID: item.MenuItemID,
			Name:       item.Name,
			Portion:    item.Portion,
			Quantity:   item.Quantity,
			Price:      item.Price,
			Tax:        item.Tax,
		}
		if err := br.QueryRow().Scan(&row.ID, &row.CreatedAt); err != nil {
			br.Close()
			return nil, err
		}
		order.Items = append(order.Items, row)
	}
	if err := br.Close(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return order, nil
}

func validateCreate(req *models.CreateOrderRequest) error {
	if req.SessionID == "" || req.ClientID == "" || req.Username == "" ||
		req.CustomerName == "" || req.TableNumber == "" {
		return core.Invalidf("missing required order fields")
	}
	if req.Subtotal < 0 || req.TaxAmount < 0 || req.TotalAmount < 0 {
		return core.Invalidf("amounts cannot be negative")
	}
	if req.MemberCount != nil && *req.MemberCount < 1 {
		return core.Invalidf("member_count must be at least 1")
	}
	if len(req.Items) == 0 {
		return core.Invalidf("order must contain at least one item")
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return core.Invalidf("item quantity must be at least 1")
		}
		if item.Price < 0 || item.Tax < 0 {
			return core.Invalidf("item price and tax cannot be negative")
		}
	}
	return nil
}

func (d *OrderDB) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	order, err := scanOrder(d.dbPool.QueryRow(ctx, `
        SELECT `+orderColumns+`
        FROM orders
        WHERE id = $1
    `, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrOrderNotFound
		}
		return nil, err
	}

	return d.withItems(ctx, order)
}

// ListOrders scopes every query by client_id. Username narrows within the
// tenant and is never used as the sole filter.
func (d *OrderDB) ListOrders(ctx context.Context, filter models.OrderFilter) ([]models.Order, error) {
	if filter.ClientID == "" {
		return nil, core.Invalidf("client_id is required.")
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE client_id = $1`
	args := []any{filter.ClientID}
	if filter.Username != "" {
		args = append(args, filter.Username)
		query += fmt.Sprintf(" AND username = $%d", len(args))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := d.dbPool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	var ids []int64
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return orders, nil
	}

	itemsByOrder, err := d.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = itemsByOrder[orders[i].ID]
	}

	return orders, nil
}

func (d *OrderDB) UpdateStatus(ctx context.Context, id int64, status models.Status) (*models.Order, error) {
	order, err := scanOrder(d.dbPool.QueryRow(ctx, `
        UPDATE orders
        SET status = $2, updated_at = now()
        WHERE id = $1
        RETURNING `+orderColumns+`
    `, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrOrderNotFound
		}
		return nil, err
	}

	return d.withItems(ctx, order)
}

// SetWaiter is the acceptance write: one statement assigns the waiter and
// moves the order to preparing.
func (d *OrderDB) SetWaiter(ctx context.Context, id int64, waiterName string) (*models.Order, error) {
	order, err := scanOrder(d.dbPool.QueryRow(ctx, `
        UPDATE orders
        SET waiter_name = $2, status = 'preparing', updated_at = now()
        WHERE id = $1
        RETURNING `+orderColumns+`
    `, id, waiterName))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrOrderNotFound
		}
		return nil, err
	}

	return d.withItems(ctx, order)
}

func (d *OrderDB) Stats(ctx context.Context, clientID, username string) (*models.OrderStats, error) {
	var stats models.OrderStats
	err := d.dbPool.QueryRow(ctx, `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE status = 'pending'),
               COUNT(*) FILTER (WHERE status = 'preparing'),
               COUNT(*) FILTER (WHERE status = 'ready'),
               COUNT(*) FILTER (WHERE status = 'completed'),
               COUNT(*) FILTER (WHERE status = 'cancelled'),
               COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0)
        FROM orders
        WHERE client_id = $1 AND username = $2
    `, clientID, username).Scan(
		&stats.TotalOrders, &stats.PendingOrders, &stats.PreparingOrders,
		&stats.ReadyOrders, &stats.CompletedOrders, &stats.CancelledOrders,
		&stats.TotalRevenue,
	)
	if err != nil {
		return nil, err
	}

	return &stats, nil
}

func (d *OrderDB) withItems(ctx context.Context, order *models.Order) (*models.Order, error) {
	itemsByOrder, err := d.loadItems(ctx, []int64{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = itemsByOrder[order.ID]
	return order, nil
}

func (d *OrderDB) loadItems(ctx context.Context, orderIDs []int64) (map[int64][]models.OrderItem, error) {
	rows, err := d.dbPool.Query(ctx, `
        SELECT id, order_id, menu_item_id, name, portion, quantity, price, tax, created_at
        FROM order_items
        WHERE order_id = ANY($1)
        ORDER BY id ASC
    `, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	itemsByOrder := make(map[int64][]models.OrderItem)
	for rows.Next() {
		var item models.OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.MenuItemID, &item.Name, &item.Portion,
			&item.Quantity, &item.Price, &item.Tax, &item.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		itemsByOrder[item.OrderID] = append(itemsByOrder[item.OrderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return itemsByOrder, nil
}

func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	err := row.Scan(
		&order.ID, &order.SessionID, &order.ClientID, &order.Username,
		&order.CustomerName, &order.CustomerPhone, &order.TableNumber, &order.WaiterName,
		&order.MemberCount, &order.Subtotal, &order.TaxAmount, &order.TotalAmount,
		&order.Status, &order.OrderTime, &order.SpecialInstructions,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}
