// Package tenant resolves restaurant accounts. A tenant is a restaurant
// identified by client_id; staff accounts hang off it by globally unique
// username.
package tenant

import (
	"context"
	"errors"

	"dinehub/internal/orderservice/core"
	"dinehub/pkg/logger"
	"dinehub/pkg/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type Registry struct {
	dbPool *pgxpool.Pool
	logger *logger.Logger
}

func NewRegistry(dbPool *pgxpool.Pool, log *logger.Logger) *Registry {
	return &Registry{
		dbPool: dbPool,
		logger: log,
	}
}

func (r *Registry) Resolve(ctx context.Context, clientID string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := r.dbPool.QueryRow(ctx, `
        SELECT client_id, firm_name, place, is_active, created_at, updated_at
        FROM company_info
        WHERE client_id = $1
    `, clientID).Scan(
		&tenant.ClientID, &tenant.FirmName, &tenant.Place, &tenant.IsActive,
		&tenant.CreatedAt, &tenant.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrTenantNotFound
		}
		return nil, err
	}

	return &tenant, nil
}

// Authenticate checks a staff credential pair. Usernames are globally
// unique, so no client_id is needed for the lookup. The returned identity
// carries restaurant_username, the account name the restaurant's orders
// are filed under.
func (r *Registry) Authenticate(ctx context.Context, username, password string) (*models.StaffIdentity, error) {
	var (
		account  models.StaffAccount
		firmName string
		place    string
		active   bool
	)
	err := r.dbPool.QueryRow(ctx, `
        SELECT u.id, u.client_id, u.username, u.password_hash, u.full_name,
               c.firm_name, c.place, c.is_active
        FROM app_users u
        JOIN company_info c ON c.client_id = u.client_id
        WHERE u.username = $1 AND u.user_type = 'user' AND u.is_active = TRUE
    `, username).Scan(
		&account.ID, &account.ClientID, &account.Username, &account.PasswordHash,
		&account.FullName, &firmName, &place, &active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrInvalidCredentials
		}
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return nil, core.ErrInvalidCredentials
	}
	if !active {
		return nil, core.ErrTenantInactive
	}

	restaurantUsername, err := r.restaurantUsername(ctx, account.ClientID, account.ID)
	if err != nil {
		return nil, err
	}
	if restaurantUsername == "" {
		restaurantUsername = account.Username
	}

	fullName := account.FullName
	if fullName == "" {
		fullName = account.Username
	}

	return &models.StaffIdentity{
		ID:                 account.ID,
		Username:           account.Username,
		FullName:           fullName,
		RestaurantUsername: restaurantUsername,
		UserType:           "staff",
		Role:               "both",
		ClientID:           account.ClientID,
		FirmName:           firmName,
		Place:              place,
		IsActive:           true,
	}, nil
}

// ListWaiters returns a restaurant's active staff accounts, newest first.
// Admin accounts are not waiters and stay out of the list.
func (r *Registry) ListWaiters(ctx context.Context, clientID string) ([]models.Waiter, error) {
	rows, err := r.dbPool.Query(ctx, `
        SELECT id, username, full_name, user_type
        FROM app_users
        WHERE client_id = $1 AND user_type = 'user' AND is_active = TRUE
        ORDER BY created_at DESC
    `, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var waiters []models.Waiter
	for rows.Next() {
		var w models.Waiter
		if err := rows.Scan(&w.ID, &w.Username, &w.FullName, &w.UserType); err != nil {
			return nil, err
		}
		waiters = append(waiters, w)
	}
	return waiters, rows.Err()
}

// restaurantUsername is the username embedded in the tenant's QR codes:
// the oldest active admin account, else the oldest other active account.
func (r *Registry) restaurantUsername(ctx context.Context, clientID string, selfID int64) (string, error) {
	var username string
	err := r.dbPool.QueryRow(ctx, `
        SELECT username
        FROM app_users
        WHERE client_id = $1 AND is_active = TRUE AND (user_type = 'admin' OR id <> $2)
        ORDER BY (user_type <> 'admin'), created_at
        LIMIT 1
    `, clientID, selfID).Scan(&username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return username, nil
}
