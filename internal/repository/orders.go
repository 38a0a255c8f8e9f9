package repository

import (
	"context"
	"database/sql"
	"time"

	"tixgate/internal/database"
	"tixgate/internal/models"
)

type OrderRepository struct {
	db *database.DB
}

func NewOrderRepository(db *database.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

const orderColumns = `id, user_id, event_id, showtime_id, booking_type, amount, total_price, status, gift_recipient, gift_message, payment_id, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*models.Order, error) {
	o := &models.Order{}
	err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.EventID,
		&o.ShowtimeID,
		&o.BookingType,
		&o.Amount,
		&o.TotalPrice,
		&o.Status,
		&o.GiftRecipient,
		&o.GiftMessage,
		&o.PaymentID,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *OrderRepository) CreateTx(ctx context.Context, tx *sql.Tx, o *models.Order) error {
	query := `
		INSERT INTO orders (user_id, event_id, showtime_id, booking_type, amount, total_price, status, gift_recipient, gift_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`

	return tx.QueryRowContext(ctx, query,
		o.UserID, o.EventID, o.ShowtimeID, o.BookingType, o.Amount,
		o.TotalPrice, o.Status, o.GiftRecipient, o.GiftMessage,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(r.db.QueryRowContext(ctx, query, id))
}

// GetForUpdateTx locks the order row so concurrent issuance and
// cancellation serialize on it.
func (r *OrderRepository) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	return scanOrder(tx.QueryRowContext(ctx, query, id))
}

func (r *OrderRepository) SetStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, status, id)
	return err
}

func (r *OrderRepository) SetPaidTx(ctx context.Context, tx *sql.Tx, id, paymentID string) error {
	query := `UPDATE orders SET status = 'paid', payment_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := tx.ExecContext(ctx, query, paymentID, id)
	return err
}

// StalePendingOrders returns orders that outlived the payment window, for
// the sweeper's cancellation pass.
func (r *OrderRepository) StalePendingOrders(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = 'pending' AND created_at < $1
		ORDER BY created_at ASC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}

func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]models.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}

	return orders, rows.Err()
}
