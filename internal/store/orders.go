package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
)

const orderColumns = `id, customer_id, user_id, promotion_id, payment_method_id, channel, status,
	total_amount, discount_amount, final_amount, idempotency_key, created_at, updated_at`

func scanOrder(row rowScanner, order *models.Order) error {
	var (
		promotionID    sql.NullInt64
		idempotencyKey sql.NullString
	)
	err := row.Scan(
		&order.ID,
		&order.CustomerID,
		&order.UserID,
		&promotionID,
		&order.PaymentMethodID,
		&order.Channel,
		&order.Status,
		&order.TotalAmount,
		&order.DiscountAmount,
		&order.FinalAmount,
		&idempotencyKey,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.PromotionID = nil
	if promotionID.Valid {
		id := promotionID.Int64
		order.PromotionID = &id
	}
	order.IdempotencyKey = nil
	if idempotencyKey.Valid {
		key := idempotencyKey.String
		order.IdempotencyKey = &key
	}
	return nil
}

// CreateOrder inserts the order row and fills in its id and timestamps. A
// duplicate idempotency key yields ErrConcurrentInsert.
func CreateOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	var key sql.NullString
	if order.IdempotencyKey != nil {
		key = sql.NullString{String: *order.IdempotencyKey, Valid: true}
	}

	err := tx.QueryRowContext(ctx,
		`INSERT INTO orders (customer_id, user_id, promotion_id, payment_method_id, channel, status,
		                     total_amount, discount_amount, final_amount, idempotency_key, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		 RETURNING id, created_at, updated_at`,
		order.CustomerID, order.UserID, nullableID(order.PromotionID), order.PaymentMethodID,
		order.Channel, order.Status, order.TotalAmount, order.DiscountAmount, order.FinalAmount, key,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "orders_idempotency_key_key") {
			return fmt.Errorf("create order: %w", database.ErrConcurrentInsert)
		}
		return fmt.Errorf("create order: %w", err)
	}

	return nil
}

func CreateOrderDetail(ctx context.Context, tx *sql.Tx, detail *models.OrderDetail) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO order_details (order_id, book_id, quantity, unit_price, subtotal, is_gift)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		detail.OrderID, detail.BookID, detail.Quantity, detail.UnitPrice, detail.Subtotal, detail.IsGift,
	).Scan(&detail.ID)
	if err != nil {
		return fmt.Errorf("create order detail: %w", err)
	}
	return nil
}

// FinalizeOrder writes the computed money fields and applied promotion.
func FinalizeOrder(ctx context.Context, tx *sql.Tx, order *models.Order) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE orders
		 SET total_amount = $1, discount_amount = $2, final_amount = $3, promotion_id = $4, updated_at = NOW()
		 WHERE id = $5`,
		order.TotalAmount, order.DiscountAmount, order.FinalAmount, nullableID(order.PromotionID), order.ID)
	if err != nil {
		return fmt.Errorf("finalize order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrOrderNotFound
	}
	return nil
}

func FindOrderByIdempotencyKey(ctx context.Context, tx *sql.Tx, key string) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`

	if err := scanOrder(tx.QueryRowContext(ctx, query, key), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order by idempotency key: %w", err)
	}
	return order, nil
}

func GetOrder(ctx context.Context, db *sql.DB, id int64) (*models.Order, error) {
	order := &models.Order{}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	if err := scanOrder(db.QueryRowContext(ctx, query, id), order); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, order_id, book_id, quantity, unit_price, subtotal, is_gift
		 FROM order_details
		 WHERE order_id = $1
		 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get order details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var detail models.OrderDetail
		err := rows.Scan(
			&detail.ID,
			&detail.OrderID,
			&detail.BookID,
			&detail.Quantity,
			&detail.UnitPrice,
			&detail.Subtotal,
			&detail.IsGift,
		)
		if err != nil {
			return nil, fmt.Errorf("scan order detail: %w", err)
		}
		order.Details = append(order.Details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return order, nil
}

// ListCustomerOrders pages a customer's orders newest first.
func ListCustomerOrders(ctx context.Context, db *sql.DB, customerID string, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE customer_id = $1
		  AND (created_at, id) < ($2, $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4`

	rows, err := db.QueryContext(ctx, query, customerID, cursorData.CreatedAt, cursorData.ID, limit+1)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		var order models.Order
		if err := scanOrder(rows, &order); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(orders) > limit
	if hasMore {
		orders = orders[:limit]
	}

	var nextCursor string
	if hasMore && len(orders) > 0 {
		last := orders[len(orders)-1]
		nextCursor = EncodeCursor(OrderCursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return &CursorPage{
		Items:      orders,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func CountOrders(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
