package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/safar/go-bookstore/internal/models"
)

// Reader serves the read-only HTTP endpoints outside any checkout
// transaction.
type Reader struct {
	db *sql.DB
}

func NewReader(db *sql.DB) *Reader {
	return &Reader{db: db}
}

func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Reader) GetOrder(ctx context.Context, id int64) (*models.Order, error) {
	return GetOrder(ctx, r.db, id)
}

// CustomerOrders pages the orders of the customer holding phone.
func (r *Reader) CustomerOrders(ctx context.Context, phone, cursor string, limit int) (*CursorPage, error) {
	customer, err := GetCustomerByPhone(ctx, r.db, phone)
	if err != nil {
		return nil, err
	}
	return ListCustomerOrders(ctx, r.db, customer.ID, cursor, limit)
}

func (r *Reader) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	return GetBook(ctx, r.db, id)
}

func (r *Reader) ListBooks(ctx context.Context, page, pageSize int) (*OffsetPage, error) {
	return ListBooks(ctx, r.db, page, pageSize)
}

func (r *Reader) ListCodes(ctx context.Context, category string) ([]models.Code, error) {
	return ListCodesByCategory(ctx, r.db, category)
}

func (r *Reader) ActivePromotions(ctx context.Context, now time.Time) ([]models.Promotion, error) {
	return ListActivePromotions(ctx, r.db, now)
}
