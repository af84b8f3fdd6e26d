package store

import (
	"context"
	"database/sql"

	"github.com/safar/go-bookstore/internal/checkout"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/models"
)

type CheckoutStoreOptions struct {
	MaxRetries int
	// LockNoWait fails a contended book lock immediately and lets the retry
	// loop back off, instead of queueing on the row.
	LockNoWait bool
	EventTopic string
	// OnRetry is passed through to the transaction retry loop.
	OnRetry func(attempt int, err error)
}

// CheckoutStore runs checkouts in serializable Postgres transactions with
// bounded retry.
type CheckoutStore struct {
	db   *sql.DB
	opts CheckoutStoreOptions
}

func NewCheckoutStore(db *sql.DB, opts CheckoutStoreOptions) *CheckoutStore {
	return &CheckoutStore{db: db, opts: opts}
}

func (s *CheckoutStore) InTx(ctx context.Context, fn func(checkout.Tx) error) error {
	return database.WithRetry(ctx, s.db, database.TxOptions{
		IsolationLevel: sql.LevelSerializable,
		MaxRetries:     s.opts.MaxRetries,
		OnRetry:        s.opts.OnRetry,
	}, func(tx *sql.Tx) error {
		return fn(&checkoutTx{tx: tx, opts: s.opts})
	})
}

type checkoutTx struct {
	tx   *sql.Tx
	opts CheckoutStoreOptions
}

var _ checkout.Tx = (*checkoutTx)(nil)

func (t *checkoutTx) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	return FindCustomerByPhone(ctx, t.tx, phone)
}

func (t *checkoutTx) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	return CreateCustomer(ctx, t.tx, customer)
}

func (t *checkoutTx) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	return UpdateCustomer(ctx, t.tx, customer)
}

func (t *checkoutTx) UserExists(ctx context.Context, id int64) (bool, error) {
	return UserExists(ctx, t.tx, id)
}

func (t *checkoutTx) AnyUserID(ctx context.Context) (int64, error) {
	return AnyUserID(ctx, t.tx)
}

func (t *checkoutTx) FindCode(ctx context.Context, category string, id int64) (*models.Code, error) {
	return FindCode(ctx, t.tx, category, id)
}

func (t *checkoutTx) ListCodesByCategory(ctx context.Context, category string) ([]models.Code, error) {
	return ListCodesByCategory(ctx, t.tx, category)
}

func (t *checkoutTx) GetPromotion(ctx context.Context, id int64) (*models.Promotion, error) {
	return GetPromotion(ctx, t.tx, id)
}

func (t *checkoutTx) GetBookForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	if t.opts.LockNoWait {
		return GetBookForUpdateNoWait(ctx, t.tx, id)
	}
	return GetBookForUpdate(ctx, t.tx, id)
}

func (t *checkoutTx) DecrementStock(ctx context.Context, id int64, quantity int) error {
	return DecrementStock(ctx, t.tx, id, quantity)
}

func (t *checkoutTx) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	return FindOrderByIdempotencyKey(ctx, t.tx, key)
}

func (t *checkoutTx) CreateOrder(ctx context.Context, order *models.Order) error {
	return CreateOrder(ctx, t.tx, order)
}

func (t *checkoutTx) CreateOrderDetail(ctx context.Context, detail *models.OrderDetail) error {
	return CreateOrderDetail(ctx, t.tx, detail)
}

func (t *checkoutTx) FinalizeOrder(ctx context.Context, order *models.Order) error {
	return FinalizeOrder(ctx, t.tx, order)
}

func (t *checkoutTx) CreateExportTicket(ctx context.Context, ticket *models.ExportTicket) error {
	return CreateExportTicket(ctx, t.tx, ticket)
}

func (t *checkoutTx) CreateExportDetail(ctx context.Context, detail *models.ExportDetail) error {
	return CreateExportDetail(ctx, t.tx, detail)
}

func (t *checkoutTx) FinalizeExportTicket(ctx context.Context, ticket *models.ExportTicket) error {
	return FinalizeExportTicket(ctx, t.tx, ticket)
}

func (t *checkoutTx) EnqueueEvent(ctx context.Context, ev events.Event) error {
	return events.Insert(ctx, t.tx, t.opts.EventTopic, ev)
}
