package checkout

import (
	"context"

	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/models"
)

// Store opens the transactional scope a checkout runs in. InTx may call fn
// more than once when the attempt loses a race with a concurrent checkout;
// fn must not keep state across calls.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of reads and writes a checkout performs. Every method takes
// part in the same transaction. Lookups return the database package's
// not-found sentinels when the row is absent.
type Tx interface {
	FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error)
	CreateCustomer(ctx context.Context, customer *models.Customer) error
	UpdateCustomer(ctx context.Context, customer *models.Customer) error

	UserExists(ctx context.Context, id int64) (bool, error)
	AnyUserID(ctx context.Context) (int64, error)

	FindCode(ctx context.Context, category string, id int64) (*models.Code, error)
	ListCodesByCategory(ctx context.Context, category string) ([]models.Code, error)

	GetPromotion(ctx context.Context, id int64) (*models.Promotion, error)

	GetBookForUpdate(ctx context.Context, id int64) (*models.Book, error)
	DecrementStock(ctx context.Context, id int64, quantity int) error

	FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateOrderDetail(ctx context.Context, detail *models.OrderDetail) error
	FinalizeOrder(ctx context.Context, order *models.Order) error

	CreateExportTicket(ctx context.Context, ticket *models.ExportTicket) error
	CreateExportDetail(ctx context.Context, detail *models.ExportDetail) error
	FinalizeExportTicket(ctx context.Context, ticket *models.ExportTicket) error

	EnqueueEvent(ctx context.Context, ev events.Event) error
}
