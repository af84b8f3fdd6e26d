package checkout_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/safar/go-bookstore/internal/checkout"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/models"
)

// memState is an in-memory copy of the tables a checkout touches.
type memState struct {
	books         map[int64]models.Book
	customers     map[string]models.Customer
	users         map[int64]bool
	codes         []models.Code
	promotions    map[int64]models.Promotion
	orders        map[int64]models.Order
	details       []models.OrderDetail
	tickets       map[int64]models.ExportTicket
	exportDetails []models.ExportDetail
	events        []events.Event
	nextID        int64
}

func newMemState() *memState {
	return &memState{
		books:      map[int64]models.Book{},
		customers:  map[string]models.Customer{},
		users:      map[int64]bool{},
		promotions: map[int64]models.Promotion{},
		orders:     map[int64]models.Order{},
		tickets:    map[int64]models.ExportTicket{},
		nextID:     1000,
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		books:         make(map[int64]models.Book, len(s.books)),
		customers:     make(map[string]models.Customer, len(s.customers)),
		users:         make(map[int64]bool, len(s.users)),
		codes:         append([]models.Code(nil), s.codes...),
		promotions:    make(map[int64]models.Promotion, len(s.promotions)),
		orders:        make(map[int64]models.Order, len(s.orders)),
		details:       append([]models.OrderDetail(nil), s.details...),
		tickets:       make(map[int64]models.ExportTicket, len(s.tickets)),
		exportDetails: append([]models.ExportDetail(nil), s.exportDetails...),
		events:        append([]events.Event(nil), s.events...),
		nextID:        s.nextID,
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.promotions {
		c.promotions[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	return c
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// memStore commits a transaction by swapping in the working copy and rolls
// back by dropping it.
type memStore struct {
	mu    sync.Mutex
	state *memState
	calls int
	// failOn makes the named Tx method return the error.
	failOn map[string]error
	// txErr, when set, replaces the outcome of InTx after rollback.
	txErr error
}

func newMemStore() *memStore {
	return &memStore{state: newMemState(), failOn: map[string]error{}}
}

func (m *memStore) InTx(ctx context.Context, fn func(checkout.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	work := m.state.clone()
	if err := fn(&memTx{s: work, failOn: m.failOn}); err != nil {
		return err
	}
	if m.txErr != nil {
		return m.txErr
	}
	m.state = work
	return nil
}

type memTx struct {
	s      *memState
	failOn map[string]error
}

func (t *memTx) fail(method string) error {
	return t.failOn[method]
}

func (t *memTx) FindCustomerByPhone(ctx context.Context, phone string) (*models.Customer, error) {
	if err := t.fail("FindCustomerByPhone"); err != nil {
		return nil, err
	}
	for _, c := range t.s.customers {
		if c.Phone == phone {
			c := c
			return &c, nil
		}
	}
	return nil, database.ErrCustomerNotFound
}

func (t *memTx) CreateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := t.fail("CreateCustomer"); err != nil {
		return err
	}
	for _, c := range t.s.customers {
		if c.Phone == customer.Phone {
			return database.ErrConcurrentInsert
		}
	}
	t.s.customers[customer.ID] = *customer
	return nil
}

func (t *memTx) UpdateCustomer(ctx context.Context, customer *models.Customer) error {
	if err := t.fail("UpdateCustomer"); err != nil {
		return err
	}
	if _, ok := t.s.customers[customer.ID]; !ok {
		return database.ErrCustomerNotFound
	}
	t.s.customers[customer.ID] = *customer
	return nil
}

func (t *memTx) UserExists(ctx context.Context, id int64) (bool, error) {
	return t.s.users[id], nil
}

func (t *memTx) AnyUserID(ctx context.Context) (int64, error) {
	ids := make([]int64, 0, len(t.s.users))
	for id := range t.s.users {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return 0, database.ErrUserNotFound
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0], nil
}

func (t *memTx) FindCode(ctx context.Context, category string, id int64) (*models.Code, error) {
	for _, c := range t.s.codes {
		if c.ID == id && c.Category == category {
			c := c
			return &c, nil
		}
	}
	return nil, database.ErrCodeNotFound
}

func (t *memTx) ListCodesByCategory(ctx context.Context, category string) ([]models.Code, error) {
	var out []models.Code
	for _, c := range t.s.codes {
		if c.Category == category {
			out = append(out, c)
		}
	}
	return out, nil
}

func (t *memTx) GetPromotion(ctx context.Context, id int64) (*models.Promotion, error) {
	p, ok := t.s.promotions[id]
	if !ok {
		return nil, database.ErrPromotionNotFound
	}
	return &p, nil
}

func (t *memTx) GetBookForUpdate(ctx context.Context, id int64) (*models.Book, error) {
	if err := t.fail("GetBookForUpdate"); err != nil {
		return nil, err
	}
	b, ok := t.s.books[id]
	if !ok {
		return nil, database.ErrBookNotFound
	}
	return &b, nil
}

func (t *memTx) DecrementStock(ctx context.Context, id int64, quantity int) error {
	b, ok := t.s.books[id]
	if !ok || b.StockQuantity < quantity {
		return database.ErrInsufficientStock
	}
	b.StockQuantity -= quantity
	t.s.books[id] = b
	return nil
}

func (t *memTx) FindOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	for _, o := range t.s.orders {
		if o.IdempotencyKey != nil && *o.IdempotencyKey == key {
			o := o
			return &o, nil
		}
	}
	return nil, database.ErrOrderNotFound
}

func (t *memTx) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := t.fail("CreateOrder"); err != nil {
		return err
	}
	order.ID = t.s.id()
	t.s.orders[order.ID] = *order
	return nil
}

func (t *memTx) CreateOrderDetail(ctx context.Context, detail *models.OrderDetail) error {
	detail.ID = t.s.id()
	t.s.details = append(t.s.details, *detail)
	return nil
}

func (t *memTx) FinalizeOrder(ctx context.Context, order *models.Order) error {
	if _, ok := t.s.orders[order.ID]; !ok {
		return database.ErrOrderNotFound
	}
	stored := *order
	stored.Details = nil
	t.s.orders[order.ID] = stored
	return nil
}

func (t *memTx) CreateExportTicket(ctx context.Context, ticket *models.ExportTicket) error {
	ticket.ID = t.s.id()
	t.s.tickets[ticket.ID] = *ticket
	return nil
}

func (t *memTx) CreateExportDetail(ctx context.Context, detail *models.ExportDetail) error {
	detail.ID = t.s.id()
	t.s.exportDetails = append(t.s.exportDetails, *detail)
	return nil
}

func (t *memTx) FinalizeExportTicket(ctx context.Context, ticket *models.ExportTicket) error {
	if _, ok := t.s.tickets[ticket.ID]; !ok {
		return errors.New("no such ticket")
	}
	stored := *ticket
	stored.Details = nil
	t.s.tickets[ticket.ID] = stored
	return nil
}

func (t *memTx) EnqueueEvent(ctx context.Context, ev events.Event) error {
	t.s.events = append(t.s.events, ev)
	return nil
}

type recordedCheckout struct {
	channel string
	outcome string
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []recordedCheckout
}

func (r *fakeRecorder) ObserveCheckout(channel, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, recordedCheckout{channel: channel, outcome: outcome})
}
