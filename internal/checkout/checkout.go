// Package checkout turns a cart into a committed order.
//
// A checkout resolves the customer and seller, moves stock out of the
// inventory ledger, prices the cart including any promotion, records the
// order with its mirrored export ticket and credits loyalty points. All of it
// happens in one transaction: on any failure nothing is persisted.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/events"
	"github.com/safar/go-bookstore/internal/logging"
	"github.com/safar/go-bookstore/internal/loyalty"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/safar/go-bookstore/internal/promotion"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Channel int

const (
	InStore Channel = iota
	Online
)

func (c Channel) String() string {
	if c == Online {
		return "online"
	}
	return "in_store"
}

// Status is the order status a fresh order on this channel starts with.
func (c Channel) Status() string {
	if c == Online {
		return models.OrderStatusPending
	}
	return models.OrderStatusCompleted
}

type Item struct {
	BookID   int64
	Quantity int
}

type Request struct {
	Channel       Channel
	CustomerPhone string
	CustomerName  string
	EmployeeID    *int64
	// ActorUserID is the authenticated user making the request, if any.
	ActorUserID    *int64
	PromotionID    *int64
	PaymentMethod  string
	Items          []Item
	IdempotencyKey string
}

type Receipt struct {
	OrderID        int64           `json:"order_id"`
	CustomerID     string          `json:"customer_id"`
	SellerID       int64           `json:"seller_id"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	PointsEarned   int64           `json:"points_earned"`
	GiftBookID     *int64          `json:"gift_book_id,omitempty"`
	Replayed       bool            `json:"replayed,omitempty"`
}

// Recorder receives one observation per finished checkout.
type Recorder interface {
	ObserveCheckout(channel, outcome string, duration time.Duration)
}

type Options struct {
	AnonymousPhone string
	AnonymousName  string
	RankNames      loyalty.Names
	Recorder       Recorder
	Now            func() time.Time
}

type Service struct {
	store          Store
	opts           Options
	tracer         trace.Tracer
	newCustomerID  func() string
	newDocumentNum func(time.Time) string
}

func NewService(store Store, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		store:          store,
		opts:           opts,
		tracer:         otel.Tracer("github.com/safar/go-bookstore/internal/checkout"),
		newCustomerID:  uuid.NewString,
		newDocumentNum: documentNumber,
	}
}

func documentNumber(now time.Time) string {
	return fmt.Sprintf("PX-%s-%s", now.Format("20060102"), strings.ToUpper(uuid.NewString()[:8]))
}

// Checkout runs the whole checkout. The returned error is always an *Error.
func (s *Service) Checkout(ctx context.Context, req Request) (*Receipt, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "checkout",
		trace.WithAttributes(
			attribute.String("channel", req.Channel.String()),
			attribute.Int("items", len(req.Items)),
		))
	defer span.End()

	receipt, err := s.checkout(ctx, req)
	outcome := "ok"
	if err != nil {
		outcome = err.Kind.String()
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Message)
	} else {
		span.SetAttributes(attribute.Int64("order_id", receipt.OrderID))
	}

	elapsed := time.Since(start)
	if s.opts.Recorder != nil {
		s.opts.Recorder.ObserveCheckout(req.Channel.String(), outcome, elapsed)
	}
	s.logOutcome(req, receipt, err, elapsed)

	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *Service) checkout(ctx context.Context, req Request) (*Receipt, *Error) {
	paymentMethodID, verr := validate(req)
	if verr != nil {
		return nil, verr
	}

	var receipt *Receipt
	err := s.store.InTx(ctx, func(tx Tx) error {
		r, err := s.run(ctx, tx, req, paymentMethodID)
		if err != nil {
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	return receipt, nil
}

func validate(req Request) (int64, *Error) {
	if len(req.Items) == 0 {
		return 0, errorf(KindValidation, "cart is empty")
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return 0, errorf(KindValidation, "quantity for book %d must be positive", item.BookID)
		}
	}

	token := strings.TrimSpace(req.PaymentMethod)
	if token == "" {
		return 0, errorf(KindValidation, "payment method is required")
	}
	id, err := strconv.ParseInt(token, 10, 64)
	if err != nil || id <= 0 {
		return 0, errorf(KindValidation, "payment method %q is not valid", token)
	}
	return id, nil
}

func classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, database.ErrRetriesExhausted) || database.IsRetryable(err) {
		return &Error{Kind: KindConflict, Message: "checkout conflicted with concurrent orders, please retry", Err: err}
	}
	return &Error{Kind: KindInternal, Message: "checkout failed", Err: err}
}

// run is one transactional attempt. Nothing it computes survives a failed
// attempt.
func (s *Service) run(ctx context.Context, tx Tx, req Request, paymentMethodID int64) (*Receipt, error) {
	now := s.opts.Now()

	if req.IdempotencyKey != "" {
		existing, err := tx.FindOrderByIdempotencyKey(ctx, req.IdempotencyKey)
		switch {
		case err == nil:
			return replay(existing), nil
		case !errors.Is(err, database.ErrOrderNotFound):
			return nil, fmt.Errorf("find order by idempotency key: %w", err)
		}
	}

	customer, anonymous, err := s.resolveCustomer(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	sellerID, err := resolveSeller(ctx, tx, req)
	if err != nil {
		return nil, err
	}

	if _, err := tx.FindCode(ctx, models.CodeCategoryPaymentMethod, paymentMethodID); err != nil {
		if errors.Is(err, database.ErrCodeNotFound) {
			return nil, errorf(KindNotFound, "payment method %d not found", paymentMethodID)
		}
		return nil, fmt.Errorf("find payment method: %w", err)
	}

	promo, err := selectedPromotion(ctx, tx, req.PromotionID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		CustomerID:      customer.ID,
		UserID:          sellerID,
		PaymentMethodID: paymentMethodID,
		Channel:         req.Channel.String(),
		Status:          req.Channel.Status(),
		TotalAmount:     decimal.Zero,
		DiscountAmount:  decimal.Zero,
		FinalAmount:     decimal.Zero,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		order.IdempotencyKey = &key
	}
	if err := tx.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	ticket := &models.ExportTicket{
		UserID:         sellerID,
		OrderID:        &order.ID,
		DocumentNumber: s.newDocumentNum(now),
		Status:         models.ExportStatusCompleted,
		Reason:         models.ExportReasonSale,
	}
	if err := tx.CreateExportTicket(ctx, ticket); err != nil {
		return nil, err
	}

	subtotal := decimal.Zero
	var lines []loyalty.Line

	for _, item := range req.Items {
		book, err := tx.GetBookForUpdate(ctx, item.BookID)
		if err != nil {
			if errors.Is(err, database.ErrBookNotFound) {
				return nil, errorf(KindNotFound, "book %d not found", item.BookID)
			}
			return nil, err
		}
		if book.IsDeleted {
			return nil, errorf(KindNotFound, "book %d not found", item.BookID)
		}
		if item.Quantity > book.StockQuantity {
			return nil, errorf(KindInsufficientStock, "not enough stock for %q (book %d): requested %d, available %d",
				book.Title, book.ID, item.Quantity, book.StockQuantity)
		}

		if err := addLine(ctx, tx, order, ticket, book.ID, item.Quantity, book.Price, false); err != nil {
			return nil, err
		}
		subtotal = subtotal.Add(book.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		lines = append(lines, loyalty.Line{UnitPrice: book.Price, Quantity: item.Quantity})
	}

	outcome, err := s.applyPromotion(ctx, tx, order, ticket, subtotal, promo, now)
	if err != nil {
		return nil, err
	}

	discount := promotion.Cap(outcome.Discount, subtotal)
	order.TotalAmount = subtotal
	order.DiscountAmount = discount
	order.FinalAmount = subtotal.Sub(discount)
	if outcome.Applied {
		order.PromotionID = &promo.ID
	}
	if outcome.Gift != nil {
		lines = append(lines, loyalty.Line{UnitPrice: decimal.Zero, Quantity: outcome.Gift.Quantity})
	}

	if err := tx.FinalizeOrder(ctx, order); err != nil {
		return nil, err
	}
	if err := tx.FinalizeExportTicket(ctx, ticket); err != nil {
		return nil, err
	}

	var earned int64
	if !anonymous {
		earned, err = s.applyLoyalty(ctx, tx, customer, lines)
		if err != nil {
			return nil, err
		}
	}

	ev, err := events.NewOrderPlaced(events.OrderPlaced{
		OrderID:        order.ID,
		CustomerID:     customer.ID,
		Channel:        order.Channel,
		Status:         order.Status,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		FinalAmount:    order.FinalAmount,
		PointsEarned:   earned,
	})
	if err != nil {
		return nil, fmt.Errorf("build order event: %w", err)
	}
	if err := tx.EnqueueEvent(ctx, ev); err != nil {
		return nil, err
	}

	receipt := &Receipt{
		OrderID:        order.ID,
		CustomerID:     customer.ID,
		SellerID:       sellerID,
		Status:         order.Status,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		FinalAmount:    order.FinalAmount,
		PointsEarned:   earned,
	}
	if outcome.Gift != nil {
		id := outcome.Gift.BookID
		receipt.GiftBookID = &id
	}
	return receipt, nil
}

func replay(order *models.Order) *Receipt {
	return &Receipt{
		OrderID:        order.ID,
		CustomerID:     order.CustomerID,
		SellerID:       order.UserID,
		Status:         order.Status,
		TotalAmount:    order.TotalAmount,
		DiscountAmount: order.DiscountAmount,
		FinalAmount:    order.FinalAmount,
		Replayed:       true,
	}
}

// resolveCustomer finds the customer by phone or creates one. A blank phone
// means the walk-in customer.
func (s *Service) resolveCustomer(ctx context.Context, tx Tx, req Request) (*models.Customer, bool, error) {
	phone := strings.TrimSpace(req.CustomerPhone)
	if phone == "" {
		phone = s.opts.AnonymousPhone
	}
	anonymous := phone == s.opts.AnonymousPhone
	name := strings.TrimSpace(req.CustomerName)

	customer, err := tx.FindCustomerByPhone(ctx, phone)
	if err != nil && !errors.Is(err, database.ErrCustomerNotFound) {
		return nil, false, fmt.Errorf("find customer: %w", err)
	}

	if customer == nil {
		customer = &models.Customer{ID: s.newCustomerID(), Phone: phone}
		switch {
		case anonymous:
			customer.Name = s.opts.AnonymousName
		case name != "":
			customer.Name = name
		default:
			customer.Name = phone
		}
		if err := tx.CreateCustomer(ctx, customer); err != nil {
			return nil, false, err
		}
		return customer, anonymous, nil
	}

	if !anonymous && name != "" && name != customer.Name {
		customer.Name = name
		if err := tx.UpdateCustomer(ctx, customer); err != nil {
			return nil, false, err
		}
	}
	return customer, anonymous, nil
}

// resolveSeller picks the user recorded as the seller: the requested employee,
// then (in store) the signed-in user, then any user at all.
func resolveSeller(ctx context.Context, tx Tx, req Request) (int64, error) {
	candidates := []*int64{req.EmployeeID}
	if req.Channel == InStore {
		candidates = append(candidates, req.ActorUserID)
	}

	for _, id := range candidates {
		if id == nil {
			continue
		}
		ok, err := tx.UserExists(ctx, *id)
		if err != nil {
			return 0, fmt.Errorf("check seller %d: %w", *id, err)
		}
		if ok {
			return *id, nil
		}
	}

	id, err := tx.AnyUserID(ctx)
	if err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return 0, errorf(KindInternal, "no user available to record the sale")
		}
		return 0, fmt.Errorf("find fallback seller: %w", err)
	}
	return id, nil
}

// selectedPromotion loads the chosen promotion. An unknown id is ignored like
// any other promotion that does not apply.
func selectedPromotion(ctx context.Context, tx Tx, id *int64) (*models.Promotion, error) {
	if id == nil {
		return nil, nil
	}
	promo, err := tx.GetPromotion(ctx, *id)
	if err != nil {
		if errors.Is(err, database.ErrPromotionNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get promotion %d: %w", *id, err)
	}
	return promo, nil
}

func (s *Service) applyPromotion(ctx context.Context, tx Tx, order *models.Order, ticket *models.ExportTicket,
	subtotal decimal.Decimal, promo *models.Promotion, now time.Time) (promotion.Outcome, error) {
	var giftBook *models.Book
	if promo != nil && promo.Kind == models.GiftItem && promo.GiftBookID != nil && promotion.Eligible(subtotal, promo, now) {
		book, err := tx.GetBookForUpdate(ctx, *promo.GiftBookID)
		switch {
		case err == nil:
			giftBook = book
		case !errors.Is(err, database.ErrBookNotFound):
			return promotion.Outcome{}, err
		}
	}

	outcome, err := promotion.Evaluate(subtotal, promo, giftBook, now)
	if err != nil {
		return promotion.Outcome{}, err
	}

	if outcome.Gift != nil {
		if err := addLine(ctx, tx, order, ticket, outcome.Gift.BookID, outcome.Gift.Quantity, decimal.Zero, true); err != nil {
			return promotion.Outcome{}, err
		}
	}
	if outcome.Note != "" {
		logging.Log(logging.Fields{Component: "checkout", OrderID: order.ID, Step: "promotion", Message: outcome.Note})
	}
	return outcome, nil
}

// addLine takes quantity of a book out of stock and records it on both the
// order and the export ticket.
func addLine(ctx context.Context, tx Tx, order *models.Order, ticket *models.ExportTicket,
	bookID int64, quantity int, unitPrice decimal.Decimal, gift bool) error {
	if err := tx.DecrementStock(ctx, bookID, quantity); err != nil {
		if errors.Is(err, database.ErrInsufficientStock) {
			return errorf(KindInsufficientStock, "not enough stock for book %d", bookID)
		}
		return err
	}

	detail := &models.OrderDetail{
		OrderID:   order.ID,
		BookID:    bookID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
		IsGift:    gift,
	}
	if err := tx.CreateOrderDetail(ctx, detail); err != nil {
		return err
	}
	order.Details = append(order.Details, *detail)

	export := &models.ExportDetail{
		ExportTicketID: ticket.ID,
		BookID:         bookID,
		Quantity:       quantity,
	}
	if err := tx.CreateExportDetail(ctx, export); err != nil {
		return err
	}
	ticket.Details = append(ticket.Details, *export)
	ticket.TotalQuantity += quantity
	return nil
}

func (s *Service) applyLoyalty(ctx context.Context, tx Tx, customer *models.Customer, lines []loyalty.Line) (int64, error) {
	codes, err := tx.ListCodesByCategory(ctx, models.CodeCategoryCustomerRank)
	if err != nil {
		return 0, fmt.Errorf("list rank codes: %w", err)
	}

	tiers, err := loyalty.ResolveTiers(codes, s.opts.RankNames)
	if err != nil {
		logging.Log(logging.Fields{Component: "checkout", Customer: customer.ID, Step: "loyalty", Message: err.Error()})
	}

	earned := loyalty.Apply(customer, lines, tiers)
	if err := tx.UpdateCustomer(ctx, customer); err != nil {
		return 0, err
	}
	return earned, nil
}

func (s *Service) logOutcome(req Request, receipt *Receipt, err *Error, elapsed time.Duration) {
	fields := logging.Fields{
		Component:  "checkout",
		Channel:    req.Channel.String(),
		DurationMS: elapsed.Milliseconds(),
	}
	if err != nil {
		fields.Status = err.Kind.String()
		fields.Message = err.Message
		if err.Err != nil {
			fields.Error = err.Err.Error()
		}
	} else {
		fields.Status = "ok"
		fields.OrderID = receipt.OrderID
		fields.Customer = receipt.CustomerID
		if receipt.Replayed {
			fields.Message = "idempotent replay"
		}
	}
	logging.Log(fields)
}
