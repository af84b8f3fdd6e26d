package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

type Book struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	StockQuantity int             `json:"stock_quantity"`
	IsDeleted     bool            `json:"-"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	Version       int             `json:"version"`
}

type Customer struct {
	ID        string    `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Points    int64     `json:"points"`
	RankID    *int64    `json:"rank_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Code is a row of the generic lookup table, unique on (Category, Key).
type Code struct {
	ID       int64  `json:"id"`
	Category string `json:"category"`
	Key      string `json:"key"`
	Value    string `json:"value"`
}

const (
	CodeCategoryPaymentMethod = "PaymentMethod"
	CodeCategoryCustomerRank  = "CustomerRank"
)

type Order struct {
	ID              int64           `json:"id"`
	CustomerID      string          `json:"customer_id"`
	UserID          int64           `json:"user_id"`
	PromotionID     *int64          `json:"promotion_id,omitempty"`
	PaymentMethodID int64           `json:"payment_method_id"`
	Channel         string          `json:"channel"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	IdempotencyKey  *string         `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Details         []OrderDetail   `json:"details,omitempty"`
}

type OrderDetail struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	BookID    int64           `json:"book_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	IsGift    bool            `json:"is_gift"`
}

type ExportTicket struct {
	ID             int64          `json:"id"`
	UserID         int64          `json:"user_id"`
	OrderID        *int64         `json:"order_id,omitempty"`
	DocumentNumber string         `json:"document_number"`
	TotalQuantity  int            `json:"total_quantity"`
	Status         string         `json:"status"`
	Reason         string         `json:"reason"`
	CreatedAt      time.Time      `json:"created_at"`
	Details        []ExportDetail `json:"details,omitempty"`
}

type ExportDetail struct {
	ID             int64 `json:"id"`
	ExportTicketID int64 `json:"export_ticket_id"`
	BookID         int64 `json:"book_id"`
	Quantity       int   `json:"quantity"`
}

const (
	OrderStatusPending   = "Pending"
	OrderStatusCompleted = "Completed"
	OrderStatusCancelled = "Cancelled"
)

const (
	ExportStatusCompleted = "Completed"
	ExportReasonSale      = "Sale"
)
