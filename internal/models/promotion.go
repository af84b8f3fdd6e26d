package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PromotionKind is the closed set of promotion rules. The zero value is not a
// valid kind.
type PromotionKind int

const (
	PercentageOff PromotionKind = iota + 1
	FixedAmountOff
	GiftItem
)

func (k PromotionKind) String() string {
	switch k {
	case PercentageOff:
		return "percentage"
	case FixedAmountOff:
		return "fixed_amount"
	case GiftItem:
		return "gift_item"
	default:
		return fmt.Sprintf("PromotionKind(%d)", int(k))
	}
}

func ParsePromotionKind(s string) (PromotionKind, error) {
	switch s {
	case "percentage":
		return PercentageOff, nil
	case "fixed_amount":
		return FixedAmountOff, nil
	case "gift_item":
		return GiftItem, nil
	default:
		return 0, fmt.Errorf("unknown promotion kind %q", s)
	}
}

func (k PromotionKind) MarshalText() ([]byte, error) {
	if k < PercentageOff || k > GiftItem {
		return nil, fmt.Errorf("invalid promotion kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *PromotionKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePromotionKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

type Promotion struct {
	ID                int64           `json:"id"`
	Name              string          `json:"name"`
	Kind              PromotionKind   `json:"kind"`
	DiscountPercent   decimal.Decimal `json:"discount_percent"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	StartDate         *time.Time      `json:"start_date,omitempty"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	MinPurchaseAmount decimal.Decimal `json:"min_purchase_amount"`
	GiftBookID        *int64          `json:"gift_book_id,omitempty"`
	IsActive          bool            `json:"is_active"`
}

// ActiveAt reports whether the promotion is switched on and now falls inside
// its validity window. A nil bound is open on that side.
func (p *Promotion) ActiveAt(now time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	return true
}
