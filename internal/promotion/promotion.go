// Package promotion decides what a selected promotion is worth for a cart.
//
// Evaluation is pure: stock for a gift book is read by the caller inside its
// transaction and passed in, and the caller performs any stock movement the
// outcome asks for.
package promotion

import (
	"fmt"
	"time"

	"github.com/safar/go-bookstore/internal/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Gift is a free line the checkout must add at zero price.
type Gift struct {
	BookID   int64
	Quantity int
}

type Outcome struct {
	Discount decimal.Decimal
	Gift     *Gift
	// Applied is false when the promotion was absent or did not qualify.
	Applied bool
	// Note explains a skipped or degraded promotion for logs.
	Note string
}

// Eligible reports whether promo applies to subtotal at now: it must be
// active, inside its window and subtotal must reach the minimum purchase.
func Eligible(subtotal decimal.Decimal, promo *models.Promotion, now time.Time) bool {
	if promo == nil {
		return false
	}
	if !promo.ActiveAt(now) {
		return false
	}
	return subtotal.GreaterThanOrEqual(promo.MinPurchaseAmount)
}

// Evaluate computes the discount and optional gift line for subtotal.
// giftBook is the current row of promo.GiftBookID (nil if it does not exist)
// and is only consulted for GiftItem promotions.
func Evaluate(subtotal decimal.Decimal, promo *models.Promotion, giftBook *models.Book, now time.Time) (Outcome, error) {
	if promo == nil {
		return Outcome{Discount: decimal.Zero}, nil
	}
	if !Eligible(subtotal, promo, now) {
		return Outcome{
			Discount: decimal.Zero,
			Note:     fmt.Sprintf("promotion %d not eligible", promo.ID),
		}, nil
	}

	var out Outcome
	switch promo.Kind {
	case models.PercentageOff:
		out = Outcome{
			Discount: subtotal.Mul(promo.DiscountPercent).Div(hundred).Round(2),
			Applied:  true,
		}

	case models.FixedAmountOff:
		out = Outcome{Discount: promo.DiscountAmount, Applied: true}

	case models.GiftItem:
		out = evaluateGift(promo, giftBook)

	default:
		return Outcome{}, fmt.Errorf("promotion %d: unsupported kind %s", promo.ID, promo.Kind)
	}

	out.Discount = Cap(out.Discount, subtotal)
	return out, nil
}

func evaluateGift(promo *models.Promotion, giftBook *models.Book) Outcome {
	if promo.GiftBookID == nil || giftBook == nil || giftBook.IsDeleted {
		return Outcome{
			Discount: decimal.Zero,
			Note:     fmt.Sprintf("promotion %d: gift book unavailable", promo.ID),
		}
	}

	if giftBook.StockQuantity > 0 {
		return Outcome{
			Discount: decimal.Zero,
			Gift:     &Gift{BookID: giftBook.ID, Quantity: 1},
			Applied:  true,
		}
	}

	// Out of stock: the customer gets the gift's listed price off instead.
	return Outcome{
		Discount: giftBook.Price,
		Applied:  true,
		Note:     fmt.Sprintf("promotion %d: gift book %d out of stock, price granted as discount", promo.ID, giftBook.ID),
	}
}

// Cap clamps discount into [0, subtotal].
func Cap(discount, subtotal decimal.Decimal) decimal.Decimal {
	if discount.IsNegative() {
		return decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		return subtotal
	}
	return discount
}
