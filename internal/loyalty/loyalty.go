package loyalty

import (
	"fmt"

	"github.com/safar/go-bookstore/internal/models"
	"github.com/shopspring/decimal"
)

var earnRate = decimal.RequireFromString("0.10")

const (
	LowThreshold  int64 = 50_000
	MidThreshold  int64 = 100_000
	HighThreshold int64 = 200_000
)

// Line is an order line as captured at sale time.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// EarnedPoints is the sum over lines of floor(unitPrice * quantity * 10%),
// truncated per line.
func EarnedPoints(lines []Line) int64 {
	var total int64
	for _, line := range lines {
		gross := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		total += gross.Mul(earnRate).Floor().IntPart()
	}
	return total
}

// Tiers holds the rank code ids. A zero id means the tier is not configured
// and is never assigned.
type Tiers struct {
	Low  int64
	Mid  int64
	High int64
}

// Names are the display values of the rank codes for each tier.
type Names struct {
	Low  string
	Mid  string
	High string
}

// ResolveTiers maps rank codes to tiers by display value.
func ResolveTiers(codes []models.Code, names Names) (Tiers, error) {
	var tiers Tiers
	for _, code := range codes {
		switch code.Value {
		case names.Low:
			tiers.Low = code.ID
		case names.Mid:
			tiers.Mid = code.ID
		case names.High:
			tiers.High = code.ID
		}
	}
	if tiers.Low == 0 && tiers.Mid == 0 && tiers.High == 0 {
		return tiers, fmt.Errorf("no rank codes match %q, %q, %q", names.Low, names.Mid, names.High)
	}
	return tiers, nil
}

// ResolveRank returns the rank for a customer holding points, starting from
// current. Ranks never go down.
func ResolveRank(points int64, current *int64, tiers Tiers) *int64 {
	is := func(id int64) bool { return id != 0 && current != nil && *current == id }

	switch {
	case points >= HighThreshold && tiers.High != 0:
		return idPtr(tiers.High)
	case points >= MidThreshold && tiers.Mid != 0 && !is(tiers.High):
		return idPtr(tiers.Mid)
	case points >= LowThreshold && tiers.Low != 0 && !is(tiers.Mid) && !is(tiers.High):
		return idPtr(tiers.Low)
	}
	return current
}

// Apply adds the points earned by lines to customer and resolves the new rank.
// It returns the points earned.
func Apply(customer *models.Customer, lines []Line, tiers Tiers) int64 {
	earned := EarnedPoints(lines)
	customer.Points += earned
	customer.RankID = ResolveRank(customer.Points, customer.RankID, tiers)
	return earned
}

func idPtr(id int64) *int64 { return &id }
