package promotion

import (
	"testing"
	"time"

	"github.com/safar/go-bookstore/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func timePtr(t time.Time) *time.Time { return &t }

func int64Ptr(v int64) *int64 { return &v }

func TestEvaluateNoPromotion(t *testing.T) {
	out, err := Evaluate(dec(100000), nil, nil, now)
	require.NoError(t, err)

	assert.True(t, out.Discount.IsZero())
	assert.Nil(t, out.Gift)
	assert.False(t, out.Applied)
}

func TestEvaluateMinimumPurchaseBoundary(t *testing.T) {
	promo := &models.Promotion{
		ID:                1,
		Kind:              models.FixedAmountOff,
		DiscountAmount:    dec(20000),
		MinPurchaseAmount: dec(100000),
		IsActive:          true,
	}

	below, err := Evaluate(dec(99999), promo, nil, now)
	require.NoError(t, err)
	assert.True(t, below.Discount.IsZero())
	assert.False(t, below.Applied)

	exact, err := Evaluate(dec(100000), promo, nil, now)
	require.NoError(t, err)
	assert.True(t, exact.Discount.Equal(dec(20000)), "got %s", exact.Discount)
	assert.True(t, exact.Applied)
}

func TestEvaluateWindowAndActiveFlag(t *testing.T) {
	base := models.Promotion{
		ID:              2,
		Kind:            models.PercentageOff,
		DiscountPercent: dec(10),
		IsActive:        true,
	}

	tests := []struct {
		name    string
		mutate  func(p *models.Promotion)
		applied bool
	}{
		{name: "open window", mutate: func(p *models.Promotion) {}, applied: true},
		{name: "inactive", mutate: func(p *models.Promotion) { p.IsActive = false }, applied: false},
		{name: "not started", mutate: func(p *models.Promotion) { p.StartDate = timePtr(now.Add(time.Hour)) }, applied: false},
		{name: "expired", mutate: func(p *models.Promotion) { p.EndDate = timePtr(now.Add(-time.Hour)) }, applied: false},
		{name: "open end", mutate: func(p *models.Promotion) { p.StartDate = timePtr(now.Add(-time.Hour)) }, applied: true},
		{name: "open start", mutate: func(p *models.Promotion) { p.EndDate = timePtr(now.Add(time.Hour)) }, applied: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			promo := base
			tt.mutate(&promo)

			out, err := Evaluate(dec(50000), &promo, nil, now)
			require.NoError(t, err)
			assert.Equal(t, tt.applied, out.Applied)
			if tt.applied {
				assert.True(t, out.Discount.Equal(dec(5000)), "got %s", out.Discount)
			} else {
				assert.True(t, out.Discount.IsZero())
			}
		})
	}
}

func TestEvaluatePercentageRounds(t *testing.T) {
	promo := &models.Promotion{ID: 3, Kind: models.PercentageOff, DiscountPercent: decimal.RequireFromString("12.5"), IsActive: true}

	out, err := Evaluate(decimal.RequireFromString("33.33"), promo, nil, now)
	require.NoError(t, err)
	assert.Equal(t, "4.17", out.Discount.StringFixed(2))
}

func TestEvaluateFixedAmountCappedAtSubtotal(t *testing.T) {
	promo := &models.Promotion{ID: 4, Kind: models.FixedAmountOff, DiscountAmount: dec(80000), IsActive: true}

	out, err := Evaluate(dec(30000), promo, nil, now)
	require.NoError(t, err)
	assert.True(t, out.Discount.Equal(dec(30000)))
}

func TestEvaluateGiftInStock(t *testing.T) {
	promo := &models.Promotion{ID: 5, Kind: models.GiftItem, GiftBookID: int64Ptr(9), IsActive: true}
	gift := &models.Book{ID: 9, Price: dec(45000), StockQuantity: 3}

	out, err := Evaluate(dec(120000), promo, gift, now)
	require.NoError(t, err)

	require.NotNil(t, out.Gift)
	assert.Equal(t, int64(9), out.Gift.BookID)
	assert.Equal(t, 1, out.Gift.Quantity)
	assert.True(t, out.Discount.IsZero())
}

func TestEvaluateGiftOutOfStockFallsBackToPrice(t *testing.T) {
	promo := &models.Promotion{ID: 6, Kind: models.GiftItem, GiftBookID: int64Ptr(9), IsActive: true}
	gift := &models.Book{ID: 9, Price: dec(45000), StockQuantity: 0}

	out, err := Evaluate(dec(120000), promo, gift, now)
	require.NoError(t, err)

	assert.Nil(t, out.Gift)
	assert.True(t, out.Discount.Equal(dec(45000)))
	assert.NotEmpty(t, out.Note)
}

func TestEvaluateGiftFallbackCapped(t *testing.T) {
	promo := &models.Promotion{ID: 7, Kind: models.GiftItem, GiftBookID: int64Ptr(9), IsActive: true}
	gift := &models.Book{ID: 9, Price: dec(45000)}

	out, err := Evaluate(dec(10000), promo, gift, now)
	require.NoError(t, err)
	assert.True(t, out.Discount.Equal(dec(10000)))
}

func TestEvaluateGiftMissingBook(t *testing.T) {
	promo := &models.Promotion{ID: 8, Kind: models.GiftItem, GiftBookID: int64Ptr(9), IsActive: true}

	out, err := Evaluate(dec(10000), promo, nil, now)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.True(t, out.Discount.IsZero())
}

func TestEvaluateRejectsUnknownKind(t *testing.T) {
	promo := &models.Promotion{ID: 10, Kind: models.PromotionKind(42), IsActive: true}

	_, err := Evaluate(dec(10000), promo, nil, now)
	assert.Error(t, err)
}

func TestCap(t *testing.T) {
	assert.True(t, Cap(dec(-5), dec(10)).IsZero())
	assert.True(t, Cap(dec(15), dec(10)).Equal(dec(10)))
	assert.True(t, Cap(dec(5), dec(10)).Equal(dec(5)))
}
