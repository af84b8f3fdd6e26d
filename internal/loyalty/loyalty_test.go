package loyalty

import (
	"testing"

	"github.com/safar/go-bookstore/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tiers = Tiers{Low: 11, Mid: 12, High: 13}

func ptr(v int64) *int64 { return &v }

func TestEarnedPoints(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  int64
	}{
		{name: "empty", want: 0},
		{name: "single line", lines: []Line{{UnitPrice: decimal.NewFromInt(50000), Quantity: 2}}, want: 10000},
		{name: "truncates per line", lines: []Line{
			{UnitPrice: decimal.NewFromInt(19), Quantity: 1},
			{UnitPrice: decimal.NewFromInt(19), Quantity: 1},
		}, want: 2},
		{name: "fractional price", lines: []Line{{UnitPrice: decimal.RequireFromString("99.99"), Quantity: 3}}, want: 29},
		{name: "gift line earns nothing", lines: []Line{
			{UnitPrice: decimal.NewFromInt(30000), Quantity: 1},
			{UnitPrice: decimal.Zero, Quantity: 1},
		}, want: 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EarnedPoints(tt.lines))
		})
	}
}

func TestResolveRank(t *testing.T) {
	tests := []struct {
		name    string
		points  int64
		current *int64
		want    *int64
	}{
		{name: "below every threshold keeps nil", points: 10000, current: nil, want: nil},
		{name: "below every threshold keeps current", points: 10000, current: ptr(11), want: ptr(11)},
		{name: "low", points: 50000, current: nil, want: ptr(11)},
		{name: "mid", points: 105000, current: nil, want: ptr(12)},
		{name: "mid from low", points: 105000, current: ptr(11), want: ptr(12)},
		{name: "high", points: 200000, current: ptr(12), want: ptr(13)},
		{name: "high never drops to mid", points: 150000, current: ptr(13), want: ptr(13)},
		{name: "mid never drops to low", points: 60000, current: ptr(12), want: ptr(12)},
		{name: "high never drops to low", points: 60000, current: ptr(13), want: ptr(13)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveRank(tt.points, tt.current, tiers)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.want, *got)
		})
	}
}

func TestResolveRankSkipsMissingTier(t *testing.T) {
	got := ResolveRank(120000, nil, Tiers{Low: 11, High: 13})
	require.NotNil(t, got)
	assert.Equal(t, int64(11), *got)
}

func TestApplyUpgradeScenario(t *testing.T) {
	customer := &models.Customer{Points: 95000}

	earned := Apply(customer, []Line{{UnitPrice: decimal.NewFromInt(50000), Quantity: 2}}, tiers)

	assert.Equal(t, int64(10000), earned)
	assert.Equal(t, int64(105000), customer.Points)
	require.NotNil(t, customer.RankID)
	assert.Equal(t, tiers.Mid, *customer.RankID)
}

func TestApplyNoRankBelowThreshold(t *testing.T) {
	customer := &models.Customer{}

	Apply(customer, []Line{{UnitPrice: decimal.NewFromInt(50000), Quantity: 2}}, tiers)

	assert.Equal(t, int64(10000), customer.Points)
	assert.Nil(t, customer.RankID)
}

func TestResolveTiers(t *testing.T) {
	codes := []models.Code{
		{ID: 4, Category: models.CodeCategoryCustomerRank, Key: "silver", Value: "Silver"},
		{ID: 5, Category: models.CodeCategoryCustomerRank, Key: "gold", Value: "Gold"},
		{ID: 6, Category: models.CodeCategoryCustomerRank, Key: "diamond", Value: "Diamond"},
	}

	got, err := ResolveTiers(codes, Names{Low: "Silver", Mid: "Gold", High: "Diamond"})
	require.NoError(t, err)
	assert.Equal(t, Tiers{Low: 4, Mid: 5, High: 6}, got)

	_, err = ResolveTiers(codes, Names{Low: "Bronze", Mid: "Iron", High: "Wood"})
	assert.Error(t, err)
}
