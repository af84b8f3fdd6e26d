package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
)

const promotionColumns = `id, name, kind, discount_percent, discount_amount, start_date, end_date,
	min_purchase_amount, gift_book_id, is_active`

func scanPromotion(row rowScanner, p *models.Promotion) error {
	var (
		kind       string
		start, end sql.NullTime
		giftBookID sql.NullInt64
	)
	err := row.Scan(
		&p.ID,
		&p.Name,
		&kind,
		&p.DiscountPercent,
		&p.DiscountAmount,
		&start,
		&end,
		&p.MinPurchaseAmount,
		&giftBookID,
		&p.IsActive,
	)
	if err != nil {
		return err
	}

	if p.Kind, err = models.ParsePromotionKind(kind); err != nil {
		return fmt.Errorf("promotion %d: %w", p.ID, err)
	}
	p.StartDate = nullTime(start)
	p.EndDate = nullTime(end)
	p.GiftBookID = nil
	if giftBookID.Valid {
		id := giftBookID.Int64
		p.GiftBookID = &id
	}
	return nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func GetPromotion(ctx context.Context, q queryer, id int64) (*models.Promotion, error) {
	promo := &models.Promotion{}

	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	if err := scanPromotion(q.QueryRowContext(ctx, query, id), promo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("get promotion: %w", err)
	}

	return promo, nil
}

func CreatePromotion(ctx context.Context, db *sql.DB, p *models.Promotion) error {
	kind, err := p.Kind.MarshalText()
	if err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}

	var start, end sql.NullTime
	if p.StartDate != nil {
		start = sql.NullTime{Time: *p.StartDate, Valid: true}
	}
	if p.EndDate != nil {
		end = sql.NullTime{Time: *p.EndDate, Valid: true}
	}

	err = db.QueryRowContext(ctx,
		`INSERT INTO promotions (name, kind, discount_percent, discount_amount, start_date, end_date,
		                         min_purchase_amount, gift_book_id, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id`,
		p.Name, string(kind), p.DiscountPercent, p.DiscountAmount, start, end,
		p.MinPurchaseAmount, nullableID(p.GiftBookID), p.IsActive,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("create promotion: %w", err)
	}
	return nil
}

// ListActivePromotions returns promotions usable at now, for the checkout
// screen's picker.
func ListActivePromotions(ctx context.Context, db *sql.DB, now time.Time) ([]models.Promotion, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+promotionColumns+`
		 FROM promotions
		 WHERE is_active
		   AND (start_date IS NULL OR start_date <= $1)
		   AND (end_date IS NULL OR end_date >= $1)
		 ORDER BY id`,
		now)
	if err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}
	defer rows.Close()

	promos := []models.Promotion{}
	for rows.Next() {
		var p models.Promotion
		if err := scanPromotion(rows, &p); err != nil {
			return nil, fmt.Errorf("scan promotion: %w", err)
		}
		promos = append(promos, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return promos, nil
}
