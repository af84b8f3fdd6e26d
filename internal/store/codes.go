package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
)

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func FindCode(ctx context.Context, q queryer, category string, id int64) (*models.Code, error) {
	code := &models.Code{}

	err := q.QueryRowContext(ctx,
		`SELECT id, category, key, value FROM codes WHERE id = $1 AND category = $2`,
		id, category).Scan(&code.ID, &code.Category, &code.Key, &code.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find code: %w", err)
	}

	return code, nil
}

func ListCodesByCategory(ctx context.Context, q queryer, category string) ([]models.Code, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, category, key, value FROM codes WHERE category = $1 ORDER BY id`,
		category)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	var codes []models.Code
	for rows.Next() {
		var code models.Code
		if err := rows.Scan(&code.ID, &code.Category, &code.Key, &code.Value); err != nil {
			return nil, fmt.Errorf("scan code: %w", err)
		}
		codes = append(codes, code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return codes, nil
}

func FindCodeByKey(ctx context.Context, q queryer, category, key string) (*models.Code, error) {
	code := &models.Code{}

	err := q.QueryRowContext(ctx,
		`SELECT id, category, key, value FROM codes WHERE category = $1 AND key = $2`,
		category, key).Scan(&code.ID, &code.Category, &code.Key, &code.Value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCodeNotFound
		}
		return nil, fmt.Errorf("find code by key: %w", err)
	}

	return code, nil
}
