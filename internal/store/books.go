package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
	"github.com/shopspring/decimal"
)

const bookColumns = `id, title, price, cost_price, COALESCE(stock_quantity, 0), is_deleted, created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBook(row rowScanner, book *models.Book) error {
	return row.Scan(
		&book.ID,
		&book.Title,
		&book.Price,
		&book.CostPrice,
		&book.StockQuantity,
		&book.IsDeleted,
		&book.CreatedAt,
		&book.UpdatedAt,
		&book.Version,
	)
}

// CreateBook inserts a catalog entry. A nil stock is stored as NULL, which
// reads back as zero.
func CreateBook(ctx context.Context, db *sql.DB, title string, price, costPrice decimal.Decimal, stock *int) (*models.Book, error) {
	book := &models.Book{}

	query := `
		INSERT INTO books (title, price, cost_price, stock_quantity, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, NOW(), NOW(), 1)
		RETURNING ` + bookColumns

	var stockArg sql.NullInt64
	if stock != nil {
		stockArg = sql.NullInt64{Int64: int64(*stock), Valid: true}
	}

	if err := scanBook(db.QueryRowContext(ctx, query, title, price, costPrice, stockArg), book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	return book, nil
}

func GetBook(ctx context.Context, db *sql.DB, id int64) (*models.Book, error) {
	book := &models.Book{}

	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 AND NOT is_deleted`

	if err := scanBook(db.QueryRowContext(ctx, query, id), book); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	return book, nil
}

// GetBookForUpdate reads a book and holds its row lock until tx ends.
// Soft-deleted rows are returned so the caller can tell them apart.
func GetBookForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Book, error) {
	book := &models.Book{}

	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE`

	if err := scanBook(tx.QueryRowContext(ctx, query, id), book); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrBookNotFound
		}
		return nil, fmt.Errorf("lock book: %w", err)
	}

	return book, nil
}

// GetBookForUpdateNoWait is GetBookForUpdate that fails with ErrLockTimeout
// instead of queueing behind another transaction.
func GetBookForUpdateNoWait(ctx context.Context, tx *sql.Tx, id int64) (*models.Book, error) {
	book := &models.Book{}

	query := `SELECT ` + bookColumns + ` FROM books WHERE id = $1 FOR UPDATE NOWAIT`

	if err := scanBook(tx.QueryRowContext(ctx, query, id), book); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "55P03" {
			return nil, database.ErrLockTimeout
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrBookNotFound
		}
		return nil, fmt.Errorf("lock book (nowait): %w", err)
	}

	return book, nil
}

// DecrementStock removes quantity from a book's stock. It never lets stock go
// below zero: a short row is reported as ErrInsufficientStock.
func DecrementStock(ctx context.Context, tx *sql.Tx, bookID int64, quantity int) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE books
		 SET stock_quantity = COALESCE(stock_quantity, 0) - $1,
		     updated_at = NOW(),
		     version = version + 1
		 WHERE id = $2
		   AND COALESCE(stock_quantity, 0) >= $1`,
		quantity, bookID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

func ListBooks(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE NOT is_deleted`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `
		SELECT ` + bookColumns + `
		FROM books
		WHERE NOT is_deleted
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		var book models.Book
		if err := scanBook(rows, &book); err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return newOffsetPage(books, total, page, pageSize), nil
}

func SoftDeleteBook(ctx context.Context, db *sql.DB, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE books SET is_deleted = TRUE, updated_at = NOW(), version = version + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return database.ErrBookNotFound
	}
	return nil
}
