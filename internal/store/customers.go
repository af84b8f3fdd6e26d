package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
)

const customerColumns = `id, phone, name, email, address, points, rank_id, created_at, updated_at`

func scanCustomer(row rowScanner, c *models.Customer) error {
	var rankID sql.NullInt64
	err := row.Scan(
		&c.ID,
		&c.Phone,
		&c.Name,
		&c.Email,
		&c.Address,
		&c.Points,
		&rankID,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return err
	}
	c.RankID = nil
	if rankID.Valid {
		id := rankID.Int64
		c.RankID = &id
	}
	return nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// FindCustomerByPhone reads and row-locks the customer with phone.
func FindCustomerByPhone(ctx context.Context, tx *sql.Tx, phone string) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1 FOR UPDATE`

	if err := scanCustomer(tx.QueryRowContext(ctx, query, phone), customer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("find customer: %w", err)
	}

	return customer, nil
}

func GetCustomerByPhone(ctx context.Context, db *sql.DB, phone string) (*models.Customer, error) {
	customer := &models.Customer{}

	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1`

	if err := scanCustomer(db.QueryRowContext(ctx, query, phone), customer); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("get customer: %w", err)
	}

	return customer, nil
}

// CreateCustomer inserts customer with its preassigned id. Losing a race on
// the phone number yields ErrConcurrentInsert.
func CreateCustomer(ctx context.Context, tx *sql.Tx, customer *models.Customer) error {
	query := `
		INSERT INTO customers (id, phone, name, email, address, points, rank_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`

	err := tx.QueryRowContext(ctx, query,
		customer.ID, customer.Phone, customer.Name, customer.Email, customer.Address,
		customer.Points, nullableID(customer.RankID),
	).Scan(&customer.CreatedAt, &customer.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "customers_phone_key") {
			return fmt.Errorf("create customer %s: %w", customer.Phone, database.ErrConcurrentInsert)
		}
		return fmt.Errorf("create customer: %w", err)
	}

	return nil
}

func UpdateCustomer(ctx context.Context, tx *sql.Tx, customer *models.Customer) error {
	err := tx.QueryRowContext(ctx,
		`UPDATE customers
		 SET name = $1, points = $2, rank_id = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING updated_at`,
		customer.Name, customer.Points, nullableID(customer.RankID), customer.ID,
	).Scan(&customer.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return database.ErrCustomerNotFound
		}
		return fmt.Errorf("update customer: %w", err)
	}

	return nil
}

func CountCustomersByPhone(ctx context.Context, db *sql.DB, phone string) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers WHERE phone = $1`, phone).Scan(&n); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return n, nil
}
