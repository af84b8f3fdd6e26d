package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/safar/go-bookstore/internal/database"
	"github.com/safar/go-bookstore/internal/models"
)

func CreateExportTicket(ctx context.Context, tx *sql.Tx, ticket *models.ExportTicket) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO export_tickets (user_id, order_id, document_number, total_quantity, status, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		ticket.UserID, nullableID(ticket.OrderID), ticket.DocumentNumber, ticket.TotalQuantity,
		ticket.Status, ticket.Reason,
	).Scan(&ticket.ID, &ticket.CreatedAt)
	if err != nil {
		return fmt.Errorf("create export ticket: %w", err)
	}
	return nil
}

func CreateExportDetail(ctx context.Context, tx *sql.Tx, detail *models.ExportDetail) error {
	err := tx.QueryRowContext(ctx,
		`INSERT INTO export_details (export_ticket_id, book_id, quantity)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		detail.ExportTicketID, detail.BookID, detail.Quantity,
	).Scan(&detail.ID)
	if err != nil {
		return fmt.Errorf("create export detail: %w", err)
	}
	return nil
}

func FinalizeExportTicket(ctx context.Context, tx *sql.Tx, ticket *models.ExportTicket) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE export_tickets SET total_quantity = $1 WHERE id = $2`,
		ticket.TotalQuantity, ticket.ID)
	if err != nil {
		return fmt.Errorf("finalize export ticket: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("finalize export ticket %d: no such ticket", ticket.ID)
	}
	return nil
}

// GetExportTicketByOrder returns the warehouse ticket mirroring an order.
func GetExportTicketByOrder(ctx context.Context, db *sql.DB, orderID int64) (*models.ExportTicket, error) {
	ticket := &models.ExportTicket{}
	var linkedOrder sql.NullInt64

	err := db.QueryRowContext(ctx,
		`SELECT id, user_id, order_id, document_number, total_quantity, status, reason, created_at
		 FROM export_tickets
		 WHERE order_id = $1`,
		orderID,
	).Scan(
		&ticket.ID,
		&ticket.UserID,
		&linkedOrder,
		&ticket.DocumentNumber,
		&ticket.TotalQuantity,
		&ticket.Status,
		&ticket.Reason,
		&ticket.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get export ticket: %w", err)
	}
	if linkedOrder.Valid {
		id := linkedOrder.Int64
		ticket.OrderID = &id
	}

	rows, err := db.QueryContext(ctx,
		`SELECT id, export_ticket_id, book_id, quantity FROM export_details WHERE export_ticket_id = $1 ORDER BY id`,
		ticket.ID)
	if err != nil {
		return nil, fmt.Errorf("get export details: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var detail models.ExportDetail
		if err := rows.Scan(&detail.ID, &detail.ExportTicketID, &detail.BookID, &detail.Quantity); err != nil {
			return nil, fmt.Errorf("scan export detail: %w", err)
		}
		ticket.Details = append(ticket.Details, detail)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ticket, nil
}

func CountExportTickets(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM export_tickets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count export tickets: %w", err)
	}
	return n, nil
}
