package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassTransient
	ErrorClassDeadlock
	ErrorClassSerialization
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorClassTransient:
		return "transient"
	case ErrorClassDeadlock:
		return "deadlock"
	case ErrorClassSerialization:
		return "serialization"
	default:
		return "permanent"
	}
}

// ClassifyError maps Postgres SQLSTATE codes onto retry classes. Anything not
// recognised is permanent.
func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	if errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrConcurrentInsert) {
		return ErrorClassTransient
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001":
			return ErrorClassSerialization
		case "40P01":
			return ErrorClassDeadlock
		case "55P03":
			return ErrorClassTransient
		case "23505", "23503", "23502", "23514":
			return ErrorClassPermanent
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsRetryable(err error) bool {
	class := ClassifyError(err)
	return class == ErrorClassTransient ||
		class == ErrorClassDeadlock ||
		class == ErrorClassSerialization
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

// ErrConcurrentInsert marks a unique-key race lost to a transaction that
// committed first. It is retryable: the next attempt sees the winner's row.
var ErrConcurrentInsert = errors.New("concurrent insert conflict")

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrBookNotFound      = errors.New("book not found")
	ErrCustomerNotFound  = errors.New("customer not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrCodeNotFound      = errors.New("code not found")
	ErrPromotionNotFound = errors.New("promotion not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrLockTimeout       = errors.New("lock timeout")
)
