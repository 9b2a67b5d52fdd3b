package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrDuplicate matches any *DuplicateError via errors.Is.
	ErrDuplicate  = errors.New("duplicate key")
	ErrForeignKey = errors.New("foreign key violation")
)

// DuplicateError is returned when a write violates a unique index.
// Constraint carries the index name, e.g. "uni_users_username".
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string { return "duplicate key: " + e.Constraint }

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// Field extracts the column from a "uni_<table>_<column>" index name.
func (e *DuplicateError) Field(table string) string {
	return strings.TrimPrefix(e.Constraint, "uni_"+table+"_")
}

// translate maps PostgreSQL integrity violations onto repository errors.
// Anything else is returned unchanged.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return &DuplicateError{Constraint: pgErr.ConstraintName}
		case "23503":
			return fmt.Errorf("%w: %s", ErrForeignKey, pgErr.ConstraintName)
		}
	}
	return err
}

// conn returns tx when the caller is inside a transaction, else the pool.
func conn(ctx context.Context, db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
