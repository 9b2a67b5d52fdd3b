package service

import (
	"context"
	"errors"
	"strings"

	"qist/internal/apierror"

	"gorm.io/gorm"
)

// runTx wraps fn in a database transaction. When db is nil (unit tests with
// stub repositories) fn runs directly with a nil transaction handle.
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// notFoundOr maps gorm.ErrRecordNotFound to a 404 with msg and passes any
// other error through unchanged.
func notFoundOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apierror.NotFound(msg)
	}
	return err
}

// trimmedPtr trims s and returns nil when nothing is left.
func trimmedPtr(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

// mergeStr overwrites *dst with src when src is set.
func mergeStr(dst **string, src *string) {
	if src != nil {
		v := *src
		*dst = &v
	}
}
