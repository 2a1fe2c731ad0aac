package postgres

import (
	"database/sql/driver"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/smartcart/product-service/internal/apperror"
)

// SQLSTATE codes treated as retryable.
const (
	codeLockNotAvailable     = "55P03"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
	classConnectionException = "08"
)

// IsTransient reports whether err is a lock timeout, serialization conflict,
// lost connection or cancelled context.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if apperror.IsContextError(err) || errors.Is(err, driver.ErrBadConn) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeLockNotAvailable, codeSerializationFailure, codeDeadlockDetected, codeQueryCanceled:
			return true
		}
		return strings.HasPrefix(pgErr.Code, classConnectionException)
	}
	var connErr *pgconn.ConnectError
	return errors.As(err, &connErr)
}

// Classify converts retryable store errors into apperror.ErrTransient and
// leaves everything else untouched.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return err
	}
	if IsTransient(err) {
		return apperror.Transient(op, err)
	}
	return err
}
