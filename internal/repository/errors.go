package repository

import (
	"errors"
	"fmt"
	"strings"

	"memorabilia-catalog/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres class 23 covers integrity constraint violations (unique, foreign
// key, check).
const pgIntegrityViolationClass = "23"

// transientf wraps a storage error as a retryable transient catalog error.
// Everything that reaches this helper is an I/O failure, a timeout or a
// serialization conflict; invariant violations are detected and returned as
// their own kinds before any write executes. The one exception is a
// constraint the database itself rejects after slipping past those checks:
// that write fails identically on every retry, so it surfaces as a
// consistency defect instead.
func transientf(err error, msg string) error {
	kind := domain.KindTransient
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, pgIntegrityViolationClass) {
		kind = domain.KindConsistency
	}

	return domain.NewError(kind, "storage", fmt.Sprintf("%s: %v", msg, err)).
		WithCause(err)
}
