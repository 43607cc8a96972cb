package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/DanielPopoola/ficmart-transaction-core/internal/adapters/docstore"
	"github.com/jackc/pgx/v5/pgconn"
)

// classify maps a pgx failure onto the store's error codes.
func classify(op string, err error) error {
	return docstore.NewError(op, codeFor(err), err)
}

func codeFor(err error) docstore.Code {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return docstore.CodeDeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return docstore.CodeAborted
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return docstore.CodeUnavailable
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return docstore.CodeUnknown
	}

	switch {
	case pgErr.Code == "40001", pgErr.Code == "40P01":
		return docstore.CodeAborted
	case pgErr.Code == "57014":
		return docstore.CodeDeadlineExceeded
	case strings.HasPrefix(pgErr.Code, "57P"), strings.HasPrefix(pgErr.Code, "08"):
		return docstore.CodeUnavailable
	case strings.HasPrefix(pgErr.Code, "53"):
		return docstore.CodeResourceExhausted
	case pgErr.Code == "XX000":
		return docstore.CodeInternal
	case strings.HasPrefix(pgErr.Code, "22"), strings.HasPrefix(pgErr.Code, "23"), strings.HasPrefix(pgErr.Code, "42"):
		return docstore.CodeInvalidArgument
	default:
		return docstore.CodeUnknown
	}
}
