package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
)

// postgres error codes
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func pqErrorCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// storageErr wraps a driver failure into a core.StorageError.
func storageErr(err error, op string) error {
	return core.NewStorageError(errors.WithStack(err), op)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return storageErr(err, op)
}

// rollback is deferred right after a transaction begins; it is a no-op once committed.
func rollback(tx interface{ Rollback() error }) {
	_ = tx.Rollback()
}
