package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/joseph-ayodele/price-intel/internal/common"
)

const pgUniqueViolation = "23505"

// persistErr maps driver errors onto the error taxonomy. AppErrors pass through.
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := common.AsAppError(err); ok {
		return err
	}
	if isUniqueViolation(err) {
		return common.NewConflictError(op, err)
	}
	return common.NewPersistenceError(op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		}
		return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
	}
	return false
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
