package main

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"

	"github.com/VividCortex/mysqlerr"
	"github.com/go-sql-driver/mysql"
)

// Fatal errors abort the run.
var (
	ErrFileNotFound = errors.New("dump file not found")
	ErrConnection   = errors.New("database connection failed")
)

// Row-level errors are recovered: the row is dropped and loading continues.
var (
	ErrRowTooShort = errors.New("row has too few fields")
	ErrRowCoercion = errors.New("row field coercion failed")
	ErrInsert      = errors.New("row insert failed")
)

// RowError describes a dropped data row.
type RowError struct {
	Line  int
	Table string
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("line %d (%s): %v", e.Line, e.Table, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// coercionError tags a field conversion failure with its column.
func coercionError(column, raw string, err error) error {
	return fmt.Errorf("%w: column %s value %q: %v", ErrRowCoercion, column, raw, err)
}

// isConnectionError reports whether err means the session is gone and
// further statements cannot succeed.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, sql.ErrTxDone) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlerr.ER_SERVER_SHUTDOWN, mysqlerr.ER_QUERY_INTERRUPTED,
			mysqlerr.ER_CON_COUNT_ERROR, mysqlerr.ER_ACCESS_DENIED_ERROR:
			return true
		}
	}
	return false
}
