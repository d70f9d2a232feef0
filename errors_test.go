package main

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/VividCortex/mysqlerr"
	"github.com/go-sql-driver/mysql"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"bad conn", driver.ErrBadConn, true},
		{"invalid conn wrapped", fmt.Errorf("exec: %w", mysql.ErrInvalidConn), true},
		{"conn done", sql.ErrConnDone, true},
		{"tx done", sql.ErrTxDone, true},
		{"dial refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"server shutdown", &mysql.MySQLError{Number: mysqlerr.ER_SERVER_SHUTDOWN}, true},
		{"query interrupted", &mysql.MySQLError{Number: mysqlerr.ER_QUERY_INTERRUPTED}, true},
		{"data too long", &mysql.MySQLError{Number: mysqlerr.ER_DATA_TOO_LONG}, false},
		{"no such table", &mysql.MySQLError{Number: mysqlerr.ER_NO_SUCH_TABLE}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %t, want %t", tt.err, got, tt.want)
			}
		})
	}
}

func TestRowError(t *testing.T) {
	err := &RowError{Line: 42, Table: "npi_details", Err: coercionError("npi", "abc", errors.New("invalid syntax"))}
	if !errors.Is(err, ErrRowCoercion) {
		t.Error("RowError should unwrap to ErrRowCoercion")
	}
	if errors.Is(err, ErrInsert) {
		t.Error("RowError should not match ErrInsert")
	}
	want := `line 42 (npi_details): row field coercion failed: column npi value "abc": invalid syntax`
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
