package main

import (
	"database/sql"
	"strconv"
	"strings"
)

// nullSentinel is how COPY text format spells SQL NULL.
const nullSentinel = `\N`

func nullString(s string) sql.NullString {
	if s == nullSentinel {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullInt parses a base-10 integer. The sentinel maps to NULL; anything
// else that does not parse is an error.
func nullInt(column, s string) (sql.NullInt64, error) {
	if s == nullSentinel {
		return sql.NullInt64{}, nil
	}
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return sql.NullInt64{}, coercionError(column, s, err)
	}
	return sql.NullInt64{Int64: v, Valid: true}, nil
}

// nullFloat parses a float. The sentinel maps to NULL; anything else that
// does not parse is an error.
func nullFloat(column, s string) (sql.NullFloat64, error) {
	if s == nullSentinel {
		return sql.NullFloat64{}, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return sql.NullFloat64{}, coercionError(column, s, err)
	}
	return sql.NullFloat64{Float64: v, Valid: true}, nil
}

// geoPoint splits a "lat, lng" pair. Any malformed input yields two NULLs
// rather than an error.
func geoPoint(s string) (lat, lng sql.NullFloat64) {
	if s == nullSentinel || s == "" {
		return
	}
	parts := strings.Split(s, ", ")
	if len(parts) != 2 {
		return
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return
	}
	return sql.NullFloat64{Float64: la, Valid: true}, sql.NullFloat64{Float64: ln, Valid: true}
}

// truncateString keeps the first n characters of a valid value.
func truncateString(v sql.NullString, n int) sql.NullString {
	if !v.Valid {
		return v
	}
	r := []rune(v.String)
	if len(r) > n {
		v.String = string(r[:n])
	}
	return v
}
