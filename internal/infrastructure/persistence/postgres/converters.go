package postgres

import (
	"database/sql"
	"time"
)

// nullTimeToPtr and ptrToNullTime mirror the teacher's converters.go
// pattern for translating between domain *time.Time and the database/sql
// nullable wrapper, kept here instead of pgtype since queries scan
// directly into sql.Null[T] rather than through a generated sqlc layer.
func nullTimeToPtr(n sql.Null[time.Time]) *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.V
	return &t
}

func ptrToNullTime(ptr *time.Time) sql.Null[time.Time] {
	if ptr == nil {
		return sql.Null[time.Time]{}
	}
	return sql.Null[time.Time]{V: *ptr, Valid: true}
}

func nullStringToPtr(n sql.Null[string]) *string {
	if !n.Valid {
		return nil
	}
	s := n.V
	return &s
}

func ptrToNullString(ptr *string) sql.Null[string] {
	if ptr == nil {
		return sql.Null[string]{}
	}
	return sql.Null[string]{V: *ptr, Valid: true}
}
