package repository

import (
	"database/sql"
	"time"
)

// sqlNullTime scans a nullable timestamp into a *time.Time-friendly form.
type sqlNullTime struct {
	sql.NullTime
}

func (n sqlNullTime) ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time.UTC()
	return &t
}

// nullTime converts a *time.Time into the sql.NullTime a query expects.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// nullInt64 converts a *int64 into the sql.NullInt64 a query expects.
func nullInt64(i *int64) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *i, Valid: true}
}

// nullInt converts a *int into the sql.NullInt32 a query expects.
func nullInt(i *int) sql.NullInt32 {
	if i == nil {
		return sql.NullInt32{}
	}
	return sql.NullInt32{Int32: int32(*i), Valid: true}
}
