package models

import (
	"database/sql"
	"time"
)

// ExistsChecker runs a query selecting a single row and reports whether one was found.
func ExistsChecker(query string, args ...interface{}) (bool, error) {
	var exists int
	err := db.QueryRow(query, args...).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// TimestampPair holds creation and update timestamps
type TimestampPair struct {
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewTimestamps creates a new timestamp pair with current time, truncated to
// the second precision used for storage.
func NewTimestamps() TimestampPair {
	now := time.Unix(time.Now().Unix(), 0)
	return TimestampPair{CreatedAt: now, UpdatedAt: now}
}

// UpdateTimestamp updates only the UpdatedAt field
func (t *TimestampPair) UpdateTimestamp() {
	t.UpdatedAt = time.Unix(time.Now().Unix(), 0)
}

// UnixTimestamps returns both timestamps as Unix seconds
func (t *TimestampPair) UnixTimestamps() (int64, int64) {
	return t.CreatedAt.Unix(), t.UpdatedAt.Unix()
}

// FromUnixTimestamps populates timestamps from Unix seconds
func (t *TimestampPair) FromUnixTimestamps(createdAt, updatedAt int64) {
	t.CreatedAt = time.Unix(createdAt, 0)
	t.UpdatedAt = time.Unix(updatedAt, 0)
}

// CountRecords returns count from a query
func CountRecords(query string, args ...interface{}) (int64, error) {
	var count int64
	err := db.QueryRow(query, args...).Scan(&count)
	return count, err
}

// nullableUnix converts an optional time to a nullable Unix timestamp.
func nullableUnix(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

// timeFromNullable converts a nullable Unix timestamp to an optional time.
func timeFromNullable(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0)
	return &t
}

// nullableID converts an optional ID to a nullable integer.
func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// idFromNullable converts a nullable integer to an optional ID.
func idFromNullable(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}
