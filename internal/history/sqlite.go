package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/ha-discovery/internal/discovery"
)

const (
	// DefaultLimit is used when List is called without a positive limit.
	DefaultLimit = 50

	// MaxLimit caps a single List call.
	MaxLimit = 200

	// timestampLayout is fixed-width so lexical order matches time order.
	timestampLayout = "2006-01-02T15:04:05.000Z"
)

// SQLiteRepository implements Repository using SQLite.
//
// Status and value are stored as JSON text; a nil value is stored as SQL NULL.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an open, migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record inserts an entry for d's current status and value.
func (r *SQLiteRepository) Record(ctx context.Context, d discovery.Device) error {
	if d.ID == "" {
		return ErrDeviceIDRequired
	}

	statusJSON, err := json.Marshal(d.CurrentStatus)
	if err != nil {
		return fmt.Errorf("marshalling status: %w", err)
	}

	var value sql.NullString
	if d.CurrentValue != nil {
		valueJSON, err := json.Marshal(d.CurrentValue)
		if err != nil {
			return fmt.Errorf("marshalling value: %w", err)
		}
		value = sql.NullString{String: string(valueJSON), Valid: true}
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO device_history (device_id, component, status, value, created_at) VALUES (?, ?, ?, ?, ?)",
		d.ID,
		d.Component,
		string(statusJSON),
		value,
		r.now().UTC().Format(timestampLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting device history: %w", err)
	}
	return nil
}

// List returns recent entries for deviceID, newest first.
func (r *SQLiteRepository) List(ctx context.Context, deviceID string, limit int) ([]Entry, error) {
	if deviceID == "" {
		return nil, ErrDeviceIDRequired
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, device_id, component, status, value, created_at
		 FROM device_history
		 WHERE device_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		deviceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var (
			entry      Entry
			statusJSON string
			valueJSON  sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.Component, &statusJSON, &valueJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning device history: %w", err)
		}

		if err := json.Unmarshal([]byte(statusJSON), &entry.Status); err != nil {
			return nil, fmt.Errorf("unmarshalling status: %w", err)
		}
		if valueJSON.Valid {
			if err := json.Unmarshal([]byte(valueJSON.String), &entry.Value); err != nil {
				return nil, fmt.Errorf("unmarshalling value: %w", err)
			}
		}

		ts, err := parseTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		entry.CreatedAt = ts

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device history: %w", err)
	}
	return entries, nil
}

// Prune deletes entries older than olderThan.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := r.now().UTC().Add(-olderThan).Format(timestampLayout)
	result, err := r.db.ExecContext(ctx, "DELETE FROM device_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting device history: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// parseTimestamp parses a created_at value written by Record or by the
// column default.
func parseTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
	}
	return ts, nil
}
