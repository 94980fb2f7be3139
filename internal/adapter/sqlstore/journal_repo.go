package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"clok/internal/domain"
)

// AddJournal appends a note to a clock entry.
func (d *DB) AddJournal(ctx context.Context, clockID int64, at time.Time, entry string) (int64, error) {
	var exists int
	err := d.queryRow(ctx, "SELECT 1 FROM clocks WHERE id = ?", clockID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrClockNotFound
	}
	if err != nil {
		return 0, err
	}

	var id int64
	err = d.queryRow(ctx,
		"INSERT INTO journals (clock_id, time, entry) VALUES (?, ?, ?) RETURNING id",
		clockID, at.UTC(), entry,
	).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// ListJournals returns the journals of a clock entry, oldest first.
func (d *DB) ListJournals(ctx context.Context, clockID int64) ([]domain.Journal, error) {
	rows, err := d.query(ctx,
		"SELECT id, clock_id, time, entry FROM journals WHERE clock_id = ? ORDER BY time, id", clockID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Journal, 0)
	for rows.Next() {
		var j domain.Journal
		if err := rows.Scan(&j.ID, &j.ClockID, &j.Time, &j.Entry); err != nil {
			return nil, err
		}
		j.Time = j.Time.UTC()
		out = append(out, j)
	}
	return out, rows.Err()
}
