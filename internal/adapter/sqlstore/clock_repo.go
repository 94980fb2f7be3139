package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"clok/internal/domain"
)

const clockColumns = "id, user_id, job_id, date_key, week_key, month_key, time_in, time_out, time_span"

// CreateClock inserts a clock entry and returns its ID.
func (d *DB) CreateClock(ctx context.Context, c domain.ClockEntry) (int64, error) {
	var out any
	if c.TimeOut != nil {
		out = c.TimeOut.UTC()
	}
	var id int64
	err := d.queryRow(ctx,
		"INSERT INTO clocks (user_id, job_id, date_key, week_key, month_key, time_in, time_out, time_span) VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id",
		c.UserID, c.JobID, c.DateKey, c.WeekKey, c.MonthKey, c.TimeIn.UTC(), out, c.TimeSpan,
	).Scan(&id)
	if err != nil {
		return 0, mapErr(err)
	}
	return id, nil
}

// GetClock retrieves a clock entry by ID.
func (d *DB) GetClock(ctx context.Context, id int64) (*domain.ClockEntry, error) {
	c, err := scanClock(d.queryRow(ctx, "SELECT "+clockColumns+" FROM clocks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// CloseClock sets the clock-out time and span of an entry.
func (d *DB) CloseClock(ctx context.Context, id int64, timeOut time.Time, span int64) error {
	res, err := d.exec(ctx, "UPDATE clocks SET time_out = ?, time_span = ? WHERE id = ?", timeOut.UTC(), span, id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// ReopenClock clears the clock-out time and span of an entry.
func (d *DB) ReopenClock(ctx context.Context, id int64) error {
	res, err := d.exec(ctx, "UPDATE clocks SET time_out = NULL, time_span = 0 WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

// DeleteClock removes an entry and its journals.
func (d *DB) DeleteClock(ctx context.Context, id int64) error {
	if _, err := d.exec(ctx, "DELETE FROM journals WHERE clock_id = ?", id); err != nil {
		return err
	}
	res, err := d.exec(ctx, "DELETE FROM clocks WHERE id = ?", id)
	if err != nil {
		return err
	}
	return affectedOne(res)
}

func affectedOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrClockNotFound
	}
	return nil
}

// ListClocks returns the entries matching f ordered by clock-in time.
func (d *DB) ListClocks(ctx context.Context, f domain.ClockFilter) ([]domain.ClockEntry, error) {
	where, args := clockWhere(f)
	q := "SELECT " + clockColumns + " FROM clocks" + where + " ORDER BY time_in, id"
	if f.NewestFirst {
		q = "SELECT " + clockColumns + " FROM clocks" + where + " ORDER BY time_in DESC, id DESC"
	}
	if f.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.ClockEntry, 0)
	for rows.Next() {
		c, err := scanClock(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// SumSpans returns the total span of the entries matching f.
func (d *DB) SumSpans(ctx context.Context, f domain.ClockFilter) (int64, error) {
	where, args := clockWhere(f)
	var total int64
	err := d.queryRow(ctx, "SELECT COALESCE(SUM(time_span), 0) FROM clocks"+where, args...).Scan(&total)
	return total, err
}

func clockWhere(f domain.ClockFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		conds = append(conds, cond)
		args = append(args, v)
	}
	if f.UserID != 0 {
		add("user_id = ?", f.UserID)
	}
	if f.JobID != 0 {
		add("job_id = ?", f.JobID)
	}
	if f.DateKey != 0 {
		add("date_key = ?", f.DateKey)
	}
	if f.WeekKey != 0 {
		add("week_key = ?", f.WeekKey)
	}
	if f.MonthKey != 0 {
		add("month_key = ?", f.MonthKey)
	}
	if !f.After.IsZero() {
		add("time_in > ?", f.After.UTC())
	}
	if !f.Before.IsZero() {
		add("time_in < ?", f.Before.UTC())
	}
	if f.OpenOnly {
		conds = append(conds, "time_out IS NULL")
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanClock(row interface{ Scan(...any) error }) (*domain.ClockEntry, error) {
	var (
		c   domain.ClockEntry
		out sql.NullTime
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.JobID, &c.DateKey, &c.WeekKey, &c.MonthKey, &c.TimeIn, &out, &c.TimeSpan); err != nil {
		return nil, err
	}
	c.TimeIn = c.TimeIn.UTC()
	c.TimeOut = timePtr(out)
	return &c, nil
}
