package sqlstore

import (
	"context"
	"database/sql"
	"errors"

	"clok/internal/domain"
)

// CreateJob creates a job owned by userID.
func (d *DB) CreateJob(ctx context.Context, userID int64, name string) (*domain.Job, error) {
	j := domain.Job{UserID: userID, Name: name}
	err := d.queryRow(ctx,
		"INSERT INTO jobs (user_id, name) VALUES (?, ?) RETURNING id", userID, name,
	).Scan(&j.ID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &j, nil
}

// GetJob retrieves a job by ID.
func (d *DB) GetJob(ctx context.Context, id int64) (*domain.Job, error) {
	return d.getJob(ctx, "SELECT id, user_id, name FROM jobs WHERE id = ?", id)
}

// GetJobByName retrieves one of the user's jobs by name.
func (d *DB) GetJobByName(ctx context.Context, userID int64, name string) (*domain.Job, error) {
	return d.getJob(ctx, "SELECT id, user_id, name FROM jobs WHERE user_id = ? AND name = ?", userID, name)
}

func (d *DB) getJob(ctx context.Context, query string, args ...any) (*domain.Job, error) {
	var j domain.Job
	err := d.queryRow(ctx, query, args...).Scan(&j.ID, &j.UserID, &j.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &j, nil
}

// ListJobs lists the user's jobs ordered by name.
func (d *DB) ListJobs(ctx context.Context, userID int64) ([]domain.Job, error) {
	rows, err := d.query(ctx, "SELECT id, user_id, name FROM jobs WHERE user_id = ? ORDER BY name", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := make([]domain.Job, 0)
	for rows.Next() {
		var j domain.Job
		if err := rows.Scan(&j.ID, &j.UserID, &j.Name); err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// RenameJob changes a job's name.
func (d *DB) RenameJob(ctx context.Context, id int64, name string) error {
	res, err := d.exec(ctx, "UPDATE jobs SET name = ? WHERE id = ?", name, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}
