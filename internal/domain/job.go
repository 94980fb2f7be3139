package domain

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const maxJobNameLen = 64

// Job is a named work category owned by a user.
type Job struct {
	ID     int64  `json:"id"`
	UserID int64  `json:"userId"`
	Name   string `json:"name"`
}

// Scope selects which jobs an aggregation covers. A zero JobID means the
// user's active job; AllJobs ignores the job entirely.
type Scope struct {
	JobID   int64
	AllJobs bool
}

// CanonicalJobName normalizes a job name to NFC, lower case, with inner
// whitespace collapsed.
func CanonicalJobName(name string) (string, error) {
	name = strings.Join(strings.Fields(norm.NFC.String(name)), " ")
	name = cases.Lower(language.Und).String(name)
	if name == "" || utf8.RuneCountInString(name) > maxJobNameLen {
		return "", ErrInvalidJobName
	}
	return name, nil
}

// JobRepository is the port for job persistence. CreateJob and RenameJob
// return ErrStoreConflict when the owner already has a job with that name.
type JobRepository interface {
	CreateJob(ctx context.Context, userID int64, name string) (*Job, error)
	GetJob(ctx context.Context, id int64) (*Job, error)
	GetJobByName(ctx context.Context, userID int64, name string) (*Job, error)
	ListJobs(ctx context.Context, userID int64) ([]Job, error)
	RenameJob(ctx context.Context, id int64, name string) error
}
