package store

import "errors"

type DatabaseType string

const (
	DBTypePostgres DatabaseType = "postgres"
	DBTypeSQLite   DatabaseType = "sqlite"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type DBConfig struct {
	DSN           string
	Type          DatabaseType
	MigrationsDir string
}

// AttendanceStat is the raw per-event aggregate behind the attendance report.
type AttendanceStat struct {
	EventID       int64  `db:"event_id"`
	Event         string `db:"event"`
	Registrations int64  `db:"registrations"`
	Present       int64  `db:"present"`
}

// FeedbackStat only counts registrations that have feedback.
type FeedbackStat struct {
	EventID   int64  `db:"event_id"`
	Event     string `db:"event"`
	Ratings   int64  `db:"ratings"`
	RatingSum int64  `db:"rating_sum"`
}
