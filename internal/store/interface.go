package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/campusevents/internal/models"
)

type CampusStore interface {
	Close() error
	ApplyMigrations(dir string) error

	CreateStudent(ctx context.Context, student *models.Student) error
	GetStudent(ctx context.Context, id int64) (*models.Student, error)
	GetStudentByEmail(ctx context.Context, email string) (*models.Student, error)

	CreateEvent(ctx context.Context, event *models.Event) error
	GetEvent(ctx context.Context, id int64) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.EventSummary, error)

	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistration(ctx context.Context, id int64) (*models.Registration, error)
	FindRegistration(ctx context.Context, studentID, eventID int64) (*models.Registration, error)

	UpsertAttendance(ctx context.Context, att *models.Attendance) error
	GetAttendance(ctx context.Context, registrationID int64) (*models.Attendance, error)
	UpsertFeedback(ctx context.Context, fb *models.Feedback) error
	GetFeedback(ctx context.Context, registrationID int64) (*models.Feedback, error)

	RegistrationsPerEvent(ctx context.Context) ([]models.EventRegistrations, error)
	AttendancePerEvent(ctx context.Context) ([]AttendanceStat, error)
	FeedbackPerEvent(ctx context.Context) ([]FeedbackStat, error)
	StudentAttendance(ctx context.Context, studentID int64) (*models.StudentActivity, error)
	TopActiveStudents(ctx context.Context, limit int) ([]models.StudentActivity, error)
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
	// IsUniqueViolation reports whether err came from a UNIQUE constraint
	IsUniqueViolation func(error) bool
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		logger.Debug.Printf("Applying migration: %s", file.Name())
		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

// WithTx runs fn inside a transaction, rolling back if fn fails.
func (s *BaseStore) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := s.DB.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *BaseStore) uniqueViolation(err error) bool {
	return s.IsUniqueViolation != nil && s.IsUniqueViolation(err)
}

func (s *BaseStore) CreateStudent(ctx context.Context, student *models.Student) error {
	query := s.Converter(`
		INSERT INTO students (name, email, college_id)
		VALUES (?, ?, ?)
		RETURNING id
	`)
	err := s.DB.GetContext(ctx, &student.ID, query, student.Name, student.Email, student.CollegeID)
	if err != nil {
		return fmt.Errorf("failed to create student: %w", err)
	}
	return nil
}

func (s *BaseStore) GetStudent(ctx context.Context, id int64) (*models.Student, error) {
	var student models.Student
	query := s.Converter(`
		SELECT id, name, email, college_id
		FROM students
		WHERE id = ?
	`)
	err := s.DB.GetContext(ctx, &student, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student: %w", err)
	}
	return &student, nil
}

func (s *BaseStore) GetStudentByEmail(ctx context.Context, email string) (*models.Student, error) {
	var student models.Student
	query := s.Converter(`
		SELECT id, name, email, college_id
		FROM students
		WHERE email = ?
	`)
	err := s.DB.GetContext(ctx, &student, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get student by email: %w", err)
	}
	return &student, nil
}

func (s *BaseStore) CreateEvent(ctx context.Context, event *models.Event) error {
	query := s.Converter(`
		INSERT INTO events (title, event_type, college_id, date)
		VALUES (?, ?, ?, ?)
		RETURNING id
	`)
	err := s.DB.GetContext(ctx, &event.ID, query, event.Title, event.EventType, event.CollegeID, event.Date)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *BaseStore) GetEvent(ctx context.Context, id int64) (*models.Event, error) {
	var event models.Event
	query := s.Converter(`
		SELECT id, title, event_type, college_id, date
		FROM events
		WHERE id = ?
	`)
	err := s.DB.GetContext(ctx, &event, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return &event, nil
}

func (s *BaseStore) ListEvents(ctx context.Context) ([]models.EventSummary, error) {
	events := []models.EventSummary{}
	err := s.DB.SelectContext(ctx, &events, `
		SELECT
			e.id,
			e.title,
			e.event_type,
			e.college_id,
			e.date,
			COUNT(r.id) AS registered
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id
		GROUP BY e.id, e.title, e.event_type, e.college_id, e.date
		ORDER BY e.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// CreateRegistration returns ErrAlreadyExists when the (student, event) pair is taken.
func (s *BaseStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	query := s.Converter(`
		INSERT INTO registrations (student_id, event_id)
		VALUES (?, ?)
		RETURNING id
	`)
	err := s.DB.GetContext(ctx, &reg.ID, query, reg.StudentID, reg.EventID)
	if err != nil && s.uniqueViolation(err) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (s *BaseStore) GetRegistration(ctx context.Context, id int64) (*models.Registration, error) {
	var reg models.Registration
	query := s.Converter(`
		SELECT id, student_id, event_id
		FROM registrations
		WHERE id = ?
	`)
	err := s.DB.GetContext(ctx, &reg, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return &reg, nil
}

func (s *BaseStore) FindRegistration(ctx context.Context, studentID, eventID int64) (*models.Registration, error) {
	var reg models.Registration
	query := s.Converter(`
		SELECT id, student_id, event_id
		FROM registrations
		WHERE student_id = ?
		AND event_id = ?
	`)
	err := s.DB.GetContext(ctx, &reg, query, studentID, eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find registration: %w", err)
	}
	return &reg, nil
}

func (s *BaseStore) registrationExists(ctx context.Context, tx *sqlx.Tx, id int64) error {
	var found int64
	err := tx.GetContext(ctx, &found, s.Converter(`SELECT id FROM registrations WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up registration %d: %w", id, err)
	}
	return nil
}

// UpsertAttendance returns ErrNotFound when the registration does not exist.
func (s *BaseStore) UpsertAttendance(ctx context.Context, att *models.Attendance) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.registrationExists(ctx, tx, att.RegistrationID); err != nil {
			return err
		}

		query := s.Converter(`
			INSERT INTO attendance (registration_id, present)
			VALUES (?, ?)
			ON CONFLICT (registration_id) DO UPDATE SET
			present = excluded.present
			RETURNING id, registration_id, present
		`)
		if err := tx.GetContext(ctx, att, query, att.RegistrationID, att.Present); err != nil {
			return fmt.Errorf("failed to upsert attendance: %w", err)
		}
		return nil
	})
}

func (s *BaseStore) GetAttendance(ctx context.Context, registrationID int64) (*models.Attendance, error) {
	var att models.Attendance
	query := s.Converter(`
		SELECT id, registration_id, present
		FROM attendance
		WHERE registration_id = ?
	`)
	err := s.DB.GetContext(ctx, &att, query, registrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	return &att, nil
}

// UpsertFeedback returns ErrNotFound when the registration does not exist.
func (s *BaseStore) UpsertFeedback(ctx context.Context, fb *models.Feedback) error {
	return s.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.registrationExists(ctx, tx, fb.RegistrationID); err != nil {
			return err
		}

		query := s.Converter(`
			INSERT INTO feedback (registration_id, rating, comment)
			VALUES (?, ?, ?)
			ON CONFLICT (registration_id) DO UPDATE SET
			rating = excluded.rating,
			comment = excluded.comment
			RETURNING id, registration_id, rating, comment
		`)
		if err := tx.GetContext(ctx, fb, query, fb.RegistrationID, fb.Rating, fb.Comment); err != nil {
			return fmt.Errorf("failed to upsert feedback: %w", err)
		}
		return nil
	})
}

func (s *BaseStore) GetFeedback(ctx context.Context, registrationID int64) (*models.Feedback, error) {
	var fb models.Feedback
	query := s.Converter(`
		SELECT id, registration_id, rating, comment
		FROM feedback
		WHERE registration_id = ?
	`)
	err := s.DB.GetContext(ctx, &fb, query, registrationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return &fb, nil
}

func (s *BaseStore) RegistrationsPerEvent(ctx context.Context) ([]models.EventRegistrations, error) {
	rows := []models.EventRegistrations{}
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT
			e.title AS event,
			COUNT(r.id) AS registrations
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id
		GROUP BY e.id, e.title
		ORDER BY COUNT(r.id) DESC, e.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch registrations per event: %w", err)
	}
	return rows, nil
}

func (s *BaseStore) AttendancePerEvent(ctx context.Context) ([]AttendanceStat, error) {
	rows := []AttendanceStat{}
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT
			e.id AS event_id,
			e.title AS event,
			COUNT(r.id) AS registrations,
			COALESCE(SUM(COALESCE(a.present, 0)), 0) AS present
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id
		LEFT JOIN attendance a ON a.registration_id = r.id
		GROUP BY e.id, e.title
		ORDER BY e.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attendance per event: %w", err)
	}
	return rows, nil
}

func (s *BaseStore) FeedbackPerEvent(ctx context.Context) ([]FeedbackStat, error) {
	rows := []FeedbackStat{}
	err := s.DB.SelectContext(ctx, &rows, `
		SELECT
			e.id AS event_id,
			e.title AS event,
			COUNT(f.id) AS ratings,
			COALESCE(SUM(f.rating), 0) AS rating_sum
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id
		LEFT JOIN feedback f ON f.registration_id = r.id
		GROUP BY e.id, e.title
		ORDER BY e.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feedback per event: %w", err)
	}
	return rows, nil
}

// StudentAttendance returns nil when the student has no present marks (or does not exist).
func (s *BaseStore) StudentAttendance(ctx context.Context, studentID int64) (*models.StudentActivity, error) {
	var activity models.StudentActivity
	query := s.Converter(`
		SELECT
			s.name AS student,
			COUNT(a.id) AS attended
		FROM students s
		JOIN registrations r ON r.student_id = s.id
		JOIN attendance a ON a.registration_id = r.id
		WHERE s.id = ?
		AND a.present = 1
		GROUP BY s.id, s.name
	`)
	err := s.DB.GetContext(ctx, &activity, query, studentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch student attendance: %w", err)
	}
	return &activity, nil
}

// TopActiveStudents breaks ties on student id.
func (s *BaseStore) TopActiveStudents(ctx context.Context, limit int) ([]models.StudentActivity, error) {
	rows := []models.StudentActivity{}
	query := s.Converter(`
		SELECT
			s.name AS student,
			COUNT(a.id) AS attended
		FROM students s
		JOIN registrations r ON r.student_id = s.id
		JOIN attendance a ON a.registration_id = r.id
		WHERE a.present = 1
		GROUP BY s.id, s.name
		ORDER BY COUNT(a.id) DESC, s.id ASC
		LIMIT ?
	`)
	err := s.DB.SelectContext(ctx, &rows, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch top active students: %w", err)
	}
	return rows, nil
}
