package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/shrimpsizemoose/campusevents/internal/metrics"
	"github.com/shrimpsizemoose/campusevents/internal/models"
	"github.com/shrimpsizemoose/campusevents/internal/reporting"
	"github.com/shrimpsizemoose/campusevents/internal/store"
)

const (
	MsgAlreadyRegistered    = "Student already registered for this event"
	MsgRegistrationNotFound = "Registration not found"
)

// ErrInvalidInput wraps request validation failures.
var ErrInvalidInput = errors.New("invalid input")

// Result is the JSON object returned by a command. Domain failures are
// reported inside it under "error" rather than as a Go error.
type Result map[string]interface{}

func errorResult(msg string) Result {
	return Result{"error": msg}
}

type Service struct {
	Config *Config
	Store  store.CampusStore
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	store, err := NewStore(store.DBConfig{
		DSN:           config.Database.DSN,
		MigrationsDir: config.Database.MigrationsDir,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	return New(config, store), nil
}

func New(config *Config, store store.CampusStore) *Service {
	return &Service{
		Config: config,
		Store:  store,
	}
}

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func (s *Service) CreateStudent(ctx context.Context, student *models.Student) (Result, error) {
	if err := student.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := s.Store.CreateStudent(ctx, student); err != nil {
		metrics.WritesTotal.WithLabelValues("student", "failed").Inc()
		return nil, err
	}
	metrics.WritesTotal.WithLabelValues("student", "created").Inc()

	return Result{
		"id":    student.ID,
		"name":  student.Name,
		"email": student.Email,
	}, nil
}

func (s *Service) CreateEvent(ctx context.Context, event *models.Event) (Result, error) {
	if err := event.Validate(); err != nil {
		return nil, invalid(err)
	}

	if err := s.Store.CreateEvent(ctx, event); err != nil {
		metrics.WritesTotal.WithLabelValues("event", "failed").Inc()
		return nil, err
	}
	metrics.WritesTotal.WithLabelValues("event", "created").Inc()

	return Result{
		"id":         event.ID,
		"title":      event.Title,
		"event_type": event.EventType,
	}, nil
}

func (s *Service) ListEvents(ctx context.Context) ([]models.EventSummary, error) {
	return s.Store.ListEvents(ctx)
}

// RegisterStudent relies on the (student_id, event_id) constraint to detect duplicates.
func (s *Service) RegisterStudent(ctx context.Context, studentID, eventID int64) (Result, error) {
	reg := &models.Registration{StudentID: studentID, EventID: eventID}
	if err := reg.Validate(); err != nil {
		return nil, invalid(err)
	}

	err := s.Store.CreateRegistration(ctx, reg)
	if errors.Is(err, store.ErrAlreadyExists) {
		metrics.WritesTotal.WithLabelValues("registration", "duplicate").Inc()
		logger.Debug.Printf("Duplicate registration student=%d event=%d", studentID, eventID)
		return errorResult(MsgAlreadyRegistered), nil
	}
	if err != nil {
		metrics.WritesTotal.WithLabelValues("registration", "failed").Inc()
		return nil, err
	}
	metrics.WritesTotal.WithLabelValues("registration", "created").Inc()

	return Result{
		"message":         "Student registered",
		"registration_id": reg.ID,
	}, nil
}

func (s *Service) MarkAttendance(ctx context.Context, registrationID int64, present int) (Result, error) {
	att := &models.Attendance{RegistrationID: registrationID, Present: present}
	if err := att.Validate(); err != nil {
		return nil, invalid(err)
	}

	err := s.Store.UpsertAttendance(ctx, att)
	if errors.Is(err, store.ErrNotFound) {
		metrics.WritesTotal.WithLabelValues("attendance", "not_found").Inc()
		return errorResult(MsgRegistrationNotFound), nil
	}
	if err != nil {
		metrics.WritesTotal.WithLabelValues("attendance", "failed").Inc()
		return nil, err
	}
	metrics.WritesTotal.WithLabelValues("attendance", "upserted").Inc()

	return Result{
		"message":       "Attendance marked",
		"attendance_id": att.ID,
		"present":       att.Present,
	}, nil
}

func (s *Service) SubmitFeedback(ctx context.Context, registrationID int64, rating int, comment *string) (Result, error) {
	fb := &models.Feedback{RegistrationID: registrationID, Rating: rating, Comment: comment}
	if err := fb.Validate(); err != nil {
		return nil, invalid(err)
	}

	err := s.Store.UpsertFeedback(ctx, fb)
	if errors.Is(err, store.ErrNotFound) {
		metrics.WritesTotal.WithLabelValues("feedback", "not_found").Inc()
		return errorResult(MsgRegistrationNotFound), nil
	}
	if err != nil {
		metrics.WritesTotal.WithLabelValues("feedback", "failed").Inc()
		return nil, err
	}
	metrics.WritesTotal.WithLabelValues("feedback", "upserted").Inc()

	return Result{
		"message":     "Feedback saved",
		"feedback_id": fb.ID,
		"rating":      fb.Rating,
	}, nil
}

func (s *Service) RegistrationsReport(ctx context.Context) ([]models.EventRegistrations, error) {
	return s.Store.RegistrationsPerEvent(ctx)
}

func (s *Service) AttendanceReport(ctx context.Context) ([]models.EventAttendance, error) {
	stats, err := s.Store.AttendancePerEvent(ctx)
	if err != nil {
		return nil, err
	}
	return reporting.Attendance(stats), nil
}

func (s *Service) FeedbackReport(ctx context.Context) ([]models.EventFeedback, error) {
	stats, err := s.Store.FeedbackPerEvent(ctx)
	if err != nil {
		return nil, err
	}
	return reporting.Feedback(stats), nil
}

// StudentParticipation falls back to the raw student id when nothing was
// attended, whether or not the student exists.
func (s *Service) StudentParticipation(ctx context.Context, studentID int64) (Result, error) {
	activity, err := s.Store.StudentAttendance(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if activity == nil {
		return Result{
			"student_id":      studentID,
			"attended_events": 0,
		}, nil
	}

	return Result{
		"student":         activity.Student,
		"attended_events": activity.Attended,
	}, nil
}

// TopActiveStudents uses the configured default when limit is nil. A zero
// limit yields an empty list.
func (s *Service) TopActiveStudents(ctx context.Context, limit *int) ([]models.StudentActivity, error) {
	n := s.defaultTopActive()
	if limit != nil {
		n = *limit
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative, got %d", ErrInvalidInput, n)
	}
	return s.Store.TopActiveStudents(ctx, n)
}

func (s *Service) defaultTopActive() int {
	if s.Config == nil || s.Config.Reports.TopActiveDefault <= 0 {
		return defaultTopActive
	}
	return s.Config.Reports.TopActiveDefault
}

func (s *Service) Close() error {
	if err := s.Store.Close(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}
