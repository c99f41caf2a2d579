package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/campusevents/internal/models"
	"github.com/shrimpsizemoose/campusevents/internal/store"
	"github.com/shrimpsizemoose/campusevents/internal/store/sqlite"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := sqlite.NewSQLiteStore(":memory:", "../../migrations")
	require.NoError(t, err, "Failed to create store")
	t.Cleanup(func() { s.Close() })

	cfg := &Config{}
	cfg.Reports.TopActiveDefault = 3
	return New(cfg, s)
}

func mustStudent(t *testing.T, svc *Service, name string) int64 {
	t.Helper()
	res, err := svc.CreateStudent(context.Background(), &models.Student{
		Name:      name,
		Email:     name + "@example.edu",
		CollegeID: 1,
	})
	require.NoError(t, err)
	return res["id"].(int64)
}

func mustEvent(t *testing.T, svc *Service, title string) int64 {
	t.Helper()
	res, err := svc.CreateEvent(context.Background(), &models.Event{
		Title:     title,
		EventType: "workshop",
		CollegeID: 1,
		Date:      "2025-10-01",
	})
	require.NoError(t, err)
	return res["id"].(int64)
}

func mustRegister(t *testing.T, svc *Service, studentID, eventID int64) int64 {
	t.Helper()
	res, err := svc.RegisterStudent(context.Background(), studentID, eventID)
	require.NoError(t, err)
	require.NotContains(t, res, "error")
	return res["registration_id"].(int64)
}

func TestCreateStudent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.CreateStudent(ctx, &models.Student{Name: "A", Email: "a@example.edu", CollegeID: 1})
	require.NoError(t, err)
	assert.Equal(t, "A", res["name"])
	assert.Equal(t, "a@example.edu", res["email"])
	assert.NotZero(t, res["id"])

	t.Run("same email fails the second time", func(t *testing.T) {
		_, err := svc.CreateStudent(ctx, &models.Student{Name: "A2", Email: "a@example.edu", CollegeID: 2})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("invalid email is rejected before storage", func(t *testing.T) {
		_, err := svc.CreateStudent(ctx, &models.Student{Name: "B", Email: "not-an-email"})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCreateEvent(t *testing.T) {
	svc := newTestService(t)

	res, err := svc.CreateEvent(context.Background(), &models.Event{
		Title:     "Hackathon",
		EventType: "tech",
		CollegeID: 3,
		Date:      "whenever",
	})
	require.NoError(t, err)
	assert.Equal(t, Result{"id": res["id"], "title": "Hackathon", "event_type": "tech"}, res)

	_, err = svc.CreateEvent(context.Background(), &models.Event{EventType: "tech"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRegisterStudent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	studentID := mustStudent(t, svc, "alice")
	eventID := mustEvent(t, svc, "Hackathon")

	first, err := svc.RegisterStudent(ctx, studentID, eventID)
	require.NoError(t, err)
	assert.Equal(t, "Student registered", first["message"])
	assert.NotZero(t, first["registration_id"])

	second, err := svc.RegisterStudent(ctx, studentID, eventID)
	require.NoError(t, err)
	assert.Equal(t, Result{"error": MsgAlreadyRegistered}, second)

	report, err := svc.RegistrationsReport(ctx)
	require.NoError(t, err)
	require.Len(t, report, 1)
	assert.Equal(t, int64(1), report[0].Registrations)
}

func TestRegisterUnknownStudentAndEvent(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	res, err := svc.RegisterStudent(ctx, 42, 77)
	require.NoError(t, err)
	assert.Equal(t, Result{"message": "Student registered", "registration_id": int64(1)}, res)

	again, err := svc.RegisterStudent(ctx, 42, 77)
	require.NoError(t, err)
	assert.Equal(t, Result{"error": MsgAlreadyRegistered}, again)
}

func TestMarkAttendance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	regID := mustRegister(t, svc, mustStudent(t, svc, "alice"), mustEvent(t, svc, "Hackathon"))

	first, err := svc.MarkAttendance(ctx, regID, 1)
	require.NoError(t, err)
	assert.Equal(t, "Attendance marked", first["message"])
	assert.Equal(t, 1, first["present"])

	second, err := svc.MarkAttendance(ctx, regID, 0)
	require.NoError(t, err)
	assert.Equal(t, first["attendance_id"], second["attendance_id"])
	assert.Equal(t, 0, second["present"])

	stored, err := svc.Store.GetAttendance(ctx, regID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 0, stored.Present)

	t.Run("unknown registration", func(t *testing.T) {
		res, err := svc.MarkAttendance(ctx, regID+1, 1)
		require.NoError(t, err)
		assert.Equal(t, Result{"error": MsgRegistrationNotFound}, res)
	})

	t.Run("present outside 0/1", func(t *testing.T) {
		_, err := svc.MarkAttendance(ctx, regID, 7)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestSubmitFeedback(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	regID := mustRegister(t, svc, mustStudent(t, svc, "alice"), mustEvent(t, svc, "Hackathon"))

	comment := "loved it"
	first, err := svc.SubmitFeedback(ctx, regID, 5, &comment)
	require.NoError(t, err)
	assert.Equal(t, "Feedback saved", first["message"])
	assert.Equal(t, 5, first["rating"])

	second, err := svc.SubmitFeedback(ctx, regID, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, first["feedback_id"], second["feedback_id"])
	assert.Equal(t, 3, second["rating"])

	stored, err := svc.Store.GetFeedback(ctx, regID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, 3, stored.Rating)
	assert.Nil(t, stored.Comment)

	res, err := svc.SubmitFeedback(ctx, regID+1, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, Result{"error": MsgRegistrationNotFound}, res)

	_, err = svc.SubmitFeedback(ctx, regID, 6, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestReports(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := mustStudent(t, svc, "A")
	b := mustStudent(t, svc, "B")
	c := mustStudent(t, svc, "C")
	x := mustEvent(t, svc, "X")
	y := mustEvent(t, svc, "Y")
	mustEvent(t, svc, "Empty")

	ax := mustRegister(t, svc, a, x)
	bx := mustRegister(t, svc, b, x)
	ay := mustRegister(t, svc, a, y)
	cy := mustRegister(t, svc, c, y)

	for _, mark := range []struct {
		reg     int64
		present int
	}{{ax, 1}, {bx, 0}, {ay, 1}, {cy, 1}} {
		_, err := svc.MarkAttendance(ctx, mark.reg, mark.present)
		require.NoError(t, err)
	}
	_, err := svc.SubmitFeedback(ctx, ax, 4, nil)
	require.NoError(t, err)
	_, err = svc.SubmitFeedback(ctx, bx, 5, nil)
	require.NoError(t, err)

	t.Run("registrations totals match registration rows", func(t *testing.T) {
		rows, err := svc.RegistrationsReport(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		var total int64
		for _, r := range rows {
			total += r.Registrations
		}
		assert.Equal(t, int64(4), total)
		assert.Equal(t, "Empty", rows[2].Event)
		assert.Equal(t, int64(0), rows[2].Registrations)
	})

	t.Run("attendance percentage", func(t *testing.T) {
		rows, err := svc.AttendanceReport(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.EventAttendance{
			{Event: "X", AttendancePct: 50},
			{Event: "Y", AttendancePct: 100},
			{Event: "Empty", AttendancePct: 0},
		}, rows)
	})

	t.Run("feedback average", func(t *testing.T) {
		rows, err := svc.FeedbackReport(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		require.NotNil(t, rows[0].AvgRating)
		assert.Equal(t, 4.5, *rows[0].AvgRating)
		assert.Nil(t, rows[1].AvgRating, "registrations without feedback yield null")
		assert.Nil(t, rows[2].AvgRating)
	})

	t.Run("student participation", func(t *testing.T) {
		res, err := svc.StudentParticipation(ctx, a)
		require.NoError(t, err)
		assert.Equal(t, Result{"student": "A", "attended_events": int64(2)}, res)

		res, err = svc.StudentParticipation(ctx, b)
		require.NoError(t, err)
		assert.Equal(t, Result{"student_id": b, "attended_events": 0}, res)

		res, err = svc.StudentParticipation(ctx, 424242)
		require.NoError(t, err)
		assert.Equal(t, Result{"student_id": int64(424242), "attended_events": 0}, res)
	})

	t.Run("top active students", func(t *testing.T) {
		rows, err := svc.TopActiveStudents(ctx, intPtr(2))
		require.NoError(t, err)
		assert.Equal(t, []models.StudentActivity{
			{Student: "A", Attended: 2},
			{Student: "C", Attended: 1},
		}, rows)

		rows, err = svc.TopActiveStudents(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, rows, 2, "only two students attended anything")

		rows, err = svc.TopActiveStudents(ctx, intPtr(0))
		require.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)

		_, err = svc.TopActiveStudents(ctx, intPtr(-1))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestParticipationAttendedAndNone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	a := mustStudent(t, svc, "A")
	b := mustStudent(t, svc, "B")
	x := mustEvent(t, svc, "X")
	reg := mustRegister(t, svc, a, x)
	_, err := svc.MarkAttendance(ctx, reg, 1)
	require.NoError(t, err)

	res, err := svc.StudentParticipation(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "A", res["student"])
	assert.Equal(t, int64(1), res["attended_events"])

	res, err = svc.StudentParticipation(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, b, res["student_id"])
	assert.Equal(t, 0, res["attended_events"])
}

type MockStore struct {
	mock.Mock
	store.CampusStore
}

func (m *MockStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	args := m.Called(reg.StudentID, reg.EventID)
	return args.Error(0)
}

func (m *MockStore) UpsertAttendance(ctx context.Context, att *models.Attendance) error {
	args := m.Called(att.RegistrationID, att.Present)
	return args.Error(0)
}

func (m *MockStore) AttendancePerEvent(ctx context.Context) ([]store.AttendanceStat, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.AttendanceStat), args.Error(1)
}

func (m *MockStore) TopActiveStudents(ctx context.Context, limit int) ([]models.StudentActivity, error) {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.StudentActivity), args.Error(1)
}

func TestServiceStorageFailures(t *testing.T) {
	ms := new(MockStore)
	svc := New(&Config{}, ms)
	ctx := context.Background()
	boom := errors.New("connection reset")

	t.Run("registration storage failure propagates", func(t *testing.T) {
		ms.On("CreateRegistration", int64(1), int64(2)).Return(boom).Once()
		_, err := svc.RegisterStudent(ctx, 1, 2)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("attendance storage failure propagates", func(t *testing.T) {
		ms.On("UpsertAttendance", int64(5), 1).Return(boom).Once()
		_, err := svc.MarkAttendance(ctx, 5, 1)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("attendance report failure propagates", func(t *testing.T) {
		ms.On("AttendancePerEvent").Return(nil, boom).Once()
		_, err := svc.AttendanceReport(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("default top-active limit without config", func(t *testing.T) {
		ms.On("TopActiveStudents", 3).Return([]models.StudentActivity{}, nil).Once()
		rows, err := svc.TopActiveStudents(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	ms.AssertExpectations(t)
}

func intPtr(n int) *int {
	return &n
}
