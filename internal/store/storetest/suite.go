// Package storetest holds behaviour tests shared by every CampusStore dialect.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/campusevents/internal/models"
	"github.com/shrimpsizemoose/campusevents/internal/store"
)

// Factory returns an empty, migrated store. The caller owns cleanup through t.Cleanup.
type Factory func(t *testing.T) store.CampusStore

func Run(t *testing.T, newStore Factory) {
	t.Run("students", func(t *testing.T) { testStudents(t, newStore(t)) })
	t.Run("events", func(t *testing.T) { testEvents(t, newStore(t)) })
	t.Run("registrations", func(t *testing.T) { testRegistrations(t, newStore(t)) })
	t.Run("attendance upsert", func(t *testing.T) { testAttendance(t, newStore(t)) })
	t.Run("feedback upsert", func(t *testing.T) { testFeedback(t, newStore(t)) })
	t.Run("reports", func(t *testing.T) { testReports(t, newStore(t)) })
	t.Run("reports on empty store", func(t *testing.T) { testEmptyReports(t, newStore(t)) })
}

type fixture struct {
	students map[string]*models.Student
	events   map[string]*models.Event
}

func seed(t *testing.T, s store.CampusStore) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		students: map[string]*models.Student{},
		events:   map[string]*models.Event{},
	}
	for _, name := range []string{"alice", "bob", "carol"} {
		st := &models.Student{Name: name, Email: name + "@example.edu", CollegeID: 1}
		require.NoError(t, s.CreateStudent(ctx, st))
		f.students[name] = st
	}
	for _, title := range []string{"Hackathon", "Workshop", "Seminar"} {
		ev := &models.Event{Title: title, EventType: "tech", CollegeID: 1, Date: "2025-09-01"}
		require.NoError(t, s.CreateEvent(ctx, ev))
		f.events[title] = ev
	}
	return f
}

func register(t *testing.T, s store.CampusStore, student *models.Student, event *models.Event) *models.Registration {
	t.Helper()
	reg := &models.Registration{StudentID: student.ID, EventID: event.ID}
	require.NoError(t, s.CreateRegistration(context.Background(), reg))
	require.NotZero(t, reg.ID)
	return reg
}

func testStudents(t *testing.T, s store.CampusStore) {
	ctx := context.Background()

	student := &models.Student{Name: "Alice", Email: "alice@example.edu", CollegeID: 7}
	require.NoError(t, s.CreateStudent(ctx, student))
	assert.NotZero(t, student.ID)

	got, err := s.GetStudent(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, *student, *got)

	byEmail, err := s.GetStudentByEmail(ctx, "alice@example.edu")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, student.ID, byEmail.ID)

	dup := &models.Student{Name: "Other Alice", Email: "alice@example.edu", CollegeID: 7}
	assert.Error(t, s.CreateStudent(ctx, dup), "email must be unique")

	missing, err := s.GetStudent(ctx, student.ID+100)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func testEvents(t *testing.T, s store.CampusStore) {
	ctx := context.Background()

	event := &models.Event{Title: "Hackathon", EventType: "tech", CollegeID: 2, Date: "next friday"}
	require.NoError(t, s.CreateEvent(ctx, event))
	assert.NotZero(t, event.ID)

	got, err := s.GetEvent(ctx, event.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "next friday", got.Date)

	student := &models.Student{Name: "Bob", Email: "bob@example.edu", CollegeID: 2}
	require.NoError(t, s.CreateStudent(ctx, student))
	register(t, s, student, event)

	empty := &models.Event{Title: "Quiet Talk", EventType: "talk", CollegeID: 2, Date: "2025-01-01"}
	require.NoError(t, s.CreateEvent(ctx, empty))

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Hackathon", events[0].Title)
	assert.Equal(t, int64(1), events[0].Registered)
	assert.Equal(t, "Quiet Talk", events[1].Title)
	assert.Equal(t, int64(0), events[1].Registered)
}

func testRegistrations(t *testing.T, s store.CampusStore) {
	ctx := context.Background()
	f := seed(t, s)

	reg := register(t, s, f.students["alice"], f.events["Hackathon"])

	t.Run("duplicate pair", func(t *testing.T) {
		dup := &models.Registration{StudentID: f.students["alice"].ID, EventID: f.events["Hackathon"].ID}
		err := s.CreateRegistration(ctx, dup)
		assert.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("find by pair", func(t *testing.T) {
		got, err := s.FindRegistration(ctx, f.students["alice"].ID, f.events["Hackathon"].ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, reg.ID, got.ID)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := s.GetRegistration(ctx, reg.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, f.students["alice"].ID, got.StudentID)
	})

	t.Run("unknown student and event are accepted", func(t *testing.T) {
		reg := &models.Registration{StudentID: 9999, EventID: 7777}
		require.NoError(t, s.CreateRegistration(ctx, reg))
		assert.NotZero(t, reg.ID)

		got, err := s.FindRegistration(ctx, 9999, 7777)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, reg.ID, got.ID)
	})

	t.Run("only one row per pair", func(t *testing.T) {
		rows, err := s.RegistrationsPerEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Hackathon", rows[0].Event)
		assert.Equal(t, int64(1), rows[0].Registrations)
	})
}

func testAttendance(t *testing.T, s store.CampusStore) {
	ctx := context.Background()
	f := seed(t, s)
	reg := register(t, s, f.students["alice"], f.events["Hackathon"])

	first := &models.Attendance{RegistrationID: reg.ID, Present: 1}
	require.NoError(t, s.UpsertAttendance(ctx, first))
	assert.NotZero(t, first.ID)
	assert.Equal(t, 1, first.Present)

	second := &models.Attendance{RegistrationID: reg.ID, Present: 0}
	require.NoError(t, s.UpsertAttendance(ctx, second))
	assert.Equal(t, first.ID, second.ID, "upsert must keep a single row")
	assert.Equal(t, 0, second.Present)

	got, err := s.GetAttendance(ctx, reg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0, got.Present)

	err = s.UpsertAttendance(ctx, &models.Attendance{RegistrationID: reg.ID + 100, Present: 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testFeedback(t *testing.T, s store.CampusStore) {
	ctx := context.Background()
	f := seed(t, s)
	reg := register(t, s, f.students["bob"], f.events["Workshop"])

	comment := "too long"
	first := &models.Feedback{RegistrationID: reg.ID, Rating: 2, Comment: &comment}
	require.NoError(t, s.UpsertFeedback(ctx, first))
	assert.NotZero(t, first.ID)

	second := &models.Feedback{RegistrationID: reg.ID, Rating: 4}
	require.NoError(t, s.UpsertFeedback(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetFeedback(ctx, reg.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 4, got.Rating)
	assert.Nil(t, got.Comment, "comment is overwritten, not merged")

	err = s.UpsertFeedback(ctx, &models.Feedback{RegistrationID: reg.ID + 100, Rating: 3})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testReports(t *testing.T, s store.CampusStore) {
	ctx := context.Background()
	f := seed(t, s)

	// Hackathon: alice present, bob absent, carol unmarked
	// Workshop: alice present
	// Seminar: nobody
	hAlice := register(t, s, f.students["alice"], f.events["Hackathon"])
	hBob := register(t, s, f.students["bob"], f.events["Hackathon"])
	register(t, s, f.students["carol"], f.events["Hackathon"])
	wAlice := register(t, s, f.students["alice"], f.events["Workshop"])

	require.NoError(t, s.UpsertAttendance(ctx, &models.Attendance{RegistrationID: hAlice.ID, Present: 1}))
	require.NoError(t, s.UpsertAttendance(ctx, &models.Attendance{RegistrationID: hBob.ID, Present: 0}))
	require.NoError(t, s.UpsertAttendance(ctx, &models.Attendance{RegistrationID: wAlice.ID, Present: 1}))

	require.NoError(t, s.UpsertFeedback(ctx, &models.Feedback{RegistrationID: hAlice.ID, Rating: 5}))
	require.NoError(t, s.UpsertFeedback(ctx, &models.Feedback{RegistrationID: hBob.ID, Rating: 2}))

	t.Run("registrations per event", func(t *testing.T) {
		rows, err := s.RegistrationsPerEvent(ctx)
		require.NoError(t, err)
		assert.Equal(t, []models.EventRegistrations{
			{Event: "Hackathon", Registrations: 3},
			{Event: "Workshop", Registrations: 1},
			{Event: "Seminar", Registrations: 0},
		}, rows)
	})

	t.Run("attendance per event", func(t *testing.T) {
		rows, err := s.AttendancePerEvent(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, store.AttendanceStat{EventID: f.events["Hackathon"].ID, Event: "Hackathon", Registrations: 3, Present: 1}, rows[0])
		assert.Equal(t, store.AttendanceStat{EventID: f.events["Workshop"].ID, Event: "Workshop", Registrations: 1, Present: 1}, rows[1])
		assert.Equal(t, store.AttendanceStat{EventID: f.events["Seminar"].ID, Event: "Seminar", Registrations: 0, Present: 0}, rows[2])
	})

	t.Run("feedback per event", func(t *testing.T) {
		rows, err := s.FeedbackPerEvent(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, int64(2), rows[0].Ratings)
		assert.Equal(t, int64(7), rows[0].RatingSum)
		assert.Equal(t, int64(0), rows[1].Ratings)
		assert.Equal(t, int64(0), rows[2].Ratings)
	})

	t.Run("student attendance", func(t *testing.T) {
		got, err := s.StudentAttendance(ctx, f.students["alice"].ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, models.StudentActivity{Student: "alice", Attended: 2}, *got)

		none, err := s.StudentAttendance(ctx, f.students["bob"].ID)
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("top active students", func(t *testing.T) {
		rows, err := s.TopActiveStudents(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, []models.StudentActivity{{Student: "alice", Attended: 2}}, rows)

		require.NoError(t, s.UpsertAttendance(ctx, &models.Attendance{RegistrationID: hBob.ID, Present: 1}))
		rows, err = s.TopActiveStudents(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		assert.Equal(t, "alice", rows[0].Student)
	})
}

func testEmptyReports(t *testing.T, s store.CampusStore) {
	ctx := context.Background()

	regs, err := s.RegistrationsPerEvent(ctx)
	require.NoError(t, err)
	assert.Empty(t, regs)

	top, err := s.TopActiveStudents(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, top)

	events, err := s.ListEvents(ctx)
	require.NoError(t, err)
	assert.NotNil(t, events)
	assert.Empty(t, events)
}
