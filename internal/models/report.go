package models

type EventRegistrations struct {
	Event         string `db:"event" json:"event"`
	Registrations int64  `db:"registrations" json:"registrations"`
}

type EventAttendance struct {
	Event         string  `json:"event"`
	AttendancePct float64 `json:"attendance_pct"`
}

// AvgRating is nil when nobody left feedback for the event.
type EventFeedback struct {
	Event     string   `json:"event"`
	AvgRating *float64 `json:"avg_rating"`
}

type StudentActivity struct {
	Student  string `db:"student" json:"student"`
	Attended int64  `db:"attended" json:"attended"`
}
