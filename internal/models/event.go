package models

// Event.Date is kept verbatim, no calendar parsing.
type Event struct {
	ID        int64  `db:"id" json:"id"`
	Title     string `db:"title" json:"title" validate:"required"`
	EventType string `db:"event_type" json:"event_type"`
	CollegeID int64  `db:"college_id" json:"college_id"`
	Date      string `db:"date" json:"date"`
}

type EventSummary struct {
	Event
	Registered int64 `db:"registered" json:"registered"`
}

func (e *Event) Validate() error {
	return validate.Struct(e)
}
