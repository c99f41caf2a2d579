package models

type Registration struct {
	ID        int64 `db:"id" json:"id"`
	StudentID int64 `db:"student_id" json:"student_id" validate:"required,min=1"`
	EventID   int64 `db:"event_id" json:"event_id" validate:"required,min=1"`
}

type Attendance struct {
	ID             int64 `db:"id" json:"id"`
	RegistrationID int64 `db:"registration_id" json:"registration_id" validate:"required,min=1"`
	Present        int   `db:"present" json:"present" validate:"oneof=0 1"`
}

type Feedback struct {
	ID             int64   `db:"id" json:"id"`
	RegistrationID int64   `db:"registration_id" json:"registration_id" validate:"required,min=1"`
	Rating         int     `db:"rating" json:"rating" validate:"min=1,max=5"`
	Comment        *string `db:"comment" json:"comment"`
}

func (r *Registration) Validate() error {
	return validate.Struct(r)
}

func (a *Attendance) Validate() error {
	return validate.Struct(a)
}

func (f *Feedback) Validate() error {
	return validate.Struct(f)
}
