package models

type Student struct {
	ID        int64  `db:"id" json:"id"`
	Name      string `db:"name" json:"name" validate:"required"`
	Email     string `db:"email" json:"email" validate:"required,email"`
	CollegeID int64  `db:"college_id" json:"college_id"`
}

func (s *Student) Validate() error {
	return validate.Struct(s)
}
