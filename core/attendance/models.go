package attendance

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/classbook/core"
)

// Record is the presence (or absence) of one student at one occurrence of a schedule.
// (ScheduleID, StudentID, Date) is unique.
type Record struct {
	ID           string     `json:"id"`
	ScheduleID   string     `json:"schedule_id"`
	StudentID    string     `json:"student_id"`
	Date         civil.Date `json:"date"`
	Attended     bool       `json:"attended"`
	Note         string     `json:"note,omitempty"`
	RegisteredBy string     `json:"registered_by,omitempty"`
	RegisteredAt time.Time  `json:"registered_at"` // UTC
	UpdatedAt    time.Time  `json:"updated_at"`    // UTC; zero until corrected

	// derived from the schedule, read-only
	GroupID   string `json:"group_id,omitempty"`
	TeacherID string `json:"teacher_id,omitempty"`
}

// Key identifies the occurrence a record belongs to, and its student.
type Key struct {
	ScheduleID string
	StudentID  string
	Date       civil.Date
}

func (rec Record) Key() Key {
	return Key{ScheduleID: rec.ScheduleID, StudentID: rec.StudentID, Date: rec.Date}
}

// NewRecord contains information needed to record the attendance of a single student.
type NewRecord struct {
	ScheduleID string `json:"schedule_id" validate:"required"`
	StudentID  string `json:"student_id" validate:"required"`
	Date       string `json:"date" validate:"required,date"`
	Attended   *bool  `json:"attended" validate:"required"`
	Note       string `json:"note" validate:"max=500"`
}

func (nr *NewRecord) Validate(validate *validator.Validate) error {
	nr.ScheduleID = core.CleanString(nr.ScheduleID)
	nr.StudentID = core.CleanString(nr.StudentID)
	nr.Date = core.CleanString(nr.Date)
	nr.Note = core.CleanString(nr.Note)
	return validate.Struct(nr)
}

// Registration is one line of a BulkRequest.
type Registration struct {
	StudentID string `json:"student_id" validate:"required"`
	Attended  *bool  `json:"attended" validate:"required"`
	Note      string `json:"note,omitempty" validate:"max=500"`
}

// BulkRequest records the attendance of (part of) a group for one occurrence of a schedule.
type BulkRequest struct {
	ScheduleID    string         `json:"schedule_id" validate:"required"`
	Date          string         `json:"date" validate:"required,date"`
	Registrations []Registration `json:"registrations" validate:"required,min=1,dive"`
}

func (br *BulkRequest) Validate(validate *validator.Validate) error {
	br.ScheduleID = core.CleanString(br.ScheduleID)
	br.Date = core.CleanString(br.Date)
	for i := range br.Registrations {
		br.Registrations[i].StudentID = core.CleanString(br.Registrations[i].StudentID)
		br.Registrations[i].Note = core.CleanString(br.Registrations[i].Note)
	}
	return validate.Struct(br)
}

func (br BulkRequest) studentIDs() []string {
	ids := make([]string, 0, len(br.Registrations))
	for _, reg := range br.Registrations {
		ids = append(ids, reg.StudentID)
	}
	return ids
}

// BulkResult reports what a bulk registration wrote.
// Missing lists the roster members the request did not mention; Complete is true when there are none.
type BulkResult struct {
	Records  []Record `json:"records"`
	Missing  []string `json:"missing"`
	Complete bool     `json:"complete"`
}

// UpdateRecord is the explicit correction of an existing Record.
type UpdateRecord struct {
	Attended *bool   `json:"attended" validate:"required"`
	Note     *string `json:"note" validate:"omitempty,max=500"`
}

func (ur *UpdateRecord) Validate(validate *validator.Validate) error {
	if ur.Note != nil {
		note := core.CleanString(*ur.Note)
		ur.Note = &note
	}
	return validate.Struct(ur)
}
