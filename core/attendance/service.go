package attendance

import (
	"context"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/roster"
	"github.com/trezcool/classbook/core/schedule"
	"github.com/trezcool/classbook/core/session"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("attendance record not found")
	ErrAlreadyRecorded = errors.New("already recorded for this date")

	errNotOccurring = "schedule does not occur on this date"
	errNotMember    = "student is not a member of the group"
	errNotMembers   = "students are not members of the group: "

	nowFunc = time.Now // mockable
)

// NewAlreadyRecordedError reports the students whose attendance already exists.
func NewAlreadyRecordedError(studentIDs []string) error {
	return core.NewConflictError(ErrAlreadyRecorded, studentIDs)
}

type (
	Repository interface {
		// InsertRecords inserts all records or none.
		// It returns a NewAlreadyRecordedError if any (schedule, student, date) already exists.
		InsertRecords(ctx context.Context, recs ...Record) ([]Record, error)
		GetRecord(ctx context.Context, id string) (Record, error)
		UpdateRecord(ctx context.Context, rec Record) (Record, error)
		// DeleteRecord reports whether a record was deleted; a missing id is not an error.
		DeleteRecord(ctx context.Context, id string) (bool, error)
		QueryByScheduleAndDate(ctx context.Context, scheduleID string, date civil.Date) ([]Record, error)
		// QueryByDateRange returns the records of scope within r, ordered by date, schedule and student.
		QueryByDateRange(ctx context.Context, scope Scope, r core.DateRange) ([]Record, error)
	}

	// ScheduleFinder resolves the schedule records are taken against.
	ScheduleFinder interface {
		Get(ctx context.Context, id string) (schedule.Schedule, error)
	}

	Service interface {
		RecordSingle(ctx context.Context, sess session.Session, nr NewRecord) (Record, error)
		RecordBulk(ctx context.Context, sess session.Session, br BulkRequest) (BulkResult, error)
		// Template returns a BulkRequest marking the whole roster present.
		Template(ctx context.Context, scheduleID string, date civil.Date) (BulkRequest, error)
		Update(ctx context.Context, sess session.Session, id string, ur UpdateRecord) (Record, error)
		Delete(ctx context.Context, id string) (bool, error)
		Get(ctx context.Context, id string) (Record, error)
		QueryByScheduleAndDate(ctx context.Context, scheduleID string, date civil.Date) ([]Record, error)
		QueryByDateRange(ctx context.Context, scope Scope, r core.DateRange) ([]Record, error)
	}

	service struct {
		repo      Repository
		schedules ScheduleFinder
		roster    roster.Provider
		validate  *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, schedules ScheduleFinder, rosterProvider roster.Provider, validate *validator.Validate) Service {
	return &service{
		repo:      repo,
		schedules: schedules,
		roster:    rosterProvider,
		validate:  validate,
	}
}

// occurrence resolves the schedule and checks it happens on date.
func (svc *service) occurrence(ctx context.Context, scheduleID string, date civil.Date) (schedule.Schedule, error) {
	sch, err := svc.schedules.Get(ctx, scheduleID)
	if err != nil {
		return schedule.Schedule{}, errors.Wrap(err, "getting schedule")
	}
	if !sch.IsOccurringOn(date) {
		return schedule.Schedule{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: errNotOccurring})
	}
	return sch, nil
}

func (svc *service) groupRoster(ctx context.Context, groupID string) ([]string, error) {
	members, err := svc.roster.GroupRoster(ctx, groupID)
	if err != nil {
		return nil, errors.Wrap(err, "getting group roster")
	}
	return members, nil
}

func (svc *service) RecordSingle(ctx context.Context, sess session.Session, nr NewRecord) (Record, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	date, err := core.ParseDate("date", nr.Date)
	if err != nil {
		return Record{}, err
	}

	sch, err := svc.occurrence(ctx, nr.ScheduleID, date)
	if err != nil {
		return Record{}, err
	}
	members, err := svc.groupRoster(ctx, sch.GroupID)
	if err != nil {
		return Record{}, err
	}
	if !roster.Contains(members, nr.StudentID) {
		return Record{}, core.NewValidationError(nil, core.FieldError{Field: "student_id", Error: errNotMember})
	}

	rec := Record{
		ScheduleID:   sch.ID,
		StudentID:    nr.StudentID,
		Date:         date,
		Attended:     *nr.Attended,
		Note:         nr.Note,
		RegisteredBy: sess.UserID,
		RegisteredAt: nowFunc().UTC(),
		GroupID:      sch.GroupID,
		TeacherID:    sch.TeacherID,
	}
	recs, err := svc.repo.InsertRecords(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "inserting attendance record")
	}
	return recs[0], nil
}

func (svc *service) RecordBulk(ctx context.Context, sess session.Session, br BulkRequest) (BulkResult, error) {
	if err := br.Validate(svc.validate); err != nil {
		return BulkResult{}, err
	}
	date, err := core.ParseDate("date", br.Date)
	if err != nil {
		return BulkResult{}, err
	}

	sch, err := svc.occurrence(ctx, br.ScheduleID, date)
	if err != nil {
		return BulkResult{}, err
	}
	members, err := svc.groupRoster(ctx, sch.GroupID)
	if err != nil {
		return BulkResult{}, err
	}
	studentIDs := br.studentIDs()
	if outsiders := roster.Outsiders(members, studentIDs); len(outsiders) > 0 {
		msg := errNotMembers + strings.Join(outsiders, ", ")
		return BulkResult{}, core.NewValidationError(nil, core.FieldError{Field: "registrations", Error: msg})
	}

	// re-submissions go through Update
	recorded, err := svc.recordedStudents(ctx, sch.ID, date, studentIDs)
	if err != nil {
		return BulkResult{}, err
	}
	if len(recorded) > 0 {
		return BulkResult{}, NewAlreadyRecordedError(recorded)
	}

	now := nowFunc().UTC()
	recs := make([]Record, 0, len(br.Registrations))
	for _, reg := range br.Registrations {
		recs = append(recs, Record{
			ScheduleID:   sch.ID,
			StudentID:    reg.StudentID,
			Date:         date,
			Attended:     *reg.Attended,
			Note:         reg.Note,
			RegisteredBy: sess.UserID,
			RegisteredAt: now,
			GroupID:      sch.GroupID,
			TeacherID:    sch.TeacherID,
		})
	}

	recs, err = svc.repo.InsertRecords(ctx, recs...)
	if err != nil {
		if errors.Is(err, ErrAlreadyRecorded) {
			// lost a race against a concurrent registration; report who won it
			if recorded, rErr := svc.recordedStudents(ctx, sch.ID, date, studentIDs); rErr == nil && len(recorded) > 0 {
				return BulkResult{}, NewAlreadyRecordedError(recorded)
			}
		}
		return BulkResult{}, errors.Wrap(err, "inserting attendance records")
	}

	missing := roster.Missing(members, studentIDs)
	return BulkResult{
		Records:  recs,
		Missing:  missing,
		Complete: len(missing) == 0,
	}, nil
}

// recordedStudents returns the studentIDs that already have a record for the occurrence, sorted.
func (svc *service) recordedStudents(ctx context.Context, scheduleID string, date civil.Date, studentIDs []string) ([]string, error) {
	existing, err := svc.repo.QueryByScheduleAndDate(ctx, scheduleID, date)
	if err != nil {
		return nil, errors.Wrap(err, "querying existing attendance")
	}
	wanted := make(map[string]struct{}, len(studentIDs))
	for _, id := range studentIDs {
		wanted[id] = struct{}{}
	}
	var recorded []string
	for _, rec := range existing {
		if _, ok := wanted[rec.StudentID]; ok {
			recorded = append(recorded, rec.StudentID)
		}
	}
	sort.Strings(recorded)
	return recorded, nil
}

func (svc *service) Template(ctx context.Context, scheduleID string, date civil.Date) (BulkRequest, error) {
	sch, err := svc.occurrence(ctx, scheduleID, date)
	if err != nil {
		return BulkRequest{}, err
	}
	members, err := svc.groupRoster(ctx, sch.GroupID)
	if err != nil {
		return BulkRequest{}, err
	}

	regs := make([]Registration, 0, len(members))
	for _, studentID := range members {
		present := true
		regs = append(regs, Registration{StudentID: studentID, Attended: &present})
	}
	return BulkRequest{
		ScheduleID:    sch.ID,
		Date:          date.String(),
		Registrations: regs,
	}, nil
}

func (svc *service) Update(ctx context.Context, sess session.Session, id string, ur UpdateRecord) (Record, error) {
	if err := ur.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	rec, err := svc.Get(ctx, id)
	if err != nil {
		return Record{}, err
	}

	rec.Attended = *ur.Attended
	if ur.Note != nil {
		rec.Note = *ur.Note
	}
	if rec.RegisteredBy == "" {
		rec.RegisteredBy = sess.UserID
	}
	rec.UpdatedAt = nowFunc().UTC()

	rec, err = svc.repo.UpdateRecord(ctx, rec)
	if err != nil {
		return Record{}, errors.Wrap(err, "updating attendance record")
	}
	return rec, nil
}

func (svc *service) Delete(ctx context.Context, id string) (bool, error) {
	id = core.CleanString(id)
	if id == "" {
		return false, nil
	}
	deleted, err := svc.repo.DeleteRecord(ctx, id)
	if err != nil {
		return false, errors.Wrap(err, "deleting attendance record")
	}
	return deleted, nil
}

func (svc *service) Get(ctx context.Context, id string) (Record, error) {
	id = core.CleanString(id)
	if id == "" {
		return Record{}, ErrNotFound
	}
	rec, err := svc.repo.GetRecord(ctx, id)
	if err != nil {
		return Record{}, errors.Wrap(err, "getting attendance record")
	}
	return rec, nil
}

func (svc *service) QueryByScheduleAndDate(ctx context.Context, scheduleID string, date civil.Date) ([]Record, error) {
	recs, err := svc.repo.QueryByScheduleAndDate(ctx, core.CleanString(scheduleID), date)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance by schedule and date")
	}
	return recs, nil
}

func (svc *service) QueryByDateRange(ctx context.Context, scope Scope, r core.DateRange) ([]Record, error) {
	if r.IsEmpty() {
		return []Record{}, nil
	}
	if scope == nil {
		scope = All{}
	}
	recs, err := svc.repo.QueryByDateRange(ctx, scope, r)
	if err != nil {
		return nil, errors.Wrap(err, "querying attendance by date range")
	}
	return recs, nil
}
