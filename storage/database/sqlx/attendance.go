package sqlxrepos

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/schedule"
)

const recordSelect = `
SELECT r.id, r.schedule_id, r.student_id, r.date, r.attended, r.note, r.registered_by, r.registered_at, r.updated_at,
       s.group_id, sub.teacher_id
FROM attendance_records r
JOIN schedules s ON s.id = r.schedule_id
LEFT JOIN subjects sub ON sub.id = s.subject_id`

const recordOrder = "\nORDER BY r.date, r.schedule_id, r.student_id"

type recordRow struct {
	ID           string      `db:"id"`
	ScheduleID   string      `db:"schedule_id"`
	StudentID    string      `db:"student_id"`
	Date         time.Time   `db:"date"`
	Attended     bool        `db:"attended"`
	Note         null.String `db:"note"`
	RegisteredBy null.String `db:"registered_by"`
	RegisteredAt time.Time   `db:"registered_at"`
	UpdatedAt    null.Time   `db:"updated_at"`
	GroupID      string      `db:"group_id"`
	TeacherID    null.String `db:"teacher_id"`
}

func (row recordRow) record() attendance.Record {
	rec := attendance.Record{
		ID:           row.ID,
		ScheduleID:   row.ScheduleID,
		StudentID:    row.StudentID,
		Date:         civil.DateOf(row.Date),
		Attended:     row.Attended,
		Note:         row.Note.String,
		RegisteredBy: row.RegisteredBy.String,
		RegisteredAt: row.RegisteredAt.UTC(),
		GroupID:      row.GroupID,
		TeacherID:    row.TeacherID.String,
	}
	if row.UpdatedAt.Valid {
		rec.UpdatedAt = row.UpdatedAt.Time.UTC()
	}
	return rec
}

func recordsFromRows(rows []recordRow) []attendance.Record {
	recs := make([]attendance.Record, 0, len(rows))
	for _, row := range rows {
		recs = append(recs, row.record())
	}
	return recs
}

type attendanceRepository struct {
	db *sqlx.DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) getRecord(ctx context.Context, q sqlx.QueryerContext, id string) (attendance.Record, error) {
	var row recordRow
	if err := sqlx.GetContext(ctx, q, &row, recordSelect+" WHERE r.id = $1", id); err != nil {
		return attendance.Record{}, trapNoRowsErr(err, attendance.ErrNotFound, "getting attendance record")
	}
	return row.record(), nil
}

func (repo *attendanceRepository) InsertRecords(ctx context.Context, recs ...attendance.Record) ([]attendance.Record, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, storageErr(err, "beginning transaction")
	}
	defer rollback(tx)

	q := `
INSERT INTO attendance_records (id, schedule_id, student_id, date, attended, note, registered_by, registered_at)
VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8)`

	ids := make([]string, 0, len(recs))
	for _, rec := range recs {
		rec.ID = uuid.New().String()
		_, err = tx.ExecContext(ctx, q,
			rec.ID, rec.ScheduleID, rec.StudentID, rec.Date.String(), rec.Attended,
			null.NewString(rec.Note, rec.Note != ""),
			null.NewString(rec.RegisteredBy, rec.RegisteredBy != ""),
			rec.RegisteredAt.UTC())
		if err != nil {
			switch pqErrorCode(err) {
			case pqUniqueViolation:
				return nil, attendance.NewAlreadyRecordedError([]string{rec.StudentID})
			case pqForeignKeyViolation:
				return nil, schedule.ErrNotFound
			}
			return nil, storageErr(err, "inserting attendance record")
		}
		ids = append(ids, rec.ID)
	}

	var rows []recordRow
	if err = tx.SelectContext(ctx, &rows, recordSelect+" WHERE r.id = ANY($1)", pq.Array(ids)); err != nil {
		return nil, storageErr(err, "reading inserted attendance records")
	}
	if err = tx.Commit(); err != nil {
		return nil, storageErr(err, "committing attendance records")
	}

	// keep input order
	byID := make(map[string]attendance.Record, len(rows))
	for _, row := range rows {
		byID[row.ID] = row.record()
	}
	inserted := make([]attendance.Record, 0, len(ids))
	for _, id := range ids {
		inserted = append(inserted, byID[id])
	}
	return inserted, nil
}

func (repo *attendanceRepository) GetRecord(ctx context.Context, id string) (attendance.Record, error) {
	return repo.getRecord(ctx, repo.db, id)
}

func (repo *attendanceRepository) UpdateRecord(ctx context.Context, rec attendance.Record) (attendance.Record, error) {
	q := `
UPDATE attendance_records
SET attended = $2, note = $3, registered_by = $4, updated_at = $5
WHERE id = $1`
	res, err := repo.db.ExecContext(ctx, q,
		rec.ID, rec.Attended,
		null.NewString(rec.Note, rec.Note != ""),
		null.NewString(rec.RegisteredBy, rec.RegisteredBy != ""),
		null.NewTime(rec.UpdatedAt.UTC(), !rec.UpdatedAt.IsZero()))
	if err != nil {
		return attendance.Record{}, storageErr(err, "updating attendance record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return attendance.Record{}, storageErr(err, "updating attendance record")
	}
	if n == 0 {
		return attendance.Record{}, attendance.ErrNotFound
	}
	return repo.getRecord(ctx, repo.db, rec.ID)
}

func (repo *attendanceRepository) DeleteRecord(ctx context.Context, id string) (bool, error) {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM attendance_records WHERE id = $1", id)
	if err != nil {
		return false, storageErr(err, "deleting attendance record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr(err, "deleting attendance record")
	}
	return n > 0, nil
}

func (repo *attendanceRepository) QueryByScheduleAndDate(
	ctx context.Context,
	scheduleID string,
	date civil.Date,
) ([]attendance.Record, error) {
	var rows []recordRow
	q := recordSelect + " WHERE r.schedule_id = $1 AND r.date = $2::date" + recordOrder
	if err := repo.db.SelectContext(ctx, &rows, q, scheduleID, date.String()); err != nil {
		return nil, storageErr(err, "querying attendance by schedule and date")
	}
	return recordsFromRows(rows), nil
}

func (repo *attendanceRepository) QueryByDateRange(
	ctx context.Context,
	scope attendance.Scope,
	r core.DateRange,
) ([]attendance.Record, error) {
	q := recordSelect + " WHERE r.date BETWEEN $1::date AND $2::date"
	args := []interface{}{r.From.String(), r.To.String()}

	switch s := scope.(type) {
	case attendance.ByGroup:
		q += " AND s.group_id = $3"
		args = append(args, s.GroupID)
	case attendance.ByTeacher:
		q += " AND sub.teacher_id = $3"
		args = append(args, s.TeacherID)
	case attendance.ByStudent:
		q += " AND r.student_id = $3"
		args = append(args, s.StudentID)
	}

	var rows []recordRow
	if err := repo.db.SelectContext(ctx, &rows, q+recordOrder, args...); err != nil {
		return nil, storageErr(err, "querying attendance by date range")
	}
	return recordsFromRows(rows), nil
}
