package sqlxrepos

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/schedule"
)

const scheduleSelect = `
SELECT s.id, s.subject_id, s.group_id, s.room_id, sub.teacher_id, s.weekday,
       to_char(s.start_time, 'HH24:MI') AS start_time, to_char(s.end_time, 'HH24:MI') AS end_time,
       s.created_at, s.updated_at
FROM schedules s
LEFT JOIN subjects sub ON sub.id = s.subject_id`

var scheduleOrderColumns = map[string]string{
	"weekday":    "array_position(ARRAY['monday','tuesday','wednesday','thursday','friday','saturday','sunday'], s.weekday)",
	"start_time": "s.start_time",
	"group_id":   "s.group_id",
	"room_id":    "s.room_id",
	"created_at": "s.created_at",
}

type scheduleRow struct {
	ID        string      `db:"id"`
	SubjectID string      `db:"subject_id"`
	GroupID   string      `db:"group_id"`
	RoomID    string      `db:"room_id"`
	TeacherID null.String `db:"teacher_id"`
	Weekday   string      `db:"weekday"`
	StartTime string      `db:"start_time"`
	EndTime   string      `db:"end_time"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt time.Time   `db:"updated_at"`
}

func (row scheduleRow) schedule() schedule.Schedule {
	start, _ := schedule.ParseClock(row.StartTime)
	end, _ := schedule.ParseClock(row.EndTime)
	return schedule.Schedule{
		ID:        row.ID,
		SubjectID: row.SubjectID,
		GroupID:   row.GroupID,
		RoomID:    row.RoomID,
		TeacherID: row.TeacherID.String,
		Weekday:   schedule.Weekday(row.Weekday),
		StartTime: start,
		EndTime:   end,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func schedulesFromRows(rows []scheduleRow) []schedule.Schedule {
	schedules := make([]schedule.Schedule, 0, len(rows))
	for _, row := range rows {
		schedules = append(schedules, row.schedule())
	}
	return schedules
}

type scheduleRepository struct {
	db *sqlx.DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *sqlx.DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

func (repo *scheduleRepository) getSchedule(ctx context.Context, q sqlx.QueryerContext, id string) (schedule.Schedule, error) {
	var row scheduleRow
	if err := sqlx.GetContext(ctx, q, &row, scheduleSelect+" WHERE s.id = $1", id); err != nil {
		return schedule.Schedule{}, trapNoRowsErr(err, schedule.ErrNotFound, "getting schedule")
	}
	return row.schedule(), nil
}

// lockSlots serializes writers of the group and room slots of sch until the transaction ends.
func (repo *scheduleRepository) lockSlots(ctx context.Context, tx *sqlx.Tx, sch schedule.Schedule) error {
	keys := []string{"schedule:group:" + sch.GroupID, "schedule:room:" + sch.RoomID}
	sort.Strings(keys) // constant lock order
	for _, key := range keys {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", key); err != nil {
			return storageErr(err, "locking schedule slots")
		}
	}
	return nil
}

// checkOverlaps returns a NewOverlapError if sch overlaps any other schedule of its group or room.
func (repo *scheduleRepository) checkOverlaps(ctx context.Context, tx *sqlx.Tx, sch schedule.Schedule) error {
	q := scheduleSelect + `
WHERE s.weekday = $1 AND (s.group_id = $2 OR s.room_id = $3) AND s.id <> $4
  AND s.start_time < $5::time AND $6::time < s.end_time
ORDER BY s.start_time, s.id`

	var rows []scheduleRow
	err := tx.SelectContext(ctx, &rows, q,
		string(sch.Weekday), sch.GroupID, sch.RoomID, sch.ID, sch.EndTime.String(), sch.StartTime.String())
	if err != nil {
		return storageErr(err, "checking schedule overlaps")
	}
	if len(rows) > 0 {
		return schedule.NewOverlapError(schedulesFromRows(rows))
	}
	return nil
}

// checkMove returns a NewInUseError if sch changes the weekday or group of a schedule with attendance records.
func (repo *scheduleRepository) checkMove(ctx context.Context, tx *sqlx.Tx, sch schedule.Schedule) error {
	var orig struct {
		Weekday    string `db:"weekday"`
		GroupID    string `db:"group_id"`
		HasRecords bool   `db:"has_records"`
	}
	q := `
SELECT s.weekday, s.group_id,
       EXISTS (SELECT 1 FROM attendance_records a WHERE a.schedule_id = s.id) AS has_records
FROM schedules s
WHERE s.id = $1
FOR UPDATE`
	if err := tx.GetContext(ctx, &orig, q, sch.ID); err != nil {
		return trapNoRowsErr(err, schedule.ErrNotFound, "getting schedule")
	}
	moved := orig.Weekday != string(sch.Weekday) || orig.GroupID != sch.GroupID
	if moved && orig.HasRecords {
		return schedule.NewInUseError()
	}
	return nil
}

func (repo *scheduleRepository) CreateSchedule(ctx context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Schedule{}, storageErr(err, "beginning transaction")
	}
	defer rollback(tx)

	if err = repo.lockSlots(ctx, tx, sch); err != nil {
		return schedule.Schedule{}, err
	}
	if err = repo.checkOverlaps(ctx, tx, sch); err != nil {
		return schedule.Schedule{}, err
	}

	sch.ID = uuid.New().String()
	q := `
INSERT INTO schedules (id, subject_id, group_id, room_id, weekday, start_time, end_time, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6::time, $7::time, $8, $9)`
	_, err = tx.ExecContext(ctx, q,
		sch.ID, sch.SubjectID, sch.GroupID, sch.RoomID, string(sch.Weekday),
		sch.StartTime.String(), sch.EndTime.String(), sch.CreatedAt.UTC(), sch.UpdatedAt.UTC())
	if err != nil {
		return schedule.Schedule{}, storageErr(err, "inserting schedule")
	}

	created, err := repo.getSchedule(ctx, tx, sch.ID)
	if err != nil {
		return schedule.Schedule{}, err
	}
	if err = tx.Commit(); err != nil {
		return schedule.Schedule{}, storageErr(err, "committing schedule")
	}
	return created, nil
}

func (repo *scheduleRepository) UpdateSchedule(ctx context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return schedule.Schedule{}, storageErr(err, "beginning transaction")
	}
	defer rollback(tx)

	if err = repo.lockSlots(ctx, tx, sch); err != nil {
		return schedule.Schedule{}, err
	}
	if err = repo.checkMove(ctx, tx, sch); err != nil {
		return schedule.Schedule{}, err
	}
	if err = repo.checkOverlaps(ctx, tx, sch); err != nil {
		return schedule.Schedule{}, err
	}

	q := `
UPDATE schedules
SET subject_id = $2, group_id = $3, room_id = $4, weekday = $5, start_time = $6::time, end_time = $7::time, updated_at = $8
WHERE id = $1`
	res, err := tx.ExecContext(ctx, q,
		sch.ID, sch.SubjectID, sch.GroupID, sch.RoomID, string(sch.Weekday),
		sch.StartTime.String(), sch.EndTime.String(), sch.UpdatedAt.UTC())
	if err != nil {
		return schedule.Schedule{}, storageErr(err, "updating schedule")
	}
	if n, err := res.RowsAffected(); err != nil {
		return schedule.Schedule{}, storageErr(err, "updating schedule")
	} else if n == 0 {
		return schedule.Schedule{}, schedule.ErrNotFound
	}

	updated, err := repo.getSchedule(ctx, tx, sch.ID)
	if err != nil {
		return schedule.Schedule{}, err
	}
	if err = tx.Commit(); err != nil {
		return schedule.Schedule{}, storageErr(err, "committing schedule")
	}
	return updated, nil
}

func (repo *scheduleRepository) GetSchedule(ctx context.Context, id string) (schedule.Schedule, error) {
	return repo.getSchedule(ctx, repo.db, id)
}

func (repo *scheduleRepository) QuerySchedules(
	ctx context.Context,
	filter *schedule.QueryFilter,
	ordering []core.DBOrdering,
) ([]schedule.Schedule, error) {
	var where []string
	var args []interface{}
	addCond := func(cond string, arg interface{}) {
		args = append(args, arg)
		where = append(where, strings.Replace(cond, "?", "$"+strconv.Itoa(len(args)), 1))
	}

	if filter != nil {
		if filter.GroupID != "" {
			addCond("s.group_id = ?", filter.GroupID)
		}
		if filter.TeacherID != "" {
			addCond("sub.teacher_id = ?", filter.TeacherID)
		}
		if filter.RoomID != "" {
			addCond("s.room_id = ?", filter.RoomID)
		}
		if filter.SubjectID != "" {
			addCond("s.subject_id = ?", filter.SubjectID)
		}
		if filter.Weekday != "" {
			addCond("s.weekday = ?", string(filter.Weekday))
		}
	}

	q := scheduleSelect
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}

	orderList := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		if column, ok := scheduleOrderColumns[ord.Field]; ok {
			orderList = append(orderList, core.DBOrdering{Field: column, Ascending: ord.Ascending}.String())
		}
	}
	orderList = append(orderList, "s.id ASC")
	q += "\nORDER BY " + strings.Join(orderList, ", ")

	var rows []scheduleRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, storageErr(err, "querying schedules")
	}
	return schedulesFromRows(rows), nil
}

func (repo *scheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM schedules WHERE id = $1", id)
	if err != nil {
		if pqErrorCode(err) == pqForeignKeyViolation {
			return schedule.NewInUseError()
		}
		return storageErr(err, "deleting schedule")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr(err, "deleting schedule")
	}
	if n == 0 {
		return schedule.ErrNotFound
	}
	return nil
}
