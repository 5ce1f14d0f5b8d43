package inmemdb

import (
	"context"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
)

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) InsertRecords(_ context.Context, recs ...attendance.Record) ([]attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// check everything before writing anything
	var recorded []string
	batch := make(map[attendance.Key]struct{}, len(recs))
	for _, rec := range recs {
		key := rec.Key()
		_, exists := repo.db.recordIDs[key]
		_, dup := batch[key]
		if exists || dup {
			recorded = append(recorded, rec.StudentID)
		}
		batch[key] = struct{}{}
	}
	if len(recorded) > 0 {
		sort.Strings(recorded)
		return nil, attendance.NewAlreadyRecordedError(recorded)
	}

	inserted := make([]attendance.Record, 0, len(recs))
	for _, rec := range recs {
		rec.ID = uuid.New().String()
		rec.GroupID, rec.TeacherID = "", ""
		repo.db.records[rec.ID] = &rec
		repo.db.recordIDs[rec.Key()] = rec.ID

		r, _ := repo.db.record(rec.ID)
		inserted = append(inserted, r)
	}
	return inserted, nil
}

func (repo *attendanceRepository) GetRecord(_ context.Context, id string) (attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if rec, ok := repo.db.record(id); ok {
		return rec, nil
	}
	return attendance.Record{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) UpdateRecord(_ context.Context, rec attendance.Record) (attendance.Record, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	// only the correctable fields are saved
	origRec, ok := repo.db.records[rec.ID]
	if !ok {
		return attendance.Record{}, attendance.ErrNotFound
	}
	origRec.Attended = rec.Attended
	origRec.Note = rec.Note
	origRec.RegisteredBy = rec.RegisteredBy
	origRec.UpdatedAt = rec.UpdatedAt

	updated, _ := repo.db.record(rec.ID)
	return updated, nil
}

func (repo *attendanceRepository) DeleteRecord(_ context.Context, id string) (bool, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	rec, ok := repo.db.records[id]
	if !ok {
		return false, nil
	}
	delete(repo.db.recordIDs, rec.Key())
	delete(repo.db.records, id)
	return true, nil
}

func (repo *attendanceRepository) query(match func(attendance.Record) bool) []attendance.Record {
	recs := make([]attendance.Record, 0)
	for id := range repo.db.records {
		if rec, _ := repo.db.record(id); match(rec) {
			recs = append(recs, rec)
		}
	}
	sort.Slice(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		if a.ScheduleID != b.ScheduleID {
			return a.ScheduleID < b.ScheduleID
		}
		return a.StudentID < b.StudentID
	})
	return recs
}

func (repo *attendanceRepository) QueryByScheduleAndDate(
	_ context.Context,
	scheduleID string,
	date civil.Date,
) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(rec attendance.Record) bool {
		return rec.ScheduleID == scheduleID && rec.Date == date
	}), nil
}

func (repo *attendanceRepository) QueryByDateRange(
	_ context.Context,
	scope attendance.Scope,
	r core.DateRange,
) ([]attendance.Record, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	return repo.query(func(rec attendance.Record) bool {
		return r.Contains(rec.Date) && scope.Match(rec)
	}), nil
}
