package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/schedule"
)

type scheduleRepository struct {
	db *DB
}

var _ schedule.Repository = (*scheduleRepository)(nil) // interface compliance check

func NewScheduleRepository(db *DB) schedule.Repository {
	return &scheduleRepository{db: db}
}

// conflicts returns the stored schedules sch would overlap with. The caller holds the lock.
func (repo *scheduleRepository) conflicts(sch schedule.Schedule) []schedule.Schedule {
	var conflicts []schedule.Schedule
	for id := range repo.db.schedules {
		other, _ := repo.db.schedule(id)
		if sch.ConflictsWith(other) {
			conflicts = append(conflicts, other)
		}
	}
	sort.Slice(conflicts, func(i, j int) bool {
		return schedule.Less(conflicts[i], conflicts[j], schedule.DefaultOrdering)
	})
	return conflicts
}

func (repo *scheduleRepository) CreateSchedule(_ context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if conflicts := repo.conflicts(sch); len(conflicts) > 0 {
		return schedule.Schedule{}, schedule.NewOverlapError(conflicts)
	}
	sch.ID = uuid.New().String()
	sch.TeacherID = ""
	repo.db.schedules[sch.ID] = &sch

	created, _ := repo.db.schedule(sch.ID)
	return created, nil
}

func (repo *scheduleRepository) UpdateSchedule(_ context.Context, sch schedule.Schedule) (schedule.Schedule, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	orig, ok := repo.db.schedules[sch.ID]
	if !ok {
		return schedule.Schedule{}, schedule.ErrNotFound
	}
	if (orig.Weekday != sch.Weekday || orig.GroupID != sch.GroupID) && repo.hasRecords(sch.ID) {
		return schedule.Schedule{}, schedule.NewInUseError()
	}
	if conflicts := repo.conflicts(sch); len(conflicts) > 0 {
		return schedule.Schedule{}, schedule.NewOverlapError(conflicts)
	}
	sch.TeacherID = ""
	repo.db.schedules[sch.ID] = &sch

	updated, _ := repo.db.schedule(sch.ID)
	return updated, nil
}

func (repo *scheduleRepository) GetSchedule(_ context.Context, id string) (schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sch, ok := repo.db.schedule(id); ok {
		return sch, nil
	}
	return schedule.Schedule{}, schedule.ErrNotFound
}

func (repo *scheduleRepository) QuerySchedules(
	_ context.Context,
	filter *schedule.QueryFilter,
	ordering []core.DBOrdering,
) ([]schedule.Schedule, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	schedules := make([]schedule.Schedule, 0)
	for id := range repo.db.schedules {
		if sch, _ := repo.db.schedule(id); filter.Match(sch) {
			schedules = append(schedules, sch)
		}
	}
	sort.Slice(schedules, func(i, j int) bool { return schedule.Less(schedules[i], schedules[j], ordering) })
	return schedules, nil
}

func (repo *scheduleRepository) DeleteSchedule(_ context.Context, id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.schedules[id]; !ok {
		return schedule.ErrNotFound
	}
	if repo.hasRecords(id) {
		return schedule.NewInUseError()
	}
	delete(repo.db.schedules, id)
	return nil
}

func (repo *scheduleRepository) hasRecords(scheduleID string) bool {
	for _, rec := range repo.db.records {
		if rec.ScheduleID == scheduleID {
			return true
		}
	}
	return false
}
