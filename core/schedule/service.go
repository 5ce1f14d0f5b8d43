package schedule

import (
	"context"
	"iter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("schedule not found")
	ErrOverlap  = errors.New("schedule overlaps an existing schedule of the same group or room")
	ErrInUse    = errors.New("schedule has attendance records")

	nowFunc = time.Now // mockable
)

// NewOverlapError reports the schedules a write collided with.
func NewOverlapError(conflicts []Schedule) error {
	return core.NewConflictError(ErrOverlap, conflicts)
}

// NewInUseError reports a schedule that cannot be deleted, or moved to another weekday or group,
// because attendance records reference it.
func NewInUseError() error {
	return core.NewConflictError(ErrInUse, nil)
}

type (
	Repository interface {
		// CreateSchedule checks overlaps and inserts atomically. It returns a NewOverlapError on conflict.
		CreateSchedule(ctx context.Context, sch Schedule) (Schedule, error)
		// UpdateSchedule checks overlaps and updates atomically. It returns a NewOverlapError on conflict,
		// and a NewInUseError when the weekday or group of a schedule with attendance records changes.
		UpdateSchedule(ctx context.Context, sch Schedule) (Schedule, error)
		GetSchedule(ctx context.Context, id string) (Schedule, error)
		// QuerySchedules applies AND operation on available QueryFilter fields.
		QuerySchedules(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error)
		// DeleteSchedule returns a NewInUseError while attendance records reference the schedule.
		DeleteSchedule(ctx context.Context, id string) error
	}

	Service interface {
		Create(ctx context.Context, ns NewSchedule) (Schedule, error)
		Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error)
		Get(ctx context.Context, id string) (Schedule, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error)
		ListForGroup(ctx context.Context, groupID string) ([]Schedule, error)
		ListForTeacher(ctx context.Context, teacherID string) ([]Schedule, error)
		Delete(ctx context.Context, id string) error
		ResolveOccurrences(ctx context.Context, id string, r core.DateRange) (iter.Seq[civil.Date], error)
		IsOccurringOn(ctx context.Context, id string, d civil.Date) (bool, error)
	}

	service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, validate *validator.Validate) Service {
	return &service{
		repo:     repo,
		validate: validate,
	}
}

func (svc *service) Create(ctx context.Context, ns NewSchedule) (Schedule, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}
	now := nowFunc().UTC()
	sch := ns.schedule()
	sch.CreatedAt = now
	sch.UpdatedAt = now

	sch, err := svc.repo.CreateSchedule(ctx, sch)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "creating schedule")
	}
	return sch, nil
}

func (svc *service) Update(ctx context.Context, id string, us UpdateSchedule) (Schedule, error) {
	orig, err := svc.Get(ctx, id)
	if err != nil {
		return Schedule{}, err
	}

	ns := us.merge(orig)
	if err = ns.Validate(svc.validate); err != nil {
		return Schedule{}, err
	}
	sch := ns.schedule()
	sch.ID = orig.ID
	sch.CreatedAt = orig.CreatedAt
	sch.UpdatedAt = nowFunc().UTC()

	sch, err = svc.repo.UpdateSchedule(ctx, sch)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "updating schedule")
	}
	return sch, nil
}

func (svc *service) Get(ctx context.Context, id string) (Schedule, error) {
	id = core.CleanString(id)
	if id == "" {
		return Schedule{}, ErrNotFound
	}
	sch, err := svc.repo.GetSchedule(ctx, id)
	if err != nil {
		return Schedule{}, errors.Wrap(err, "getting schedule")
	}
	return sch, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Schedule, error) {
	if filter != nil {
		filter.Clean()
	}
	if ordering == nil {
		ordering = DefaultOrdering
	}
	schedules, err := svc.repo.QuerySchedules(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying schedules")
	}
	return schedules, nil
}

func (svc *service) ListForGroup(ctx context.Context, groupID string) ([]Schedule, error) {
	return svc.Query(ctx, &QueryFilter{GroupID: groupID}, nil)
}

func (svc *service) ListForTeacher(ctx context.Context, teacherID string) ([]Schedule, error) {
	return svc.Query(ctx, &QueryFilter{TeacherID: teacherID}, nil)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	id = core.CleanString(id)
	if id == "" {
		return ErrNotFound
	}
	if err := svc.repo.DeleteSchedule(ctx, id); err != nil {
		return errors.Wrap(err, "deleting schedule")
	}
	return nil
}

func (svc *service) ResolveOccurrences(ctx context.Context, id string, r core.DateRange) (iter.Seq[civil.Date], error) {
	sch, err := svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return sch.Occurrences(r), nil
}

func (svc *service) IsOccurringOn(ctx context.Context, id string, d civil.Date) (bool, error) {
	sch, err := svc.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return sch.IsOccurringOn(d), nil
}
