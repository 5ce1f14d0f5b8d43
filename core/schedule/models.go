package schedule

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
)

var (
	errInvalidWeekday = errors.New("invalid weekday")
	errInvalidClock   = errors.New("invalid time, expected HH:MM")
)

// Weekday is a day of the week, independent of any calendar date.
type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var (
	Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

	timeWeekdays = map[Weekday]time.Weekday{
		Monday:    time.Monday,
		Tuesday:   time.Tuesday,
		Wednesday: time.Wednesday,
		Thursday:  time.Thursday,
		Friday:    time.Friday,
		Saturday:  time.Saturday,
		Sunday:    time.Sunday,
	}
)

func ParseWeekday(s string) (Weekday, error) {
	w := Weekday(core.CleanString(s, true /* lower */))
	if !w.Valid() {
		return "", errInvalidWeekday
	}
	return w, nil
}

// WeekdayOf returns the weekday of a calendar date.
func WeekdayOf(d civil.Date) Weekday {
	return Weekdays[(int(d.In(time.UTC).Weekday())+6)%7]
}

func (w Weekday) Valid() bool {
	_, ok := timeWeekdays[w]
	return ok
}

func (w Weekday) Time() time.Weekday {
	return timeWeekdays[w]
}

// index is the position of w in the week, monday first.
func (w Weekday) index() int {
	return (int(w.Time()) + 6) % 7
}

// Clock is a time of day, in minutes since midnight.
type Clock int

func NewClock(hour, min int) Clock {
	return Clock(hour*60 + min)
}

// ParseClock parses a 24h "HH:MM" time of day.
func ParseClock(s string) (Clock, error) {
	s = core.CleanString(s)
	if len(s) != len("15:04") {
		return 0, errInvalidClock
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, errInvalidClock
	}
	return NewClock(t.Hour(), t.Minute()), nil
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

func (c Clock) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Clock) UnmarshalText(data []byte) error {
	clock, err := ParseClock(string(data))
	if err != nil {
		return err
	}
	*c = clock
	return nil
}

// Schedule is a recurring weekly time slot binding a subject, a group and a room.
type Schedule struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	GroupID   string    `json:"group_id"`
	RoomID    string    `json:"room_id"`
	TeacherID string    `json:"teacher_id,omitempty"` // derived from the subject, read-only
	Weekday   Weekday   `json:"weekday"`
	StartTime Clock     `json:"start_time"`
	EndTime   Clock     `json:"end_time"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Overlaps reports whether both time slots fall on the same weekday and their [start, end) windows intersect.
// Back-to-back slots do not overlap.
func (s Schedule) Overlaps(other Schedule) bool {
	return s.Weekday == other.Weekday && s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// ConflictsWith reports whether other is a different schedule of the same group or room that overlaps s.
func (s Schedule) ConflictsWith(other Schedule) bool {
	if s.ID != "" && s.ID == other.ID {
		return false
	}
	return (s.GroupID == other.GroupID || s.RoomID == other.RoomID) && s.Overlaps(other)
}

// IsOccurringOn reports whether the schedule happens on the given date.
func (s Schedule) IsOccurringOn(d civil.Date) bool {
	return WeekdayOf(d) == s.Weekday
}

// Occurrences yields, in ascending order, every date of r the schedule happens on.
// The sequence is lazy and can be ranged over any number of times.
func (s Schedule) Occurrences(r core.DateRange) iter.Seq[civil.Date] {
	return func(yield func(civil.Date) bool) {
		if r.IsEmpty() || !s.Weekday.Valid() {
			return
		}
		offset := (s.Weekday.index() - WeekdayOf(r.From).index() + 7) % 7
		for d := r.From.AddDays(offset); !d.After(r.To); d = d.AddDays(7) {
			if !yield(d) {
				return
			}
		}
	}
}

// NewSchedule contains information needed to create a new Schedule.
type NewSchedule struct {
	SubjectID string `json:"subject_id" validate:"required"`
	GroupID   string `json:"group_id" validate:"required"`
	RoomID    string `json:"room_id" validate:"required"`
	Weekday   string `json:"weekday" validate:"required,weekday"`
	StartTime string `json:"start_time" validate:"required,clock"`
	EndTime   string `json:"end_time" validate:"required,clock"`
}

func (ns *NewSchedule) Validate(validate *validator.Validate) error {
	ns.SubjectID = core.CleanString(ns.SubjectID)
	ns.GroupID = core.CleanString(ns.GroupID)
	ns.RoomID = core.CleanString(ns.RoomID)
	ns.Weekday = core.CleanString(ns.Weekday, true /* lower */)
	ns.StartTime = core.CleanString(ns.StartTime)
	ns.EndTime = core.CleanString(ns.EndTime)
	return validate.Struct(ns)
}

// schedule must only be called on a validated NewSchedule.
func (ns NewSchedule) schedule() Schedule {
	start, _ := ParseClock(ns.StartTime)
	end, _ := ParseClock(ns.EndTime)
	return Schedule{
		SubjectID: ns.SubjectID,
		GroupID:   ns.GroupID,
		RoomID:    ns.RoomID,
		Weekday:   Weekday(ns.Weekday),
		StartTime: start,
		EndTime:   end,
	}
}

// UpdateSchedule defines what information may be provided to modify an existing Schedule.
// Blank fields keep their current value.
type UpdateSchedule struct {
	SubjectID string `json:"subject_id"`
	GroupID   string `json:"group_id"`
	RoomID    string `json:"room_id"`
	Weekday   string `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// merge fills the blank fields of us with orig's values.
func (us UpdateSchedule) merge(orig Schedule) NewSchedule {
	pick := func(val, origVal string) string {
		if val = core.CleanString(val); val != "" {
			return val
		}
		return origVal
	}
	return NewSchedule{
		SubjectID: pick(us.SubjectID, orig.SubjectID),
		GroupID:   pick(us.GroupID, orig.GroupID),
		RoomID:    pick(us.RoomID, orig.RoomID),
		Weekday:   pick(us.Weekday, string(orig.Weekday)),
		StartTime: pick(us.StartTime, orig.StartTime.String()),
		EndTime:   pick(us.EndTime, orig.EndTime.String()),
	}
}

type QueryFilter struct {
	GroupID   string  `query:"group_id"`
	TeacherID string  `query:"teacher_id"`
	RoomID    string  `query:"room_id"`
	SubjectID string  `query:"subject_id"`
	Weekday   Weekday `query:"weekday"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.GroupID == "" && qf.TeacherID == "" && qf.RoomID == "" && qf.SubjectID == "" && qf.Weekday == ""
}

func (qf *QueryFilter) Clean() {
	qf.GroupID = core.CleanString(qf.GroupID)
	qf.TeacherID = core.CleanString(qf.TeacherID)
	qf.RoomID = core.CleanString(qf.RoomID)
	qf.SubjectID = core.CleanString(qf.SubjectID)
	qf.Weekday = Weekday(core.CleanString(string(qf.Weekday), true /* lower */))
}

// Match reports whether sch satisfies every set field of the filter.
func (qf *QueryFilter) Match(sch Schedule) bool {
	if qf == nil {
		return true
	}
	return (qf.GroupID == "" || sch.GroupID == qf.GroupID) &&
		(qf.TeacherID == "" || sch.TeacherID == qf.TeacherID) &&
		(qf.RoomID == "" || sch.RoomID == qf.RoomID) &&
		(qf.SubjectID == "" || sch.SubjectID == qf.SubjectID) &&
		(qf.Weekday == "" || sch.Weekday == qf.Weekday)
}

// OrderingFields are the fields schedules can be ordered by.
var OrderingFields = map[string]string{
	"weekday":    "weekday",
	"start_time": "start_time",
	"group_id":   "group_id",
	"room_id":    "room_id",
	"created_at": "created_at",
}

// DefaultOrdering sorts a week: weekday (monday first) then start time.
var DefaultOrdering = []core.DBOrdering{{Field: "weekday", Ascending: true}, {Field: "start_time", Ascending: true}}

// Less compares two schedules on the given orderings, falling back to their ids.
func Less(a, b Schedule, ordering []core.DBOrdering) bool {
	for _, ord := range ordering {
		var cmp int
		switch ord.Field {
		case "weekday":
			cmp = a.Weekday.index() - b.Weekday.index()
		case "start_time":
			cmp = int(a.StartTime - b.StartTime)
		case "group_id":
			cmp = strings.Compare(a.GroupID, b.GroupID)
		case "room_id":
			cmp = strings.Compare(a.RoomID, b.RoomID)
		case "created_at":
			cmp = a.CreatedAt.Compare(b.CreatedAt)
		}
		if cmp != 0 {
			if ord.Ascending {
				return cmp < 0
			}
			return cmp > 0
		}
	}
	return a.ID < b.ID
}

