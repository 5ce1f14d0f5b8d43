// Package inmemdb implements the repositories in memory, for tests and local runs.
package inmemdb

import (
	"sort"
	"sync"

	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/schedule"
)

type (
	// DB holds every table behind one lock, so that writes spanning tables are atomic.
	DB struct {
		mutex sync.RWMutex

		schedules map[string]*schedule.Schedule
		records   map[string]*attendance.Record
		recordIDs map[attendance.Key]string // unique (schedule, student, date)

		// collaborator tables, read-only for the repositories
		subjects map[string]string              // subject id -> teacher id
		groups   map[string]map[string]struct{} // group id -> student ids
	}
)

func NewDB() *DB {
	return &DB{
		schedules: make(map[string]*schedule.Schedule),
		records:   make(map[string]*attendance.Record),
		recordIDs: make(map[attendance.Key]string),
		subjects:  make(map[string]string),
		groups:    make(map[string]map[string]struct{}),
	}
}

// SetSubjectTeacher binds a subject to the teacher giving it.
func (db *DB) SetSubjectTeacher(subjectID, teacherID string) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.subjects[subjectID] = teacherID
}

// AddStudents enrolls students in a group.
func (db *DB) AddStudents(groupID string, studentIDs ...string) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	members, ok := db.groups[groupID]
	if !ok {
		members = make(map[string]struct{}, len(studentIDs))
		db.groups[groupID] = members
	}
	for _, id := range studentIDs {
		members[id] = struct{}{}
	}
}

// RemoveStudents withdraws students from a group.
func (db *DB) RemoveStudents(groupID string, studentIDs ...string) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	for _, id := range studentIDs {
		delete(db.groups[groupID], id)
	}
}

// schedule returns a copy of a schedule with its teacher resolved. The caller holds the lock.
func (db *DB) schedule(id string) (schedule.Schedule, bool) {
	sch, ok := db.schedules[id]
	if !ok {
		return schedule.Schedule{}, false
	}
	s := *sch
	s.TeacherID = db.subjects[s.SubjectID]
	return s, true
}

// record returns a copy of a record with its derived fields populated. The caller holds the lock.
func (db *DB) record(id string) (attendance.Record, bool) {
	rec, ok := db.records[id]
	if !ok {
		return attendance.Record{}, false
	}
	r := *rec
	if sch, ok := db.schedule(r.ScheduleID); ok {
		r.GroupID = sch.GroupID
		r.TeacherID = sch.TeacherID
	}
	return r, true
}

func (db *DB) roster(groupID string) []string {
	members := make([]string, 0, len(db.groups[groupID]))
	for id := range db.groups[groupID] {
		members = append(members, id)
	}
	sort.Strings(members)
	return members
}
