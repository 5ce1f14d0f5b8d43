package attendance

import (
	"github.com/pkg/errors"

	"github.com/trezcool/classbook/core"
)

var errManyScopes = errors.New("only one of group_id, teacher_id or student_id may be set")

// Scope narrows the records a query reads. It is one of All, ByGroup, ByTeacher or ByStudent.
type Scope interface {
	// Match reports whether rec (with its derived fields populated) is in the scope.
	Match(rec Record) bool
	String() string
}

type (
	All       struct{}
	ByGroup   struct{ GroupID string }
	ByTeacher struct{ TeacherID string }
	ByStudent struct{ StudentID string }
)

var (
	_ Scope = All{}
	_ Scope = ByGroup{}
	_ Scope = ByTeacher{}
	_ Scope = ByStudent{}
)

func (All) Match(Record) bool { return true }
func (All) String() string    { return "all" }

func (s ByGroup) Match(rec Record) bool { return rec.GroupID == s.GroupID }
func (s ByGroup) String() string        { return "group:" + s.GroupID }

func (s ByTeacher) Match(rec Record) bool { return rec.TeacherID == s.TeacherID }
func (s ByTeacher) String() string        { return "teacher:" + s.TeacherID }

func (s ByStudent) Match(rec Record) bool { return rec.StudentID == s.StudentID }
func (s ByStudent) String() string        { return "student:" + s.StudentID }

// ParseScope builds the Scope selected by at most one of its arguments.
// It returns a nil Scope when none is set, leaving the default to the caller.
func ParseScope(groupID, teacherID, studentID string) (Scope, error) {
	groupID = core.CleanString(groupID)
	teacherID = core.CleanString(teacherID)
	studentID = core.CleanString(studentID)

	var scopes []Scope
	if groupID != "" {
		scopes = append(scopes, ByGroup{GroupID: groupID})
	}
	if teacherID != "" {
		scopes = append(scopes, ByTeacher{TeacherID: teacherID})
	}
	if studentID != "" {
		scopes = append(scopes, ByStudent{StudentID: studentID})
	}

	switch len(scopes) {
	case 0:
		return nil, nil
	case 1:
		return scopes[0], nil
	default:
		return nil, core.NewValidationError(errManyScopes, core.FieldError{Field: "scope", Error: errManyScopes.Error()})
	}
}
