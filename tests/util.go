package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"

	"cloud.google.com/go/civil"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/roster"
	"github.com/trezcool/classbook/core/schedule"
	"github.com/trezcool/classbook/storage/database"
	"github.com/trezcool/classbook/storage/database/inmem"
)

// NewValidator returns a validator with every custom validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	return validate, translator
}

// Date parses a YYYY-MM-DD date or fails the test.
func Date(t testing.TB, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("Date(%q) failed: %v", s, err)
	}
	return d
}

func Range(t testing.TB, from, to string) core.DateRange {
	t.Helper()
	return core.NewDateRange(Date(t, from), Date(t, to))
}

func BoolPtr(b bool) *bool { return &b }

// Fixture is the whole schedule/attendance stack over an in-memory database.
type Fixture struct {
	DB         *inmemdb.DB
	Validate   *validator.Validate
	Translator ut.Translator
	Roster     roster.Provider
	Schedules  schedule.Service
	Attendance attendance.Service
	Reporter   *report.Reporter
}

func NewFixture() *Fixture {
	db := inmemdb.NewDB()
	validate, translator := NewValidator()
	rosterProvider := inmemdb.NewRosterProvider(db)
	schSvc := schedule.NewService(inmemdb.NewScheduleRepository(db), validate)
	attSvc := attendance.NewService(inmemdb.NewAttendanceRepository(db), schSvc, rosterProvider, validate)
	return &Fixture{
		DB:         db,
		Validate:   validate,
		Translator: translator,
		Roster:     rosterProvider,
		Schedules:  schSvc,
		Attendance: attSvc,
		Reporter:   report.NewReporter(attSvc, schSvc, rosterProvider),
	}
}

func CreateSchedule(
	t testing.TB,
	svc schedule.Service,
	subjectID, groupID, roomID string,
	weekday schedule.Weekday,
	start, end string,
) schedule.Schedule {
	t.Helper()
	sch, err := svc.Create(context.Background(), schedule.NewSchedule{
		SubjectID: subjectID,
		GroupID:   groupID,
		RoomID:    roomID,
		Weekday:   string(weekday),
		StartTime: start,
		EndTime:   end,
	})
	if err != nil {
		t.Fatalf("CreateSchedule() failed: %v", err)
	}
	return sch
}

// LogEntry is a message logged through a LoggerMock.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// LoggerMock is a core.Logger that keeps what it is given.
type LoggerMock struct {
	mutex   sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*LoggerMock)(nil)

func (l *LoggerMock) log(level, msg string, args []interface{}) {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *LoggerMock) Levels() []string {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	levels := make([]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		levels = append(levels, e.Level)
	}
	return levels
}

func (l *LoggerMock) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *LoggerMock) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *LoggerMock) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *LoggerMock) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *LoggerMock) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

// PrepareDB opens, migrates and empties the postgres database at TEST_DATABASE_URL.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := database.OpenURL(dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	ResetDB(t, db)
	return db
}

func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	for _, table := range []string{"attendance_records", "schedules", "group_students", "subjects"} {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Fatalf("ResetDB() failed: %v", err)
		}
	}
}

// SeedGroup enrolls students in a group of the postgres database.
func SeedGroup(t *testing.T, db *sqlx.DB, groupID string, studentIDs ...string) {
	t.Helper()
	for _, id := range studentIDs {
		if _, err := db.Exec("INSERT INTO group_students (group_id, student_id) VALUES ($1, $2)", groupID, id); err != nil {
			t.Fatalf("SeedGroup() failed: %v", err)
		}
	}
}

// SeedSubject binds a subject to a teacher in the postgres database.
func SeedSubject(t *testing.T, db *sqlx.DB, subjectID, teacherID string) {
	t.Helper()
	if _, err := db.Exec("INSERT INTO subjects (id, teacher_id) VALUES ($1, $2)", subjectID, teacherID); err != nil {
		t.Fatalf("SeedSubject() failed: %v", err)
	}
}
