package report_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/schedule"
	"github.com/trezcool/classbook/core/session"
	"github.com/trezcool/classbook/core/stats"
	"github.com/trezcool/classbook/tests"
)

var (
	admin   = session.New("admin1", session.RoleAdmin)
	teacher = session.New("teacher1", session.RoleTeacher)
	student = session.New("s1", session.RoleStudent)
)

func TestDefaultScope(t *testing.T) {
	tests := []struct {
		name string
		sess session.Session
		want attendance.Scope
	}{
		{name: "admin", sess: admin, want: attendance.All{}},
		{name: "teacher", sess: teacher, want: attendance.ByTeacher{TeacherID: "teacher1"}},
		{name: "student", sess: student, want: attendance.ByStudent{StudentID: "s1"}},
		{name: "admin teacher", sess: session.New("u1", session.RoleTeacher, session.RoleAdminOwner), want: attendance.All{}},
		{name: "checker", sess: session.New("c1", session.RoleChecker), want: attendance.All{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, report.DefaultScope(tt.sess))
		})
	}
}

// school: group G (s1, s2, s3) has math with teacher1 on Tuesdays, group H (s4) has bio with teacher2 on Fridays.
func seed(t *testing.T) (*testutil.Fixture, schedule.Schedule, schedule.Schedule) {
	ctx := context.Background()
	fx := testutil.NewFixture()
	fx.DB.SetSubjectTeacher("math", "teacher1")
	fx.DB.SetSubjectTeacher("bio", "teacher2")
	fx.DB.AddStudents("G", "s1", "s2", "s3")
	fx.DB.AddStudents("H", "s4")
	tue := testutil.CreateSchedule(t, fx.Schedules, "math", "G", "r1", schedule.Tuesday, "09:00", "10:00")
	fri := testutil.CreateSchedule(t, fx.Schedules, "bio", "H", "r2", schedule.Friday, "09:00", "10:00")

	bulk := func(sch schedule.Schedule, date string, attended map[string]bool) {
		br := attendance.BulkRequest{ScheduleID: sch.ID, Date: date}
		for id, ok := range attended {
			br.Registrations = append(br.Registrations, attendance.Registration{StudentID: id, Attended: testutil.BoolPtr(ok)})
		}
		_, err := fx.Attendance.RecordBulk(ctx, teacher, br)
		require.NoError(t, err)
	}
	bulk(tue, "2024-03-05", map[string]bool{"s1": true, "s2": true, "s3": false})
	bulk(tue, "2024-03-12", map[string]bool{"s1": true})
	bulk(fri, "2024-03-08", map[string]bool{"s4": false})
	return fx, tue, fri
}

func TestReporter_Daily(t *testing.T) {
	ctx := context.Background()
	fx, _, _ := seed(t)
	march := testutil.Range(t, "2024-03-01", "2024-03-31")

	days, err := fx.Reporter.Daily(ctx, admin, nil, march)
	require.NoError(t, err)
	require.Len(t, days, 3)

	assert.Equal(t, testutil.Date(t, "2024-03-12"), days[0].Date)
	assert.Equal(t, testutil.Date(t, "2024-03-08"), days[1].Date)
	assert.Equal(t, testutil.Date(t, "2024-03-05"), days[2].Date)

	assert.Equal(t, 3, days[2].Total)
	assert.Equal(t, 2, days[2].Present)
	assert.Equal(t, 1, days[2].Absent)
	assert.InDelta(t, 0.667, days[2].Rate, 0.001)
	assert.Len(t, days[2].Records, 3)
	assert.Equal(t, 0.0, days[1].Rate)

	// a teacher sees their schedules only
	days, err = fx.Reporter.Daily(ctx, teacher, nil, march)
	require.NoError(t, err)
	assert.Len(t, days, 2)

	// an explicit scope wins
	days, err = fx.Reporter.Daily(ctx, teacher, attendance.ByGroup{GroupID: "H"}, march)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, testutil.Date(t, "2024-03-08"), days[0].Date)

	days, err = fx.Reporter.Daily(ctx, admin, nil, testutil.Range(t, "2024-04-01", "2024-04-30"))
	require.NoError(t, err)
	assert.Empty(t, days)
}

func TestReporter_Ranking(t *testing.T) {
	ctx := context.Background()
	fx, _, _ := seed(t)
	march := testutil.Range(t, "2024-03-01", "2024-03-31")

	byGroup, err := fx.Reporter.Ranking(ctx, admin, stats.DimGroup, nil, march)
	require.NoError(t, err)
	assert.Equal(t, []stats.Statistic{
		{Scope: stats.DimGroup, EntityID: "G", Total: 4, Present: 3, Rate: 0.75},
		{Scope: stats.DimGroup, EntityID: "H", Total: 1, Present: 0, Rate: 0},
	}, byGroup)

	mine, err := fx.Reporter.Ranking(ctx, student, stats.DimStudent, nil, march)
	require.NoError(t, err)
	assert.Equal(t, []stats.Statistic{
		{Scope: stats.DimStudent, EntityID: "s1", Total: 2, Present: 2, Rate: 1},
	}, mine)

	byTeacher, err := fx.Reporter.Ranking(ctx, admin, stats.DimTeacher, nil, march)
	require.NoError(t, err)
	require.Len(t, byTeacher, 2)
	assert.Equal(t, "teacher1", byTeacher[0].EntityID)
	assert.Equal(t, "teacher2", byTeacher[1].EntityID)
}

func TestReporter_Coverage(t *testing.T) {
	ctx := context.Background()
	fx, tue, _ := seed(t)

	occurrences, err := fx.Reporter.Coverage(ctx, tue.ID, testutil.Range(t, "2024-03-01", "2024-03-20"))
	require.NoError(t, err)
	assert.Equal(t, []report.Occurrence{
		{Date: testutil.Date(t, "2024-03-19"), Recorded: 0, RosterSize: 3, Present: 0, Complete: false},
		{Date: testutil.Date(t, "2024-03-12"), Recorded: 1, RosterSize: 3, Present: 1, Complete: false},
		{Date: testutil.Date(t, "2024-03-05"), Recorded: 3, RosterSize: 3, Present: 2, Complete: true},
	}, occurrences)

	none, err := fx.Reporter.Coverage(ctx, tue.ID, testutil.Range(t, "2024-03-06", "2024-03-11"))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = fx.Reporter.Coverage(ctx, "lol", testutil.Range(t, "2024-03-01", "2024-03-31"))
	assert.True(t, core.IsNotFound(err))
}

func TestReporter_Coverage_emptyGroup(t *testing.T) {
	ctx := context.Background()
	fx := testutil.NewFixture()
	sch := testutil.CreateSchedule(t, fx.Schedules, "math", "empty", "r1", schedule.Monday, "09:00", "10:00")

	occurrences, err := fx.Reporter.Coverage(ctx, sch.ID, testutil.Range(t, "2024-01-01", "2024-01-01"))
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.False(t, occurrences[0].Complete, "an occurrence without roster is never complete")
}
