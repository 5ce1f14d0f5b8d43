package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/classbook/apps/api/echo"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/schedule"
	"github.com/trezcool/classbook/tests"
)

func Test_home(t *testing.T) {
	app := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Classbook API!", rec.Body.String())
}

func Test_auth(t *testing.T) {
	app := setup(t)
	other := testConfig()
	other.Server.SecretKey = "lol"
	forged, err := GenerateToken(other, NewClaims(other, admin))
	require.NoError(t, err)

	tests := []httpTest{
		{name: "no token", path: "/v1/schedules", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "malformed token", path: "/v1/schedules", token: "lol", wantCode: http.StatusUnauthorized},
		{name: "wrong signature", path: "/v1/schedules", token: forged, wantCode: http.StatusUnauthorized},
		{name: "valid token", path: "/v1/schedules", token: app.token(t, student), wantCode: http.StatusOK, wantData: marshallList(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}
}

func Test_scheduleApi_create(t *testing.T) {
	app := setup(t)
	app.fx.DB.SetSubjectTeacher("math", "teacher1")
	existing := testutil.CreateSchedule(t, app.fx.Schedules, "math", "g1", "r1", schedule.Monday, "09:00", "10:00")
	token := app.token(t, admin)

	tests := []httpTest{
		{
			name: "required fields", method: http.MethodPost, path: "/v1/schedules", token: token,
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"subject_id": "this field is required",
				"group_id":   "this field is required",
				"room_id":    "this field is required",
				"weekday":    "this field is required",
				"start_time": "this field is required",
				"end_time":   "this field is required",
			}),
		},
		{
			name: "malformed values", method: http.MethodPost, path: "/v1/schedules", token: token,
			body: []byte(`{"subject_id": "bio", "group_id": "g2", "room_id": "r2", "weekday": "funday", "start_time": "9h", "end_time": "10:00"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"weekday":    "invalid weekday, expected one of monday, tuesday, wednesday, thursday, friday, saturday, sunday",
				"start_time": "invalid time, expected HH:MM",
			}),
		},
		{
			name: "start after end", method: http.MethodPost, path: "/v1/schedules", token: token,
			body:     []byte(`{"subject_id": "bio", "group_id": "g2", "room_id": "r2", "weekday": "monday", "start_time": "11:00", "end_time": "10:00"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"end_time": "start_time must be before end_time"}),
		},
		{
			name: "overlap", method: http.MethodPost, path: "/v1/schedules", token: token,
			body:     []byte(`{"subject_id": "bio", "group_id": "g1", "room_id": "r2", "weekday": "monday", "start_time": "09:30", "end_time": "10:30"}`),
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, map[string]interface{}{
				"error":   schedule.ErrOverlap.Error(),
				"details": []schedule.Schedule{existing},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}

	t.Run("created", func(t *testing.T) {
		rec := app.do(t, httpTest{
			method: http.MethodPost, path: "/v1/schedules", token: token,
			body:     []byte(`{"subject_id": "math", "group_id": "g1", "room_id": "r1", "weekday": "Monday", "start_time": "10:00", "end_time": "11:00"}`),
			wantCode: http.StatusCreated,
		})

		var created schedule.Schedule
		unmarshall(t, rec, &created)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, "teacher1", created.TeacherID)
		assert.Equal(t, schedule.Monday, created.Weekday)
		assert.Equal(t, schedule.NewClock(10, 0), created.StartTime)

		_, err := app.fx.Schedules.Get(context.Background(), created.ID)
		assert.NoError(t, err)
	})
}

func Test_scheduleApi_query(t *testing.T) {
	app := setup(t)
	wed := testutil.CreateSchedule(t, app.fx.Schedules, "math", "g1", "r1", schedule.Wednesday, "08:00", "09:00")
	monLate := testutil.CreateSchedule(t, app.fx.Schedules, "bio", "g1", "r1", schedule.Monday, "14:00", "15:00")
	monEarly := testutil.CreateSchedule(t, app.fx.Schedules, "math", "g2", "r2", schedule.Monday, "08:00", "09:00")
	token := app.token(t, teacher)

	tests := []httpTest{
		{name: "all", path: "/v1/schedules", token: token, wantCode: http.StatusOK, wantData: marshallList(t, monEarly, monLate, wed)},
		{name: "group_id", path: "/v1/schedules?group_id=g1", token: token, wantCode: http.StatusOK, wantData: marshallList(t, monLate, wed)},
		{name: "room_id", path: "/v1/schedules?room_id=r2", token: token, wantCode: http.StatusOK, wantData: marshallList(t, monEarly)},
		{name: "weekday", path: "/v1/schedules?weekday=Monday", token: token, wantCode: http.StatusOK, wantData: marshallList(t, monEarly, monLate)},
		{
			name: "ordering", path: "/v1/schedules?weekday=monday&ordering=-start_time", token: token,
			wantCode: http.StatusOK, wantData: marshallList(t, monLate, monEarly),
		},
		{
			name: "unknown ordering field is ignored", path: "/v1/schedules?ordering=lol", token: token,
			wantCode: http.StatusOK, wantData: marshallList(t, monEarly, monLate, wed),
		},
		{name: "no match", path: "/v1/schedules?group_id=lol", token: token, wantCode: http.StatusOK, wantData: marshallList(t)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}
}

func Test_scheduleApi_detail(t *testing.T) {
	app := setup(t)
	app.fx.DB.AddStudents("g1", "s1")
	sch := testutil.CreateSchedule(t, app.fx.Schedules, "math", "g1", "r1", schedule.Tuesday, "09:00", "10:00")
	unused := testutil.CreateSchedule(t, app.fx.Schedules, "math", "g1", "r1", schedule.Friday, "09:00", "10:00")
	token := app.token(t, admin)

	_, err := app.fx.Attendance.RecordSingle(context.Background(), teacher, attendance.NewRecord{
		ScheduleID: sch.ID, StudentID: "s1", Date: "2024-03-05", Attended: testutil.BoolPtr(true),
	})
	require.NoError(t, err)

	tests := []httpTest{
		{name: "retrieve", path: "/v1/schedules/" + sch.ID, token: token, wantCode: http.StatusOK, wantData: marshallObj(t, sch)},
		{name: "retrieve unknown", path: "/v1/schedules/lol", token: token, wantCode: http.StatusNotFound, wantData: marshallObj(t, errNotFound)},
		{
			name: "update invalid", method: http.MethodPut, path: "/v1/schedules/" + sch.ID, token: token,
			body:     []byte(`{"start_time": "10:30"}`),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"end_time": "start_time must be before end_time"}),
		},
		{
			name: "update overlap", method: http.MethodPut, path: "/v1/schedules/" + unused.ID, token: token,
			body:     []byte(`{"weekday": "tuesday", "start_time": "09:30"}`),
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, map[string]interface{}{
				"error":   schedule.ErrOverlap.Error(),
				"details": []schedule.Schedule{sch},
			}),
		},
		{
			name: "update moves schedule in use", method: http.MethodPut, path: "/v1/schedules/" + sch.ID, token: token,
			body:     []byte(`{"weekday": "wednesday"}`),
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: schedule.ErrInUse.Error()}),
		},
		{name: "update unknown", method: http.MethodPut, path: "/v1/schedules/lol", token: token, body: []byte(`{}`), wantCode: http.StatusNotFound},
		{
			name: "delete in use", method: http.MethodDelete, path: "/v1/schedules/" + sch.ID, token: token,
			wantCode: http.StatusConflict,
			wantData: marshallObj(t, httpErr{Error: schedule.ErrInUse.Error()}),
		},
		{name: "delete", method: http.MethodDelete, path: "/v1/schedules/" + unused.ID, token: token, wantCode: http.StatusNoContent},
		{name: "delete again", method: http.MethodDelete, path: "/v1/schedules/" + unused.ID, token: token, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}

	t.Run("update", func(t *testing.T) {
		rec := app.do(t, httpTest{
			method: http.MethodPut, path: "/v1/schedules/" + sch.ID, token: token,
			body:     []byte(`{"room_id": "r9", "end_time": "10:45"}`),
			wantCode: http.StatusOK,
		})

		var updated schedule.Schedule
		unmarshall(t, rec, &updated)
		assert.Equal(t, sch.ID, updated.ID)
		assert.Equal(t, "r9", updated.RoomID)
		assert.Equal(t, schedule.NewClock(9, 0), updated.StartTime)
		assert.Equal(t, schedule.NewClock(10, 45), updated.EndTime)
	})
}

func Test_scheduleApi_occurrences(t *testing.T) {
	app := setup(t)
	app.fx.DB.AddStudents("G", "s1", "s2")
	sch := testutil.CreateSchedule(t, app.fx.Schedules, "math", "G", "r1", schedule.Tuesday, "09:00", "10:00")
	token := app.token(t, teacher)

	_, err := app.fx.Attendance.RecordBulk(context.Background(), teacher, attendance.BulkRequest{
		ScheduleID: sch.ID,
		Date:       "2024-03-12",
		Registrations: []attendance.Registration{
			{StudentID: "s1", Attended: testutil.BoolPtr(true)},
			{StudentID: "s2", Attended: testutil.BoolPtr(false)},
		},
	})
	require.NoError(t, err)

	tests := []httpTest{
		{
			name: "march 2024", path: "/v1/schedules/" + sch.ID + "/occurrences?from=2024-03-01&to=2024-03-31", token: token,
			wantCode: http.StatusOK,
			wantData: []byte(`["2024-03-05", "2024-03-12", "2024-03-19", "2024-03-26"]`),
		},
		{
			name: "empty range", path: "/v1/schedules/" + sch.ID + "/occurrences?from=2024-03-31&to=2024-03-01", token: token,
			wantCode: http.StatusOK, wantData: []byte(`[]`),
		},
		{
			name: "malformed range", path: "/v1/schedules/" + sch.ID + "/occurrences?from=march&to=", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{
				"from": "invalid date, expected YYYY-MM-DD",
				"to":   "invalid date, expected YYYY-MM-DD",
			}),
		},
		{
			name: "range too long", path: "/v1/schedules/" + sch.ID + "/occurrences?from=2000-01-01&to=2099-12-31", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"to": "range too long, expected at most 366 days"}),
		},
		{
			name: "coverage range too long", path: "/v1/schedules/" + sch.ID + "/coverage?from=2024-01-01&to=2025-01-01", token: token,
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, map[string]string{"to": "range too long, expected at most 366 days"}),
		},
		{
			name: "unknown schedule", path: "/v1/schedules/lol/occurrences?from=2024-03-01&to=2024-03-31", token: token,
			wantCode: http.StatusNotFound,
		},
		{
			name: "coverage", path: "/v1/schedules/" + sch.ID + "/coverage?from=2024-03-01&to=2024-03-13", token: token,
			wantCode: http.StatusOK,
			wantData: []byte(`[
				{"date": "2024-03-12", "recorded": 2, "roster_size": 2, "present": 1, "complete": true},
				{"date": "2024-03-05", "recorded": 0, "roster_size": 2, "present": 0, "complete": false}
			]`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app.do(t, tt)
		})
	}
}
