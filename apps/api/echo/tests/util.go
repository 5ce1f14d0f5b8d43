package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/classbook/apps/api/echo"
	"github.com/trezcool/classbook/core"
	"github.com/trezcool/classbook/core/attendance"
	"github.com/trezcool/classbook/core/report"
	"github.com/trezcool/classbook/core/session"
	"github.com/trezcool/classbook/storage/database/inmem"
	"github.com/trezcool/classbook/tests"
)

var (
	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotFound     = httpErr{Error: "not found"}

	admin   = session.New("admin1", session.RoleAdmin)
	teacher = session.New("teacher1", session.RoleTeacher)
	student = session.New("s1", session.RoleStudent)
)

func testConfig() *core.Config {
	conf := &core.Config{AppName: "Classbook", Env: "TEST", TestMode: true}
	conf.Server.SecretKey = "test-secret"
	conf.Server.JWTExpirationDelta = time.Hour
	return conf
}

type testApp struct {
	*Server
	conf   *core.Config
	fx     *testutil.Fixture
	logger *testutil.LoggerMock
}

// setup returns a server over a fresh in-memory fixture.
func setup(t *testing.T) *testApp {
	t.Helper()
	conf := testConfig()
	fx := testutil.NewFixture()
	logger := new(testutil.LoggerMock)

	return &testApp{
		Server: NewServer(ServerDeps{
			Conf:          conf,
			Logger:        logger,
			Translator:    fx.Translator,
			ScheduleSvc:   fx.Schedules,
			AttendanceSvc: fx.Attendance,
			Reporter:      fx.Reporter,
		}),
		conf:   conf,
		fx:     fx,
		logger: logger,
	}
}

type brokenRoster struct{}

func (brokenRoster) GroupRoster(context.Context, string) ([]string, error) {
	return nil, core.NewStorageError(errors.New("connection refused"), "reading roster")
}

// setupBrokenRoster returns a server whose roster provider always fails.
func setupBrokenRoster(t *testing.T) *testApp {
	t.Helper()
	app := setup(t)
	attSvc := attendance.NewService(inmemdb.NewAttendanceRepository(app.fx.DB), app.fx.Schedules, brokenRoster{}, app.fx.Validate)
	app.Server = NewServer(ServerDeps{
		Conf:          app.conf,
		Logger:        app.logger,
		Translator:    app.fx.Translator,
		ScheduleSvc:   app.fx.Schedules,
		AttendanceSvc: attSvc,
		Reporter:      report.NewReporter(attSvc, app.fx.Schedules, brokenRoster{}),
	})
	return app
}

func (app *testApp) token(t *testing.T, sess session.Session) string {
	t.Helper()
	token, err := GenerateToken(app.conf, NewClaims(app.conf, sess))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// do runs tt against app and checks the response.
func (app *testApp) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	checkCodeAndData(t, tt, rec)
	return rec
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	return false, nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
