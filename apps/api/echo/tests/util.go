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

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/commerce"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/settings"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/storage/database/inmem"
	"github.com/trezcool/ratiba/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type app struct {
	Server      *Server
	conf        *core.Config
	usrRepo     user.Repository
	courseRepo  course.Repository
	enrRepo     enrollment.Repository
	schRepo     schedule.Repository
	settingsSvc settings.Service
	enrSvc      enrollment.Service
	orders      *ordersStub
}

// ordersStub serves orders from memory; err, when set, fails every call.
type ordersStub struct {
	orders map[string]commerce.Order
	err    error
}

func (o *ordersStub) GetOrder(_ context.Context, _ user.User, number string) (commerce.Order, error) {
	if o.err != nil {
		return commerce.Order{}, o.err
	}
	if order, ok := o.orders[number]; ok {
		return order, nil
	}
	return commerce.Order{}, commerce.ErrOrderNotFound
}

// setup returns an API server over a fresh in-memory store.
func setup(t *testing.T) *app {
	conf := testutil.Config()
	db := inmemdb.Open()
	a := &app{
		conf:       conf,
		usrRepo:    inmemdb.NewUserRepository(db),
		courseRepo: inmemdb.NewCourseRepository(db),
		enrRepo:    inmemdb.NewEnrollmentRepository(db),
		schRepo:    inmemdb.NewScheduleRepository(db),
		orders:     &ordersStub{orders: make(map[string]commerce.Order)},
	}
	certRepo := inmemdb.NewCertificateRepository(db)
	a.settingsSvc = settings.NewService(inmemdb.NewSettingsRepository(db), 0)

	courseSvc := course.NewService(a.courseRepo)
	schSvc := schedule.NewService(a.schRepo)
	a.enrSvc = enrollment.NewService(enrollment.Deps{
		Repo:        a.enrRepo,
		CourseRepo:  a.courseRepo,
		CertRepo:    certRepo,
		UserRepo:    a.usrRepo,
		SettingsSvc: a.settingsSvc,
		Orders:      a.orders,
		Tx:          inmemdb.NewTransactor(db),
	})
	recorder := schedule.NewRecorder(a.schRepo, schedule.NewResolver(a.courseRepo, a.settingsSvc))
	a.enrSvc.RegisterSaveHook(recorder.Record)
	a.enrSvc.RegisterSaveHook(schSvc.SyncActive)

	validate, translator := testutil.NewValidator()
	a.Server = NewServer(ServerDeps{
		Conf:           conf,
		Validate:       validate,
		Translator:     translator,
		UserSvc:        user.NewService(a.usrRepo),
		CourseSvc:      courseSvc,
		EnrollmentSvc:  a.enrSvc,
		ScheduleSvc:    schSvc,
		SettingsSvc:    a.settingsSvc,
		CertRepo:       certRepo,
		DisableReqLogs: true,
	})
	return a
}

func (a *app) serve(req *http.Request, rec *httptest.ResponseRecorder) {
	a.Server.ServeHTTP(rec, req)
}

func (a *app) getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(GetUserClaims(usr, a.conf), a.conf.SecretKey)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func mockNow(t *testing.T, now time.Time) {
	enrollment.NowFunc = func() time.Time { return now }
	schedule.NowFunc = func() time.Time { return now }
	settings.NowFunc = func() time.Time { return now }
	t.Cleanup(func() {
		enrollment.NowFunc = time.Now
		schedule.NowFunc = time.Now
		settings.NowFunc = time.Now
	})
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

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, data []byte, obj interface{}) {
	if err := json.Unmarshal(data, obj); err != nil {
		t.Fatalf("unmarshall(%s): %v", data, err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, a *app, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := tt.method
			if method == "" {
				method = http.MethodGet
			}
			req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
			a.serve(req, rec)
			checkCodeAndData(t, tt, rec)
		})
	}
}
