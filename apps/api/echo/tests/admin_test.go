package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/tests"
)

func Test_home(t *testing.T) {
	a := setup(t)
	req, rec := newRequest(http.MethodGet, "/")
	a.serve(req, rec)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to "+a.conf.AppName+" API!", rec.Body.String())
}

func Test_settingsApi(t *testing.T) {
	mockNow(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC))
	a := setup(t)
	testutil.CreateCourse(t, a.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), nil)

	admin := testutil.CreateUser(t, a.usrRepo, "Admin", "admin", "admin@test.com", []string{user.RoleAdmin}, true)
	staff := testutil.CreateUser(t, a.usrRepo, "Staff", "staff", "staff@test.com", []string{user.RoleStaff}, true)
	adminToken := a.getToken(t, admin)
	forbidden := marshallObj(t, httpErr{Error: "permission denied"})

	tests := []httpTest{
		{name: "auth required", path: "/v1/settings/refund", wantCode: http.StatusUnauthorized, wantData: marshallObj(t, errMissingToken)},
		{name: "admin required", path: "/v1/settings/refund", token: a.getToken(t, staff), wantCode: http.StatusForbidden, wantData: forbidden},
		{
			name: "default refund", path: "/v1/settings/refund", token: adminToken, wantCode: http.StatusOK,
			wantData: []byte(`{"refund_window_days": 14, "change_date": "0001-01-01T00:00:00Z"}`),
		},
		{
			name: "default upgrade deadline", path: "/v1/settings/upgrade-deadline", token: adminToken, wantCode: http.StatusOK,
			wantData: []byte(`{"enabled": false, "deadline_days": 21, "change_date": "0001-01-01T00:00:00Z"}`),
		},
		{
			name: "save upgrade deadline", method: http.MethodPut, path: "/v1/settings/upgrade-deadline", token: adminToken,
			body:     []byte(`{"enabled": true, "deadline_days": 10}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"enabled": true, "deadline_days": 10, "change_date": "2020-01-01T12:00:00Z"}`),
		},
		{
			name: "saved upgrade deadline", path: "/v1/settings/upgrade-deadline", token: adminToken, wantCode: http.StatusOK,
			wantData: []byte(`{"enabled": true, "deadline_days": 10, "change_date": "2020-01-01T12:00:00Z"}`),
		},
		{
			name: "invalid upgrade deadline", method: http.MethodPut, path: "/v1/settings/upgrade-deadline", token: adminToken,
			body: []byte(`{"enabled": true, "deadline_days": -1}`), wantCode: http.StatusBadRequest,
			wantData: []byte(`{"deadline_days": "deadline_days must be 0 or greater"}`),
		},
		{
			name: "save course upgrade deadline", method: http.MethodPut, path: "/v1/settings/courses/" + courseID + "/upgrade-deadline",
			token: adminToken, body: []byte(`{"enabled": true, "opt_out": true}`), wantCode: http.StatusOK,
			wantData: []byte(`{"course_id": "` + courseID + `", "enabled": true, "opt_out": true, "deadline_days": 0, "change_date": "2020-01-01T12:00:00Z"}`),
		},
		{
			name: "course upgrade deadline of unknown course", method: http.MethodPut,
			path: "/v1/settings/courses/course-v1:Org+Nope+R/upgrade-deadline", token: adminToken,
			body: []byte(`{"enabled": true}`), wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
		{
			name: "save refund", method: http.MethodPut, path: "/v1/settings/refund", token: adminToken,
			body:     []byte(`{"refund_window_days": 30}`),
			wantCode: http.StatusOK,
			wantData: []byte(`{"refund_window_days": 30, "change_date": "2020-01-01T12:00:00Z"}`),
		},
	}
	runHTTPTests(t, a, tests)
}

func Test_courseApi(t *testing.T) {
	a := setup(t)
	admin := testutil.CreateUser(t, a.usrRepo, "Admin", "admin", "admin@test.com", []string{user.RoleAdmin}, true)
	student := testutil.CreateUser(t, a.usrRepo, "Student", "student", "student@test.com", []string{user.RoleStudent}, true)
	adminToken := a.getToken(t, admin)

	tests := []httpTest{
		{
			name: "admin required", method: http.MethodPut, path: "/v1/courses", token: a.getToken(t, student),
			body:     []byte(`{"id": "` + courseID + `", "display_name": "Go 101"}`),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "end before start", method: http.MethodPut, path: "/v1/courses", token: adminToken,
			body:     []byte(`{"id": "` + courseID + `", "display_name": "Go 101", "start": "2020-01-05T00:00:00Z", "end": "2020-01-01T00:00:00Z"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"end": "the course cannot end before it starts"}`),
		},
		{
			name: "save", method: http.MethodPut, path: "/v1/courses", token: adminToken,
			body:     []byte(`{"id": "` + courseID + `", "display_name": "Go 101", "start": "2020-01-05T03:00:00+03:00"}`),
			wantCode: http.StatusOK,
		},
		{
			name: "save mode", method: http.MethodPut, path: "/v1/courses/" + courseID + "/modes", token: adminToken,
			body:     []byte(`{"mode_slug": "Verified", "min_price": 49}`),
			wantCode: http.StatusOK,
		},
		{
			name: "mode of unknown course", method: http.MethodPut, path: "/v1/courses/course-v1:Org+Nope+R/modes", token: adminToken,
			body:     []byte(`{"mode_slug": "verified", "min_price": 49}`),
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
		{
			name: "invalid mode", method: http.MethodPut, path: "/v1/courses/" + courseID + "/modes", token: adminToken,
			body:     []byte(`{"mode_slug": "gold"}`),
			wantCode: http.StatusBadRequest, wantData: []byte(`{"mode_slug": "unknown course mode"}`),
		},
	}
	runHTTPTests(t, a, tests)

	t.Run("retrieve", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+courseID, a.getToken(t, student))
		a.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var ovw course.Overview
		unmarshall(t, rec.Body.Bytes(), &ovw)
		assert.Equal(t, "Go 101", ovw.DisplayName)
		assert.True(t, testutil.Date(2020, 1, 5).Equal(ovw.Start))

		req, rec = newAuthRequest(http.MethodGet, "/v1/courses/"+courseID+"/modes", a.getToken(t, student))
		a.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var modes []course.Mode
		unmarshall(t, rec.Body.Bytes(), &modes)
		require.Len(t, modes, 1)
		assert.Equal(t, course.ModeVerified, modes[0].Slug)
		assert.Equal(t, course.DefaultCurrency, modes[0].Currency)
	})
}

func Test_scheduleApi(t *testing.T) {
	mockNow(t, time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC))
	a := setup(t)
	a.seedCourse(t) // deadlines: 14 days after the course start, 2020-01-19
	ctx := context.Background()

	staff := testutil.CreateUser(t, a.usrRepo, "Staff", "staff", "staff@test.com", []string{user.RoleStaff}, true)
	student := testutil.CreateUser(t, a.usrRepo, "Student", "student", "student@test.com", []string{user.RoleStudent}, true)
	other := testutil.CreateUser(t, a.usrRepo, "Other", "other", "other@test.com", []string{user.RoleStudent}, true)
	staffToken := a.getToken(t, staff)

	enr, _, err := a.enrSvc.Enroll(ctx, enrollment.NewEnrollment{UserID: student.ID, CourseID: courseID, Mode: course.ModeAudit})
	require.NoError(t, err)
	enr2, _, err := a.enrSvc.Enroll(ctx, enrollment.NewEnrollment{UserID: other.ID, CourseID: courseID, Mode: course.ModeAudit})
	require.NoError(t, err)
	_, err = a.enrSvc.Unenroll(ctx, enr2.ID)
	require.NoError(t, err)

	query := func(t *testing.T, qs string) []schedule.Schedule {
		req, rec := newAuthRequest(http.MethodGet, "/v1/schedules"+qs, staffToken)
		a.serve(req, rec)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var schedules []schedule.Schedule
		unmarshall(t, rec.Body.Bytes(), &schedules)
		return schedules
	}

	assert.Len(t, query(t, ""), 2)
	assert.Len(t, query(t, "?deadline_from=2020-01-19&deadline_to=2020-01-20"), 2)
	assert.Empty(t, query(t, "?deadline_from=2020-01-19T00:00:01Z"))
	active := query(t, "?active=true&deadline_from=2020-01-19&deadline_to=2020-01-20")
	require.Len(t, active, 1)
	assert.Equal(t, enr.ID, active[0].EnrollmentID)

	tests := []httpTest{
		{
			name: "staff required", path: "/v1/schedules", token: a.getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "invalid active", path: "/v1/schedules?active=maybe", token: staffToken,
			wantCode: http.StatusBadRequest, wantData: []byte(`{"active": "must be true or false"}`),
		},
		{
			name: "invalid deadline", path: "/v1/schedules?deadline_to=tomorrow", token: staffToken,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"deadline_to": "must be an RFC 3339 date-time or a YYYY-MM-DD date"}`),
		},
	}
	runHTTPTests(t, a, tests)
}
