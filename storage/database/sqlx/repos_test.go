package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/certificate"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/settings"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/storage/database"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
	"github.com/trezcool/ratiba/tests"
)

const courseID = "course-v1:Ratiba+Go101+2020"

type fixture struct {
	db          *sqlx.DB
	usrRepo     user.Repository
	courseRepo  course.Repository
	enrRepo     enrollment.Repository
	schRepo     schedule.Repository
	certRepo    certificate.Repository
	settingRepo settings.Repository
}

func setup(t *testing.T) *fixture {
	db := testutil.PrepareDB(t)
	return &fixture{
		db:          db,
		usrRepo:     sqlxrepos.NewUserRepository(db),
		courseRepo:  sqlxrepos.NewCourseRepository(db),
		enrRepo:     sqlxrepos.NewEnrollmentRepository(db),
		schRepo:     sqlxrepos.NewScheduleRepository(db),
		certRepo:    sqlxrepos.NewCertificateRepository(db),
		settingRepo: sqlxrepos.NewSettingsRepository(db),
	}
}

func TestUserRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, f.usrRepo, "Awe", "awe", "awe@test.cd", []string{user.RoleStaff}, true)
	require.NotEmpty(t, usr.ID)

	tests := []struct {
		name    string
		filter  user.GetFilter
		wantErr error
	}{
		{name: "by id", filter: user.GetFilter{ID: usr.ID}},
		{name: "by username", filter: user.GetFilter{Username: "awe"}},
		{name: "by email", filter: user.GetFilter{Email: "awe@test.cd"}},
		{name: "by username or email", filter: user.GetFilter{UsernameOrEmail: "awe@test.cd"}},
		{name: "invalid id", filter: user.GetFilter{ID: "lol"}, wantErr: user.ErrNotFound},
		{name: "unknown", filter: user.GetFilter{Username: "lol"}, wantErr: user.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.usrRepo.GetUser(ctx, tt.filter)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
			assert.Equal(t, []string{user.RoleStaff}, got.Roles)
		})
	}

	t.Run("update or create", func(t *testing.T) {
		usr.Name = "Awe Awe"
		usr.IsActive = false
		updated, err := f.usrRepo.UpdateOrCreateUser(ctx, usr)
		require.NoError(t, err)
		assert.Equal(t, usr.ID, updated.ID)
		assert.Equal(t, "Awe Awe", updated.Name)
		assert.False(t, updated.IsActive)

		created, err := f.usrRepo.UpdateOrCreateUser(ctx, user.User{Username: "new", Email: "new@test.cd", IsActive: true})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.NotEqual(t, usr.ID, created.ID)
	})
}

func TestCourseRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.courseRepo.GetOverview(ctx, courseID)
	assert.Equal(t, course.ErrNotFound, err)

	end := testutil.Date(2020, 6, 1)
	ovw := testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), &end)
	assert.Equal(t, testutil.Date(2020, 1, 5), ovw.Start)
	require.NotNil(t, ovw.End)
	assert.Equal(t, end, *ovw.End)

	ovw = testutil.CreateCourse(t, f.courseRepo, courseID, "Go 102", testutil.Date(2020, 1, 6), nil)
	assert.Equal(t, "Go 102", ovw.DisplayName)
	assert.Nil(t, ovw.End)

	_, err = f.courseRepo.GetVerifiedMode(ctx, courseID)
	assert.Equal(t, course.ErrModeNotFound, err)

	testutil.CreateMode(t, f.courseRepo, courseID, course.ModeAudit, 0, nil)
	testutil.CreateMode(t, f.courseRepo, courseID, course.ModeProfessional, 100, nil)
	expiration := testutil.Date(2020, 2, 1)
	verified := testutil.CreateMode(t, f.courseRepo, courseID, course.ModeVerified, 50, &expiration)

	got, err := f.courseRepo.GetVerifiedMode(ctx, courseID)
	require.NoError(t, err)
	assert.Equal(t, verified, got)

	got, err = f.courseRepo.GetActiveVerifiedMode(ctx, courseID, testutil.Date(2020, 1, 1))
	require.NoError(t, err)
	assert.Equal(t, course.ModeVerified, got.Slug)
	got, err = f.courseRepo.GetActiveVerifiedMode(ctx, courseID, testutil.Date(2020, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, course.ModeProfessional, got.Slug, "expired verified mode skipped")

	// upsert keeps the id
	updated, err := f.courseRepo.UpsertMode(ctx, course.Mode{
		CourseID: courseID, Slug: course.ModeVerified, DisplayName: "Verified", MinPrice: 60, Currency: course.DefaultCurrency,
	})
	require.NoError(t, err)
	assert.Equal(t, verified.ID, updated.ID)
	assert.Nil(t, updated.ExpirationDatetime)

	modes, err := f.courseRepo.QueryModes(ctx, courseID)
	require.NoError(t, err)
	slugs := make([]string, 0, len(modes))
	for _, mode := range modes {
		slugs = append(slugs, mode.Slug)
	}
	assert.Equal(t, []string{course.ModeAudit, course.ModeVerified, course.ModeProfessional}, slugs)
}

func TestEnrollmentRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.usrRepo, "Awe", "awe", "awe@test.cd", nil, true)
	testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), nil)

	enr := testutil.CreateEnrollment(t, f.enrRepo, usr.ID, courseID, course.ModeAudit, testutil.Date(2020, 1, 10))
	assert.NotNil(t, enr.Attributes)

	_, err := f.enrRepo.CreateEnrollment(ctx, enrollment.Enrollment{UserID: usr.ID, CourseID: courseID, Mode: course.ModeVerified})
	assert.Equal(t, enrollment.ErrAlreadyEnrolled, err)

	got, err := f.enrRepo.GetUserEnrollment(ctx, usr.ID, courseID)
	require.NoError(t, err)
	assert.Equal(t, enr.ID, got.ID)
	assert.Equal(t, []enrollment.Attribute{}, got.Attributes)

	_, err = f.enrRepo.GetEnrollment(ctx, "lol")
	assert.Equal(t, enrollment.ErrNotFound, err)

	t.Run("attributes", func(t *testing.T) {
		for _, num := range []string{"EDX-1", "EDX-2"} {
			_, err := f.enrRepo.CreateAttribute(ctx, enr.ID, enrollment.Attribute{
				Namespace: enrollment.OrderNamespace, Name: enrollment.OrderNumber, Value: num,
			})
			require.NoError(t, err)
		}
		got, err := f.enrRepo.GetEnrollment(ctx, enr.ID)
		require.NoError(t, err)
		require.Len(t, got.Attributes, 2)
		num, ok := got.OrderNumber()
		assert.True(t, ok)
		assert.Equal(t, "EDX-1", num)
	})

	t.Run("update", func(t *testing.T) {
		enr.Mode = course.ModeVerified
		enr.IsActive = false
		updated, err := f.enrRepo.UpdateEnrollment(ctx, enr)
		require.NoError(t, err)
		assert.Equal(t, course.ModeVerified, updated.Mode)
		assert.False(t, updated.IsActive)

		_, err = f.enrRepo.UpdateEnrollment(ctx, enrollment.Enrollment{ID: "00000000-0000-0000-0000-000000000000"})
		assert.Equal(t, enrollment.ErrNotFound, err)
	})

	t.Run("query", func(t *testing.T) {
		other := testutil.CreateUser(t, f.usrRepo, "Other", "other", "other@test.cd", nil, true)
		otherEnr := testutil.CreateEnrollment(t, f.enrRepo, other.ID, courseID, course.ModeAudit, testutil.Date(2020, 1, 11))
		active, inactive := true, false

		tests := []struct {
			name    string
			filter  enrollment.QueryFilter
			wantIDs []string
		}{
			{name: "all", wantIDs: []string{enr.ID, otherEnr.ID}},
			{name: "by user", filter: enrollment.QueryFilter{UserID: usr.ID}, wantIDs: []string{enr.ID}},
			{name: "invalid user", filter: enrollment.QueryFilter{UserID: "lol"}, wantIDs: []string{}},
			{name: "by ids", filter: enrollment.QueryFilter{IDs: []string{otherEnr.ID, "lol"}}, wantIDs: []string{otherEnr.ID}},
			{name: "active", filter: enrollment.QueryFilter{IsActive: &active}, wantIDs: []string{otherEnr.ID}},
			{name: "inactive", filter: enrollment.QueryFilter{CourseID: courseID, IsActive: &inactive}, wantIDs: []string{enr.ID}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				enrollments, err := f.enrRepo.QueryEnrollments(ctx, tt.filter)
				require.NoError(t, err)
				ids := make([]string, 0, len(enrollments))
				for _, e := range enrollments {
					ids = append(ids, e.ID)
				}
				assert.Equal(t, tt.wantIDs, ids)
			})
		}
	})
}

func TestScheduleRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.usrRepo, "Awe", "awe", "awe@test.cd", nil, true)
	testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), nil)
	enr := testutil.CreateEnrollment(t, f.enrRepo, usr.ID, courseID, course.ModeAudit, testutil.Date(2020, 1, 10))

	now := testutil.Date(2020, 1, 10).Add(time.Hour)
	schedule.NowFunc = func() time.Time { return now }
	defer func() { schedule.NowFunc = time.Now }()

	deadline := testutil.Date(2020, 1, 24)
	sch, err := f.schRepo.CreateSchedule(ctx, schedule.Schedule{
		EnrollmentID:    enr.ID,
		Active:          true,
		Start:           testutil.Date(2020, 1, 10),
		UpgradeDeadline: &deadline,
	})
	require.NoError(t, err)
	assert.Equal(t, now, sch.Modified)

	_, err = f.schRepo.CreateSchedule(ctx, schedule.Schedule{EnrollmentID: enr.ID, Start: testutil.Date(2020, 1, 10)})
	assert.Equal(t, schedule.ErrScheduleExists, err)

	got, err := f.schRepo.GetByEnrollment(ctx, enr.ID)
	require.NoError(t, err)
	assert.Equal(t, sch, got)

	_, err = f.schRepo.GetByEnrollment(ctx, "lol")
	assert.Equal(t, schedule.ErrNotFound, err)

	t.Run("query", func(t *testing.T) {
		active, inactive := true, false
		from, to := testutil.Date(2020, 1, 24), testutil.Date(2020, 1, 25)
		tests := []struct {
			name   string
			filter schedule.QueryFilter
			want   int
		}{
			{name: "all", want: 1},
			{name: "active", filter: schedule.QueryFilter{Active: &active}, want: 1},
			{name: "inactive", filter: schedule.QueryFilter{Active: &inactive}, want: 0},
			{name: "on deadline day", filter: schedule.QueryFilter{DeadlineFrom: &from, DeadlineTo: &to}, want: 1},
			{name: "before deadline day", filter: schedule.QueryFilter{DeadlineTo: &from}, want: 0},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				schedules, err := f.schRepo.QuerySchedules(ctx, tt.filter)
				require.NoError(t, err)
				assert.Len(t, schedules, tt.want)
			})
		}
	})

	t.Run("update", func(t *testing.T) {
		now = now.Add(time.Hour)
		sch.Active = false
		sch.UpgradeDeadline = nil
		updated, err := f.schRepo.UpdateSchedule(ctx, sch)
		require.NoError(t, err)
		assert.False(t, updated.Active)
		assert.Nil(t, updated.UpgradeDeadline)
		assert.Equal(t, now, updated.Modified)
	})
}

func TestCertificateRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, f.usrRepo, "Awe", "awe", "awe@test.cd", nil, true)
	testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), nil)
	otherCourse := "course-v1:Ratiba+Rust101+2020"
	testutil.CreateCourse(t, f.courseRepo, otherCourse, "Rust 101", testutil.Date(2020, 1, 5), nil)

	for _, cert := range []certificate.Certificate{
		{UserID: usr.ID, CourseID: courseID, Status: certificate.StatusDownloadable, Mode: course.ModeVerified},
		{UserID: usr.ID, CourseID: otherCourse, Status: certificate.StatusNotPassing, Mode: course.ModeVerified},
	} {
		_, err := f.certRepo.CreateCertificate(ctx, cert)
		require.NoError(t, err)
	}

	ids, err := f.certRepo.CourseIDsWithCerts(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{courseID: true}, ids)

	cert, err := f.certRepo.GetCertificate(ctx, usr.ID, otherCourse)
	require.NoError(t, err)
	assert.Equal(t, certificate.StatusNotPassing, cert.Status)

	_, err = f.certRepo.GetCertificate(ctx, usr.ID, "course-v1:Ratiba+Nope+2020")
	assert.Equal(t, certificate.ErrNotFound, err)
}

func TestSettingsRepository(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.settingRepo.GetLatestUpgradeDeadline(ctx)
	assert.Equal(t, settings.ErrNotFound, err)
	_, err = f.settingRepo.GetLatestRefund(ctx)
	assert.Equal(t, settings.ErrNotFound, err)

	for i, days := range []int{10, 12} {
		_, err := f.settingRepo.CreateUpgradeDeadline(ctx, settings.UpgradeDeadlineConfig{
			Enabled:      true,
			DeadlineDays: days,
			ChangeDate:   testutil.Date(2020, 1, 1+i),
		})
		require.NoError(t, err)
	}
	cfg, err := f.settingRepo.GetLatestUpgradeDeadline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.DeadlineDays)
	assert.Equal(t, testutil.Date(2020, 1, 2), cfg.ChangeDate)

	_, err = f.settingRepo.CreateCourseUpgradeDeadline(ctx, settings.CourseUpgradeDeadlineConfig{
		CourseID: courseID, OptOut: true, DeadlineDays: 5, ChangeDate: testutil.Date(2020, 1, 1),
	})
	require.NoError(t, err)
	courseCfg, err := f.settingRepo.GetLatestCourseUpgradeDeadline(ctx, courseID)
	require.NoError(t, err)
	assert.True(t, courseCfg.OptOut)
	_, err = f.settingRepo.GetLatestCourseUpgradeDeadline(ctx, "course-v1:Ratiba+Nope+2020")
	assert.Equal(t, settings.ErrNotFound, err)

	_, err = f.settingRepo.CreateRefund(ctx, settings.RefundConfig{RefundWindow: 3 * 24 * time.Hour, ChangeDate: testutil.Date(2020, 1, 1)})
	require.NoError(t, err)
	refund, err := f.settingRepo.GetLatestRefund(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, refund.RefundWindowDays())
}

func TestTransactor_WithinTx(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	tx := database.NewTransactor(f.db)
	usr := testutil.CreateUser(t, f.usrRepo, "Awe", "awe", "awe@test.cd", nil, true)
	testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), nil)

	errBoom := errors.New("boom")
	err := tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		if _, err := f.enrRepo.CreateEnrollment(ctx, enrollment.Enrollment{
			UserID: usr.ID, CourseID: courseID, Mode: course.ModeAudit, IsActive: true, Created: time.Now(),
		}, exec); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, err)
	_, err = f.enrRepo.GetUserEnrollment(ctx, usr.ID, courseID)
	assert.Equal(t, enrollment.ErrNotFound, err, "rolled back")

	err = tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		_, err := f.enrRepo.CreateEnrollment(ctx, enrollment.Enrollment{
			UserID: usr.ID, CourseID: courseID, Mode: course.ModeAudit, IsActive: true, Created: time.Now(),
		}, exec)
		return err
	})
	require.NoError(t, err)
	_, err = f.enrRepo.GetUserEnrollment(ctx, usr.ID, courseID)
	assert.NoError(t, err, "committed")
}
