package schedule_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/settings"
	"github.com/trezcool/ratiba/storage/database/inmem"
	"github.com/trezcool/ratiba/tests"
)

const courseID = "course-v1:Ratiba+Go101+2020"

type resolverFixture struct {
	db          *inmemdb.DB
	courseRepo  course.Repository
	settingsSvc settings.Service
	resolver    *schedule.Resolver
}

func newResolverFixture() *resolverFixture {
	db := inmemdb.Open()
	f := &resolverFixture{
		db:          db,
		courseRepo:  inmemdb.NewCourseRepository(db),
		settingsSvc: settings.NewService(inmemdb.NewSettingsRepository(db), 0),
	}
	f.resolver = schedule.NewResolver(f.courseRepo, f.settingsSvc)
	return f
}

func (f *resolverFixture) setGlobal(t *testing.T, enabled bool, days int) {
	_, err := f.settingsSvc.SaveUpgradeDeadline(context.Background(), settings.UpdateUpgradeDeadline{
		Enabled:      enabled,
		DeadlineDays: days,
	})
	require.NoError(t, err)
}

func (f *resolverFixture) setCourse(t *testing.T, enabled, optOut bool, days int) {
	_, err := f.settingsSvc.SaveCourseUpgradeDeadline(context.Background(), courseID, settings.UpdateUpgradeDeadline{
		Enabled:      enabled,
		OptOut:       optOut,
		DeadlineDays: days,
	})
	require.NoError(t, err)
}

func (f *resolverFixture) resolve(t *testing.T, created time.Time) *time.Time {
	deadline, err := f.resolver.UpgradeDeadline(context.Background(), enrollment.Enrollment{
		ID:       "enr",
		CourseID: courseID,
		Mode:     course.ModeAudit,
		Created:  created,
	})
	require.NoError(t, err)
	return deadline
}

func assertDeadline(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	if assert.NotNil(t, got) {
		assert.True(t, want.Equal(*got), "deadline = %v; want %v", *got, *want)
	}
}

func TestResolver_UpgradeDeadline_configDisabled(t *testing.T) {
	start := testutil.Date(2020, 1, 5)
	end := testutil.Date(2020, 3, 1)
	expiration := testutil.Date(2020, 2, 1)
	expired := testutil.Date(2019, 12, 1)

	tests := []struct {
		name       string
		end        *time.Time
		modes      map[string]*time.Time // {slug: expiration}
		configured bool
		want       *time.Time
	}{
		{name: "no paid tier", end: &end, modes: map[string]*time.Time{course.ModeAudit: nil}, want: &end},
		{name: "no paid tier nor end", want: nil},
		{name: "no paid tier, config saved disabled", end: &end, configured: true, want: &end},
		{name: "verified expires", end: &end, modes: map[string]*time.Time{course.ModeVerified: &expiration}, want: &expiration},
		{name: "verified expires, no end", modes: map[string]*time.Time{course.ModeVerified: &expiration}, want: &expiration},
		{name: "professional expires", end: &end, modes: map[string]*time.Time{course.ModeProfessional: &expiration}, want: &expiration},
		{name: "verified never expires", end: &end, modes: map[string]*time.Time{course.ModeVerified: nil}, want: &end},
		{name: "honor expiration ignored", end: &end, modes: map[string]*time.Time{course.ModeHonor: &expiration}, want: &end},
		{name: "verified expired before enrollment", end: &end, modes: map[string]*time.Time{course.ModeVerified: &expired}, want: &end},
		{name: "verified expired before enrollment, no end", modes: map[string]*time.Time{course.ModeVerified: &expired}, want: nil},
		{
			name:  "expired verified, active professional",
			end:   &end,
			modes: map[string]*time.Time{course.ModeVerified: &expired, course.ModeProfessional: &expiration},
			want:  &expiration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture()
			testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", start, tt.end)
			for slug, exp := range tt.modes {
				testutil.CreateMode(t, f.courseRepo, courseID, slug, 0, exp)
			}
			if tt.configured {
				f.setGlobal(t, false, 7)
			}
			assertDeadline(t, tt.want, f.resolve(t, testutil.Date(2020, 1, 1)))
		})
	}
}

func TestResolver_UpgradeDeadline_configEnabled(t *testing.T) {
	created := testutil.Date(2020, 1, 1)
	start := testutil.Date(2020, 1, 5)

	tests := []struct {
		name       string
		end        *time.Time
		expiration *time.Time
		days       int
		want       *time.Time
	}{
		{name: "no end", days: 14, want: testutil.TimePtr(testutil.Date(2020, 1, 19))},
		{name: "end after user deadline", end: testutil.TimePtr(testutil.Date(2020, 6, 1)), days: 14, want: testutil.TimePtr(testutil.Date(2020, 1, 19))},
		{name: "end before user deadline", end: testutil.TimePtr(testutil.Date(2020, 1, 10)), days: 14, want: testutil.TimePtr(testutil.Date(2020, 1, 10))},
		{name: "end on user deadline", end: testutil.TimePtr(testutil.Date(2020, 1, 19)), days: 14, want: testutil.TimePtr(testutil.Date(2020, 1, 19))},
		{
			name:       "expiration before user deadline",
			end:        testutil.TimePtr(testutil.Date(2020, 6, 1)),
			expiration: testutil.TimePtr(testutil.Date(2020, 1, 8)),
			days:       14,
			want:       testutil.TimePtr(testutil.Date(2020, 1, 8)),
		},
		{
			name:       "expiration after user deadline",
			end:        testutil.TimePtr(testutil.Date(2020, 6, 1)),
			expiration: testutil.TimePtr(testutil.Date(2020, 5, 1)),
			days:       14,
			want:       testutil.TimePtr(testutil.Date(2020, 1, 19)),
		},
		{name: "zero days", days: 0, want: testutil.TimePtr(start)},
		{name: "default days", days: settings.DefaultDeadlineDays, want: testutil.TimePtr(testutil.Date(2020, 1, 26))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture()
			testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", start, tt.end)
			if tt.expiration != nil {
				testutil.CreateMode(t, f.courseRepo, courseID, course.ModeVerified, 49, tt.expiration)
			}
			f.setGlobal(t, true, tt.days)
			assertDeadline(t, tt.want, f.resolve(t, created))
		})
	}
}

func TestResolver_UpgradeDeadline_courseConfig(t *testing.T) {
	created := testutil.Date(2020, 1, 1)
	start := testutil.Date(2020, 1, 5)
	end := testutil.Date(2020, 6, 1)
	expiration := testutil.Date(2020, 4, 1)

	tests := []struct {
		name          string
		globalEnabled bool
		enabled       bool
		optOut        bool
		days          int
		want          time.Time
	}{
		{name: "opt out", globalEnabled: true, enabled: true, optOut: true, days: 3, want: expiration},
		{name: "override days", globalEnabled: true, enabled: true, days: 3, want: testutil.Date(2020, 1, 8)},
		{name: "disabled override ignored", globalEnabled: true, days: 3, want: testutil.Date(2020, 1, 19)},
		{name: "disabled opt out ignored", globalEnabled: true, optOut: true, days: 3, want: testutil.Date(2020, 1, 19)},
		{name: "global disabled", enabled: true, days: 3, want: expiration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture()
			testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", start, &end)
			testutil.CreateMode(t, f.courseRepo, courseID, course.ModeVerified, 49, &expiration)
			f.setGlobal(t, tt.globalEnabled, 14)
			f.setCourse(t, tt.enabled, tt.optOut, tt.days)
			assertDeadline(t, &tt.want, f.resolve(t, created))
		})
	}
}

func TestResolver_UpgradeDeadline_opt_out_regardless_of_days(t *testing.T) {
	end := testutil.Date(2020, 6, 1)
	for _, days := range []int{0, 1, 14, 365} {
		f := newResolverFixture()
		testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), &end)
		f.setGlobal(t, true, days)
		f.setCourse(t, true, true, days)
		assertDeadline(t, &end, f.resolve(t, testutil.Date(2020, 1, 1)))
	}
}

func TestResolver_UpgradeDeadline_later_basis_wins(t *testing.T) {
	early := testutil.Date(2020, 1, 1)
	late := testutil.Date(2020, 1, 5)
	want := testutil.Date(2020, 1, 19)

	tests := []struct {
		name    string
		created time.Time
		start   time.Time
	}{
		{name: "course starts after enrollment", created: early, start: late},
		{name: "enrollment after course start", created: late, start: early},
		{name: "same day", created: late, start: late},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolverFixture()
			testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", tt.start, nil)
			f.setGlobal(t, true, 14)
			assertDeadline(t, &want, f.resolve(t, tt.created))
		})
	}
}

func TestResolver_UpgradeDeadline_unknown_start(t *testing.T) {
	f := newResolverFixture()
	testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", time.Time{}, nil)
	f.setGlobal(t, true, 14)

	created := time.Date(2020, 1, 1, 15, 4, 5, 0, time.FixedZone("UTC+2", 2*60*60))
	want := time.Date(2020, 1, 15, 13, 4, 5, 0, time.UTC)
	got := f.resolve(t, created)
	assertDeadline(t, &want, got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestResolver_UpgradeDeadline_errors(t *testing.T) {
	f := newResolverFixture()
	_, err := f.resolver.UpgradeDeadline(context.Background(), enrollment.Enrollment{CourseID: "course-v1:Nope+Nope+Nope"})
	require.Error(t, err)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
}
