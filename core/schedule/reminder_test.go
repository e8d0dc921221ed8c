package schedule_test

import (
	"context"
	"net/mail"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/fs"
	"github.com/trezcool/ratiba/services/email"
	"github.com/trezcool/ratiba/tests"
)

func enrollmentFor(f *recorderFixture, mode string) enrollment.NewEnrollment {
	return enrollment.NewEnrollment{UserID: f.student.ID, CourseID: courseID, Mode: mode}
}

func TestReminder_SendUpgradeReminders(t *testing.T) {
	conf := testutil.Config()
	core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)

	f := newRecorderFixture(t)
	reminder := schedule.NewReminder(schedule.ReminderDeps{
		Repo:       f.schRepo,
		EnrRepo:    f.enrRepo,
		CourseRepo: f.courseRepo,
		UserRepo:   f.usrRepo,
		MailSvc:    mailSvc,
	})
	ctx := context.Background()
	testutil.CreateCourse(t, f.courseRepo, courseID, "Go 101", testutil.Date(2020, 1, 5), nil)

	day := testutil.Date(2020, 1, 19)
	onDay := day.Add(15 * time.Hour)
	nextDay := day.AddDate(0, 0, 1)

	newSchedule := func(usr user.User, mode string, deadline *time.Time, enrActive bool) {
		enr := testutil.CreateEnrollment(t, f.enrRepo, usr.ID, courseID, mode, time.Now())
		if !enrActive {
			enr.IsActive = false
			_, err := f.enrRepo.UpdateEnrollment(ctx, enr)
			require.NoError(t, err)
		}
		_, err := f.schRepo.CreateSchedule(ctx, schedule.Schedule{
			EnrollmentID:    enr.ID,
			Active:          true,
			Start:           time.Now(),
			UpgradeDeadline: deadline,
		})
		require.NoError(t, err)
	}

	learner := f.student
	newSchedule(learner, course.ModeAudit, &onDay, true)

	upgraded := testutil.CreateUser(t, f.usrRepo, "Upgraded", "upgraded", "upgraded@test.com", nil, true)
	newSchedule(upgraded, course.ModeVerified, &onDay, true)

	later := testutil.CreateUser(t, f.usrRepo, "Later", "later", "later@test.com", nil, true)
	newSchedule(later, course.ModeAudit, &nextDay, true)

	left := testutil.CreateUser(t, f.usrRepo, "Left", "left", "left@test.com", nil, true)
	newSchedule(left, course.ModeAudit, &onDay, false)

	deactivated := testutil.CreateUser(t, f.usrRepo, "Deactivated", "deactivated", "deactivated@test.com", nil, false)
	newSchedule(deactivated, course.ModeAudit, &onDay, true)

	unbounded := testutil.CreateUser(t, f.usrRepo, "Unbounded", "unbounded", "unbounded@test.com", nil, true)
	newSchedule(unbounded, course.ModeAudit, nil, true)

	sent, err := reminder.SendUpgradeReminders(ctx, day.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	messages := mailSvc.SentMessages()
	require.Len(t, messages, 1)
	msg := messages[0]
	assert.Equal(t, []mail.Address{{Name: learner.Name, Address: learner.Email}}, msg.To)
	assert.Contains(t, msg.Subject, "Go 101")
	assert.Contains(t, msg.TextContent, "Hi Student")
	assert.Contains(t, msg.TextContent, "January 19, 2020")
	assert.Contains(t, msg.TextContent, "/courses/"+courseID+"/upgrade")
	assert.Contains(t, msg.HTMLContent, "<strong>Go 101</strong>")

	t.Run("nothing due", func(t *testing.T) {
		mailSvc.Reset()
		sent, err := reminder.SendUpgradeReminders(ctx, testutil.Date(2021, 1, 1))
		require.NoError(t, err)
		assert.Zero(t, sent)
		assert.Empty(t, mailSvc.SentMessages())
	})

	t.Run("templates not loaded", func(t *testing.T) {
		mailSvc.Reset()
		core.ParseEmailTemplates(fstest.MapFS{}, conf, core.NopLogger)
		defer core.ParseEmailTemplates(appfs.FS, conf, core.NopLogger)

		sent, err := reminder.SendUpgradeReminders(ctx, day)
		assert.Error(t, err)
		assert.Zero(t, sent)
		assert.Empty(t, mailSvc.SentMessages())
	})
}
