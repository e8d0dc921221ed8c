package schedule

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/jinzhu/now"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/user"
)

const (
	upgradeReminderTemplate = "upgrade_reminder"
	reminderDateLayout      = "January 2, 2006"
)

type (
	ReminderDeps struct {
		Repo       Repository
		EnrRepo    enrollment.Repository
		CourseRepo course.Repository
		UserRepo   user.Repository
		MailSvc    core.EmailService
		Logger     core.Logger
	}

	// Reminder emails learners whose upgrade deadline is near.
	Reminder struct {
		ReminderDeps
	}

	upgradeReminderData struct {
		Name       string
		CourseID   string
		CourseName string
		Deadline   string
	}
)

func NewReminder(deps ReminderDeps) *Reminder {
	if deps.Logger == nil {
		deps.Logger = core.NopLogger
	}
	return &Reminder{ReminderDeps: deps}
}

// SendUpgradeReminders emails every learner whose active schedule has its upgrade deadline on day (UTC),
// unless they already upgraded. It returns the number of messages handed to the email service.
func (rem *Reminder) SendUpgradeReminders(ctx context.Context, day time.Time) (int, error) {
	dayStart := now.With(day.UTC()).BeginningOfDay()
	dayEnd := dayStart.AddDate(0, 0, 1)
	active := true

	schedules, err := rem.Repo.QuerySchedules(ctx, QueryFilter{
		Active:       &active,
		DeadlineFrom: &dayStart,
		DeadlineTo:   &dayEnd,
	})
	if err != nil {
		return 0, errors.Wrap(err, "querying schedules")
	}
	if len(schedules) == 0 {
		return 0, nil
	}

	deadlines := make(map[string]time.Time, len(schedules)) // {enrollmentID: deadline}
	enrIDs := make([]string, 0, len(schedules))
	for _, sch := range schedules {
		deadlines[sch.EnrollmentID] = *sch.UpgradeDeadline
		enrIDs = append(enrIDs, sch.EnrollmentID)
	}
	enrollments, err := rem.EnrRepo.QueryEnrollments(ctx, enrollment.QueryFilter{IDs: enrIDs, IsActive: &active})
	if err != nil {
		return 0, errors.Wrap(err, "querying enrollments")
	}

	courses := make(map[string]course.Overview)
	messages := make([]*core.EmailMessage, 0, len(enrollments))
	for _, enr := range enrollments {
		if course.IsVerified(enr.Mode) {
			continue
		}

		usr, err := rem.UserRepo.GetUser(ctx, user.GetFilter{ID: enr.UserID})
		if err != nil {
			return 0, errors.Wrap(err, "getting user")
		}
		if !usr.IsActive || usr.Email == "" {
			continue
		}

		ovw, ok := courses[enr.CourseID]
		if !ok {
			if ovw, err = rem.CourseRepo.GetOverview(ctx, enr.CourseID); err != nil {
				return 0, errors.Wrap(err, "getting course overview")
			}
			courses[enr.CourseID] = ovw
		}

		name := usr.Name
		if name == "" {
			name = usr.Username
		}
		msg := &core.EmailMessage{
			To:           []mail.Address{usr.Address()},
			Subject:      fmt.Sprintf("Upgrade to the verified track of %s", ovw.DisplayName),
			TemplateName: upgradeReminderTemplate,
			TemplateData: upgradeReminderData{
				Name:       name,
				CourseID:   ovw.ID,
				CourseName: ovw.DisplayName,
				Deadline:   deadlines[enr.ID].Format(reminderDateLayout),
			},
		}
		if err = msg.Render(); err != nil {
			return 0, errors.Wrap(err, "rendering upgrade reminder")
		}
		if !msg.HasContent() {
			return 0, errors.Errorf("upgrade reminder to %s rendered empty", usr.Email)
		}
		messages = append(messages, msg)
	}

	if len(messages) > 0 {
		rem.MailSvc.SendMessages(messages...)
	}
	rem.Logger.Info(fmt.Sprintf("schedule.SendUpgradeReminders(%s): %d reminder(s) sent", dayStart.Format("2006-01-02"), len(messages)))
	return len(messages), nil
}
