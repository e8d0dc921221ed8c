package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/certificate"
	"github.com/trezcool/ratiba/core/commerce"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/schedule"
	"github.com/trezcool/ratiba/core/settings"
	"github.com/trezcool/ratiba/core/user"
	commercesvc "github.com/trezcool/ratiba/services/commerce"
	emailsvc "github.com/trezcool/ratiba/services/email"
	logsvc "github.com/trezcool/ratiba/services/logger"
	"github.com/trezcool/ratiba/storage/database"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

type (
	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	enrollmentParams struct {
		dig.In
		Repo        enrollment.Repository
		CourseRepo  course.Repository
		CertRepo    certificate.Repository
		UserRepo    user.Repository
		SettingsSvc settings.Service
		Orders      commerce.OrdersClient
		Tx          core.Transactor
		Logger      core.Logger
		Recorder    *schedule.Recorder
		ScheduleSvc schedule.Service
	}

	reminderParams struct {
		dig.In
		Repo       schedule.Repository
		EnrRepo    enrollment.Repository
		CourseRepo course.Repository
		UserRepo   user.Repository
		MailSvc    core.EmailService
		Logger     core.Logger
	}

	serverParams struct {
		dig.In
		Conf          *core.Config
		Logger        core.Logger
		Validate      *validator.Validate
		Translator    ut.Translator
		UserSvc       user.Service
		CourseSvc     course.Service
		EnrollmentSvc enrollment.Service
		ScheduleSvc   schedule.Service
		SettingsSvc   settings.Service
		CertRepo      certificate.Repository
	}
)

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Ping(db); err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "EMAIL : ", log.LstdFlags), logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate
}

func newSettingsService(conf *core.Config, repo settings.Repository) settings.Service {
	return settings.NewService(repo, conf.Settings.CacheTTL)
}

// newEnrollmentService registers the schedule hooks: every enrollment save is seen by the recorder.
func newEnrollmentService(p enrollmentParams) enrollment.Service {
	svc := enrollment.NewService(enrollment.Deps{
		Repo:        p.Repo,
		CourseRepo:  p.CourseRepo,
		CertRepo:    p.CertRepo,
		UserRepo:    p.UserRepo,
		SettingsSvc: p.SettingsSvc,
		Orders:      p.Orders,
		Tx:          p.Tx,
		Logger:      p.Logger,
	})
	svc.RegisterSaveHook(p.Recorder.Record)
	svc.RegisterSaveHook(p.ScheduleSvc.SyncActive)
	return svc
}

func newReminder(p reminderParams) *schedule.Reminder {
	return schedule.NewReminder(schedule.ReminderDeps{
		Repo:       p.Repo,
		EnrRepo:    p.EnrRepo,
		CourseRepo: p.CourseRepo,
		UserRepo:   p.UserRepo,
		MailSvc:    p.MailSvc,
		Logger:     p.Logger,
	})
}

// newCron schedules the daily upgrade reminders. Nothing is scheduled when reminders are disabled.
func newCron(conf *core.Config, reminder *schedule.Reminder, logger core.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	if !conf.Reminders.Enabled {
		return c, nil
	}
	_, err := c.AddFunc(conf.Reminders.Cron, func() {
		if _, err := reminder.SendUpgradeReminders(context.Background(), time.Now()); err != nil {
			logger.Error(fmt.Sprintf("sending upgrade reminders: %v", err), err)
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "scheduling reminders %q", conf.Reminders.Cron)
	}
	return c, nil
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		CourseSvc:     p.CourseSvc,
		EnrollmentSvc: p.EnrollmentSvc,
		ScheduleSvc:   p.ScheduleSvc,
		SettingsSvc:   p.SettingsSvc,
		CertRepo:      p.CertRepo,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(database.NewTransactor))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	must(provideRepositories(c))

	// services
	must(c.Provide(commercesvc.NewOrdersClient))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(newSettingsService))
	must(c.Provide(schedule.NewResolver))
	must(c.Provide(schedule.NewRecorder))
	must(c.Provide(schedule.NewService))
	must(c.Provide(newEnrollmentService))
	must(c.Provide(newReminder))
	must(c.Provide(newCron))
	must(c.Provide(newServer))

	return c
}

// provideRepositories registers the sqlx repositories under their domain interfaces.
func provideRepositories(c *dig.Container) error {
	for _, constructor := range []interface{}{
		sqlxrepos.NewUserRepository,
		sqlxrepos.NewCourseRepository,
		sqlxrepos.NewCertificateRepository,
		sqlxrepos.NewEnrollmentRepository,
		sqlxrepos.NewScheduleRepository,
		sqlxrepos.NewSettingsRepository,
	} {
		if err := c.Provide(constructor); err != nil {
			return err
		}
	}
	return nil
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
