package testutil

import (
	"context"
	"os"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/course"
	"github.com/trezcool/ratiba/core/enrollment"
	"github.com/trezcool/ratiba/core/user"
	"github.com/trezcool/ratiba/storage/database"
)

// testDBEnv names the database used by Postgres-backed tests. They are skipped when it is not set.
const testDBEnv = "TEST_DATABASE"

// Config returns the app configuration in test mode.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.TestMode = true
	conf.Debug = false
	conf.Reminders.Enabled = false
	return conf
}

// NewValidator returns a validator with every app validation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	return validate, translator
}

// PrepareDB opens a fresh, migrated test database.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	name := os.Getenv(testDBEnv)
	if name == "" {
		t.Skipf("%s not set: skipping database test", testDBEnv)
	}

	conf := Config()
	conf.Database.Name = name
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Ping(db); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.RunMigration(db, "reset"); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB(): %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// ResetDB empties every table of db.
func ResetDB(t *testing.T, db *sqlx.DB) {
	t.Helper()
	q := `TRUNCATE schedule, certificate, enrollment_attribute, enrollment, course_mode, course_overview, "user",
		upgrade_deadline_config, course_upgrade_deadline_config, refund_config RESTART IDENTITY CASCADE`
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func TimePtr(t time.Time) *time.Time {
	return &t
}

func CreateUser(t *testing.T, repo user.Repository, name, uname, email string, roles []string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr, err := repo.CreateUser(context.Background(), user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  isActive,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateUser(): %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, id, name string, start time.Time, end *time.Time) course.Overview {
	t.Helper()
	ovw, err := repo.UpsertOverview(context.Background(), course.Overview{
		ID:          id,
		DisplayName: name,
		Start:       start,
		End:         end,
		Modified:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateCourse(): %v", err)
	}
	return ovw
}

func CreateMode(t *testing.T, repo course.Repository, courseID, slug string, minPrice int, expiration *time.Time) course.Mode {
	t.Helper()
	mode, err := repo.UpsertMode(context.Background(), course.Mode{
		CourseID:           courseID,
		Slug:               slug,
		DisplayName:        slug,
		MinPrice:           minPrice,
		Currency:           course.DefaultCurrency,
		ExpirationDatetime: expiration,
	})
	if err != nil {
		t.Fatalf("CreateMode(): %v", err)
	}
	return mode
}

// CreateEnrollment inserts an enrollment directly, without running any save hook.
func CreateEnrollment(t *testing.T, repo enrollment.Repository, userID, courseID, mode string, created time.Time) enrollment.Enrollment {
	t.Helper()
	enr, err := repo.CreateEnrollment(context.Background(), enrollment.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Mode:     mode,
		IsActive: true,
		Created:  created,
	})
	if err != nil {
		t.Fatalf("CreateEnrollment(): %v", err)
	}
	return enr
}
