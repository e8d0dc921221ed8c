package settings

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults used when no configuration row was ever saved.
const (
	DefaultDeadlineDays = 21
	DefaultRefundWindow = 14 * 24 * time.Hour
)

// UpgradeDeadlineConfig is the global switch of the per-learner upgrade deadline.
type UpgradeDeadlineConfig struct {
	ID           int64     `json:"-"`
	Enabled      bool      `json:"enabled"`
	DeadlineDays int       `json:"deadline_days"`
	ChangeDate   time.Time `json:"change_date"`
}

// CourseUpgradeDeadlineConfig overrides UpgradeDeadlineConfig for a single course.
// OptOut takes the course out of the per-learner deadline altogether.
type CourseUpgradeDeadlineConfig struct {
	ID           int64     `json:"-"`
	CourseID     string    `json:"course_id"`
	Enabled      bool      `json:"enabled"`
	OptOut       bool      `json:"opt_out"`
	DeadlineDays int       `json:"deadline_days"`
	ChangeDate   time.Time `json:"change_date"`
}

// RefundConfig holds the window during which a paid enrollment can be refunded.
type RefundConfig struct {
	ID           int64         `json:"-"`
	RefundWindow time.Duration `json:"-"`
	ChangeDate   time.Time     `json:"change_date"`
}

// RefundWindowDays is RefundWindow in whole days.
func (rc RefundConfig) RefundWindowDays() int {
	return int(rc.RefundWindow / (24 * time.Hour))
}

func (rc RefundConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		RefundWindowDays int       `json:"refund_window_days"`
		ChangeDate       time.Time `json:"change_date"`
	}{rc.RefundWindowDays(), rc.ChangeDate})
}

func defaultUpgradeDeadline() UpgradeDeadlineConfig {
	return UpgradeDeadlineConfig{DeadlineDays: DefaultDeadlineDays}
}

func defaultCourseUpgradeDeadline(courseID string) CourseUpgradeDeadlineConfig {
	return CourseUpgradeDeadlineConfig{CourseID: courseID, DeadlineDays: DefaultDeadlineDays}
}

func defaultRefund() RefundConfig {
	return RefundConfig{RefundWindow: DefaultRefundWindow}
}

// UpdateUpgradeDeadline defines what information may be provided to change the global or a course
// upgrade deadline configuration. OptOut is ignored for the global one.
type UpdateUpgradeDeadline struct {
	Enabled      bool `json:"enabled"`
	OptOut       bool `json:"opt_out"`
	DeadlineDays int  `json:"deadline_days" validate:"gte=0,lte=365"`
}

func (uud *UpdateUpgradeDeadline) Validate(validate *validator.Validate) error {
	return validate.Struct(uud)
}

// UpdateRefund defines what information may be provided to change the refund window.
type UpdateRefund struct {
	RefundWindowDays int `json:"refund_window_days" validate:"gte=0,lte=365"`
}

func (ur *UpdateRefund) Validate(validate *validator.Validate) error {
	return validate.Struct(ur)
}
