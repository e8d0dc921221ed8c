package enrollment

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

// Attribute namespace & name holding the ecommerce order number of a paid enrollment.
const (
	OrderNamespace = "order"
	OrderNumber    = "order_number"
)

// Enrollment is the registration of a learner in a course run.
type Enrollment struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	CourseID   string      `json:"course_id"`
	Mode       string      `json:"mode"`
	IsActive   bool        `json:"is_active"`
	CanRefund  bool        `json:"can_refund"` // refunds forced by support staff
	Created    time.Time   `json:"created"`
	Attributes []Attribute `json:"attributes"`
}

// OrderNumber returns the first order number attached to enr.
func (enr Enrollment) OrderNumber() (string, bool) {
	for _, attr := range enr.Attributes {
		if attr.Namespace == OrderNamespace && attr.Name == OrderNumber {
			return attr.Value, true
		}
	}
	return "", false
}

// Attribute is a namespaced key/value attached to an Enrollment.
type Attribute struct {
	Namespace string `json:"namespace" validate:"required,notblank"`
	Name      string `json:"name" validate:"required,notblank"`
	Value     string `json:"value" validate:"required"`
}

func (attr *Attribute) Validate(validate *validator.Validate) error {
	attr.Namespace = core.CleanString(attr.Namespace, true /* lower */)
	attr.Name = core.CleanString(attr.Name, true /* lower */)
	attr.Value = core.CleanString(attr.Value)
	return validate.Struct(attr)
}

// NewEnrollment contains information needed to enroll a learner.
type NewEnrollment struct {
	UserID   string `json:"user_id"`
	CourseID string `json:"course_id" validate:"required,courseid"`
	Mode     string `json:"mode" validate:"required,modeslug"`
}

func (ne *NewEnrollment) Validate(validate *validator.Validate) error {
	ne.UserID = core.CleanString(ne.UserID)
	ne.CourseID = core.CleanString(ne.CourseID)
	ne.Mode = core.CleanString(ne.Mode, true /* lower */)
	return validate.Struct(ne)
}

// QueryFilter applies AND operation on the set fields.
type QueryFilter struct {
	UserID   string
	CourseID string
	IDs      []string
	IsActive *bool
}

// RefundStatus summarizes the refund eligibility of an enrollment.
type RefundStatus struct {
	Refundable       bool       `json:"refundable"`
	RefundCutoffDate *time.Time `json:"refund_cutoff_date"`
}
