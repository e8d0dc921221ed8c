package schedule

import "time"

// Schedule is the learning schedule of an enrollment. There is at most one per enrollment.
type Schedule struct {
	ID              string     `json:"id"`
	EnrollmentID    string     `json:"enrollment_id"`
	Active          bool       `json:"active"`
	Start           time.Time  `json:"start"`
	UpgradeDeadline *time.Time `json:"upgrade_deadline"` // nil when the learner can upgrade at any time
	Modified        time.Time  `json:"modified"`
}

// QueryFilter applies AND operation on the set fields.
// DeadlineFrom is inclusive, DeadlineTo exclusive. Schedules without deadline never match a deadline bound.
type QueryFilter struct {
	Active       *bool
	DeadlineFrom *time.Time
	DeadlineTo   *time.Time
}

// Match tells whether sch satisfies filter.
func (filter QueryFilter) Match(sch Schedule) bool {
	if filter.Active != nil && sch.Active != *filter.Active {
		return false
	}
	if filter.DeadlineFrom != nil || filter.DeadlineTo != nil {
		if sch.UpgradeDeadline == nil {
			return false
		}
		if filter.DeadlineFrom != nil && sch.UpgradeDeadline.Before(*filter.DeadlineFrom) {
			return false
		}
		if filter.DeadlineTo != nil && !sch.UpgradeDeadline.Before(*filter.DeadlineTo) {
			return false
		}
	}
	return true
}
