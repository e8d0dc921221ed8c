package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

// Mode slugs
const (
	ModeAudit            = "audit"
	ModeHonor            = "honor"
	ModeVerified         = "verified"
	ModeProfessional     = "professional"
	ModeNoIDProfessional = "no-id-professional"

	DefaultCurrency = "usd"
)

var (
	AllModes = []string{ModeAudit, ModeHonor, ModeVerified, ModeProfessional, ModeNoIDProfessional}

	// VerifiedModes are the paid tiers carrying an upgrade deadline, by order of preference.
	VerifiedModes = []string{ModeVerified, ModeProfessional}
)

func IsVerified(slug string) bool {
	for _, m := range VerifiedModes {
		if m == slug {
			return true
		}
	}
	return false
}

func IsKnownMode(slug string) bool {
	for _, m := range AllModes {
		if m == slug {
			return true
		}
	}
	return false
}

// Overview is the catalog summary of a course run.
type Overview struct {
	ID          string     `json:"id"` // course key, eg. course-v1:Org+Course+Run
	DisplayName string     `json:"display_name"`
	Start       time.Time  `json:"start"`         // zero when unknown
	End         *time.Time `json:"end,omitempty"` // nil when the course never ends
	Modified    time.Time  `json:"modified"`
}

// Mode is an enrollment track of a course run.
type Mode struct {
	ID                 string     `json:"id"`
	CourseID           string     `json:"course_id"`
	Slug               string     `json:"mode_slug"`
	DisplayName        string     `json:"mode_display_name"`
	MinPrice           int        `json:"min_price"`
	Currency           string     `json:"currency"`
	ExpirationDatetime *time.Time `json:"expiration_datetime,omitempty"`
}

// NewOverview contains information needed to create or update a course Overview.
type NewOverview struct {
	ID          string     `json:"id" validate:"required,courseid"`
	DisplayName string     `json:"display_name" validate:"required,notblank"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end"`
}

func (no *NewOverview) Validate(validate *validator.Validate) error {
	no.ID = core.CleanString(no.ID)
	no.DisplayName = core.CleanString(no.DisplayName)
	if err := validate.Struct(no); err != nil {
		return err
	}
	if no.End != nil && !no.Start.IsZero() && no.End.Before(no.Start) {
		return core.NewFieldError("end", endBeforeStartText)
	}
	return nil
}

// NewMode contains information needed to create or update a course Mode.
type NewMode struct {
	Slug               string     `json:"mode_slug" validate:"required,modeslug"`
	DisplayName        string     `json:"mode_display_name"`
	MinPrice           int        `json:"min_price" validate:"gte=0"`
	Currency           string     `json:"currency" validate:"omitempty,len=3"`
	ExpirationDatetime *time.Time `json:"expiration_datetime"`
}

func (nm *NewMode) Validate(validate *validator.Validate) error {
	nm.Slug = core.CleanString(nm.Slug, true /* lower */)
	nm.DisplayName = core.CleanString(nm.DisplayName)
	nm.Currency = core.CleanString(nm.Currency, true /* lower */)
	if err := validate.Struct(nm); err != nil {
		return err
	}
	if nm.Currency == "" {
		nm.Currency = DefaultCurrency
	}
	if nm.DisplayName == "" {
		nm.DisplayName = nm.Slug
	}
	return nil
}
