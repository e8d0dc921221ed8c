package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ratiba/core"
)

var (
	modeSlugTag  = "modeslug"
	modeSlugText = "unknown course mode"

	endBeforeStartText = "the course cannot end before it starts"
)

// InitValidators registers the course validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(modeSlugTag, modeSlugValidation)
	core.RegisterCustomTranslation(validate, translator, modeSlugTag, modeSlugText)
}

func modeSlugValidation(fl validator.FieldLevel) bool {
	return IsKnownMode(fl.Field().String())
}
