package lesson

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

var (
	lessonStatusTag  = "lessonstatus"
	lessonStatusText = "status must be one of not-started, in-progress or completed"
)

// InitValidators registers the lesson validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) error {
	if err := validate.RegisterValidation(lessonStatusTag, lessonStatusValidation); err != nil {
		return errors.Wrap(err, "registering "+lessonStatusTag)
	}
	core.RegisterCustomTranslation(validate, translator, lessonStatusTag, lessonStatusText)
	return nil
}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

func lessonStatusValidation(fl validator.FieldLevel) bool {
	if status, ok := fl.Field().Interface().(string); ok {
		return IsValidStatus(status)
	}
	return false
}
