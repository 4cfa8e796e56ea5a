package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Togolese mobile numbers: +228 followed by 8 digits.
var togoPhonePattern = regexp.MustCompile(`^\+228[0-9]{8}$`)

// RegisterCustom installs domain validations on gin's binding engine.
// Request structs opt in with `binding:"togophone"`.
func RegisterCustom() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return nil
	}
	return v.RegisterValidation("togophone", validTogoPhone)
}

func validTogoPhone(fl validator.FieldLevel) bool {
	return togoPhonePattern.MatchString(fl.Field().String())
}
