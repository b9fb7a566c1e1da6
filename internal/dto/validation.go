package dto

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Access codes are generated server-side from an alphanumeric alphabet.
// Anything else is rejected at the binding layer before it reaches a query.
var accessCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{4,64}$`)

var registerOnce sync.Once

// RegisterValidations installs the custom binding rules. Safe to call more
// than once.
func RegisterValidations() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("accesscode", func(fl validator.FieldLevel) bool {
				return accessCodePattern.MatchString(fl.Field().String())
			})
		}
	})
}
