package application

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterConfigValidators registers the custom validation functions the
// configuration schema references in its struct tags.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("modelformat", validateModelFormat); err != nil {
		return fmt.Errorf("register modelformat validator: %w", err)
	}
	return nil
}

// validateModelFormat checks that a model string follows the
// provider/model pattern with both halves non-empty.
func validateModelFormat(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}

	provider, name, found := strings.Cut(model, "/")
	return found && provider != "" && name != ""
}
