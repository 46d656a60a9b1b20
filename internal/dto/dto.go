package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/dittygoops/helpdesk-backend/pkg/apperror"
	pkgvalidator "github.com/dittygoops/helpdesk-backend/pkg/validator"
)

var validate = validator.New()

// Validate checks the struct tags on an input and reports violations as
// ErrInvalidInput with a formatted message.
func Validate(input any) error {
	if err := validate.Struct(input); err != nil {
		return apperror.New(apperror.ErrInvalidInput, pkgvalidator.FormatValidationError(err))
	}
	return nil
}
