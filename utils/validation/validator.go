package validation

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator. Handlers validate request
// bodies through struct tags before any business logic runs, so a malformed
// payload is rejected without touching the database or the payment gateway.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		validate: validator.New(),
	}
}

// ValidateStruct validates a struct using struct tags
func (v *Validator) ValidateStruct(s interface{}) error {
	return v.validate.Struct(s)
}
