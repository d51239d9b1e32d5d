package services

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/tbourn/go-widget-api/internal/apperr"
)

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New()
	})
	return validate
}

// validateInput checks payload against its `validate` tags. Field errors come
// back as *apperr.ValidationFailure; anything else (e.g. an invalid payload
// type) is returned unchanged.
func validateInput(payload any) error {
	err := getValidator().Struct(payload)
	if err == nil {
		return nil
	}
	if vf := apperr.FromValidator(err); vf != nil {
		return vf
	}
	return err
}
