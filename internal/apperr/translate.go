package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind discriminates the persistence-layer failure variants.
type Kind string

const (
	KindCast         Kind = "CastError"
	KindDuplicateKey Kind = "DuplicateKey"
	KindValidation   Kind = "ValidationError"
)

// DuplicateKeyCode is the numeric discriminant of a uniqueness conflict
// (SQLITE_CONSTRAINT_UNIQUE).
const DuplicateKeyCode = 2067

// Failure is a recognized storage failure, wrapped at the repository
// boundary so the Dispatcher never probes driver-specific fields.
type Failure interface {
	error
	Kind() Kind
}

// CastFailure reports an identifier that could not be parsed into the
// storage key type.
type CastFailure struct {
	Path  string
	Value any
	Err   error
}

func (f *CastFailure) Kind() Kind { return KindCast }

func (f *CastFailure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

func (f *CastFailure) Error() string {
	if f == nil {
		return "cast failed"
	}
	return fmt.Sprintf("cast failed for %s: %v", f.Path, f.Value)
}

// DuplicateKeyFailure reports a unique constraint violation.
type DuplicateKeyFailure struct {
	Field string
	Value any
	Code  int
	Err   error
}

func (f *DuplicateKeyFailure) Kind() Kind { return KindDuplicateKey }

func (f *DuplicateKeyFailure) Unwrap() error {
	if f == nil {
		return nil
	}
	return f.Err
}

func (f *DuplicateKeyFailure) Error() string {
	if f == nil {
		return "duplicate key"
	}
	return fmt.Sprintf("duplicate key (code %d) on %s: %v", f.Code, f.Field, f.Value)
}

// Violation is a single field-level validation problem.
type Violation struct {
	Field   string
	Message string
}

// ValidationFailure reports schema violations, in field declaration order.
type ValidationFailure struct {
	Violations []Violation
}

func (f *ValidationFailure) Kind() Kind { return KindValidation }
func (f *ValidationFailure) Error() string {
	if f == nil {
		return "validation failed"
	}
	msgs := make([]string, 0, len(f.Violations))
	for _, v := range f.Violations {
		msgs = append(msgs, v.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// TranslateCast maps a CastFailure to "Invalid <path>: <value>" (400).
func TranslateCast(f *CastFailure) *Error {
	e := Newf(http.StatusBadRequest, "Invalid %s: %v", f.Path, f.Value)
	e.Cause = f
	return e
}

// TranslateDuplicateKey maps a DuplicateKeyFailure to a 400 naming the
// conflicting field and value.
func TranslateDuplicateKey(f *DuplicateKeyFailure) *Error {
	e := Newf(http.StatusBadRequest,
		"Duplicate field value: '%v'. Please use another value for '%s'.", f.Value, f.Field)
	e.Cause = f
	return e
}

// TranslateValidation maps a ValidationFailure to
// "Invalid input data: <v1>. <v2>. ..." (400).
func TranslateValidation(f *ValidationFailure) *Error {
	msgs := make([]string, 0, len(f.Violations))
	for _, v := range f.Violations {
		msgs = append(msgs, v.Message)
	}
	e := Newf(http.StatusBadRequest, "Invalid input data: %s", strings.Join(msgs, ". "))
	e.Cause = f
	return e
}

// Translate converts a recognized Failure anywhere in err's chain into an
// operational *Error. It reports false when err carries no Failure or when
// the Failure is missing the fields its translator needs; callers then treat
// err as an unknown failure.
func Translate(err error) (*Error, bool) {
	var f Failure
	if !errors.As(err, &f) {
		return nil, false
	}
	switch v := f.(type) {
	case *CastFailure:
		if v == nil || v.Path == "" {
			return nil, false
		}
		return TranslateCast(v), true
	case *DuplicateKeyFailure:
		if v == nil || v.Code != DuplicateKeyCode || v.Field == "" {
			return nil, false
		}
		return TranslateDuplicateKey(v), true
	case *ValidationFailure:
		if v == nil || len(v.Violations) == 0 {
			return nil, false
		}
		return TranslateValidation(v), true
	}
	return nil, false
}

// FromValidator wraps go-playground/validator errors (returned by
// validator.Struct and by gin's binding) into a ValidationFailure. It
// returns nil when err holds no field errors.
func FromValidator(err error) *ValidationFailure {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return nil
	}
	out := &ValidationFailure{Violations: make([]Violation, 0, len(verrs))}
	for _, fe := range verrs {
		out.Violations = append(out.Violations, Violation{
			Field:   fe.Field(),
			Message: violationMessage(fe),
		})
	}
	return out
}

func violationMessage(fe validator.FieldError) string {
	field, param := fe.Field(), fe.Param()
	isString := fe.Kind() == reflect.String

	switch fe.Tag() {
	case "required":
		return field + " required"
	case "email":
		return field + " must be a valid email"
	case "uuid", "uuid4":
		return field + " must be a valid UUID"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "gt":
		if param == "0" && !isString {
			return field + " must be positive"
		}
		return fmt.Sprintf("%s must be greater than %s", field, param)
	case "gte", "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "lte", "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", field, param)
		}
		return fmt.Sprintf("%s must be at most %s", field, param)
	}
	return field + " is invalid"
}
