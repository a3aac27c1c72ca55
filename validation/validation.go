package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Errors lists every failed rule in the order found.
type Errors []FieldError

func (e Errors) Error() string {
	parts := make([]string, len(e))
	for i, f := range e {
		parts[i] = f.Field + ": " + f.Message
	}
	return strings.Join(parts, "; ")
}

// Fields returns the field errors carried by err, or nil.
func Fields(err error) []FieldError {
	var errs Errors
	if errors.As(err, &errs) {
		return errs
	}
	return nil
}

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(fieldName)
	})
	return validate
}

// fieldName names a field by its mapstructure key. Squashed structs
// return "" so the validator falls back to the Go name, which Struct
// then drops from the path.
func fieldName(fld reflect.StructField) string {
	tag := fld.Tag.Get("mapstructure")
	name, opts, _ := strings.Cut(tag, ",")
	if strings.Contains(opts, "squash") {
		return ""
	}
	if name == "" || name == "-" {
		return toSnakeCase(fld.Name)
	}
	return name
}

// Struct validates s against its `validate` tags.
func Struct(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, FieldError{Field: settingsPath(e.Namespace()), Message: message(e)})
	}
	return out
}

// settingsPath drops the root type and squashed Go names.
func settingsPath(namespace string) string {
	segments := strings.Split(namespace, ".")[1:]
	kept := segments[:0]
	for _, s := range segments {
		if s != "" && (s[0] < 'A' || s[0] > 'Z') {
			kept = append(kept, s)
		}
	}
	return strings.Join(kept, ".")
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s (got: %v)", e.Param(), e.Value())
	case "gte":
		return "must be at least " + e.Param()
	case "lte":
		return "must be at most " + e.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Validator collects rule failures that struct tags cannot express.
type Validator struct {
	errs Errors
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{}
}

// Check records message for field unless ok.
func (v *Validator) Check(ok bool, field, message string) *Validator {
	if !ok {
		v.errs = append(v.errs, FieldError{Field: field, Message: message})
	}
	return v
}

// Duration requires value to parse as a time.Duration.
func (v *Validator) Duration(field, value string) *Validator {
	_, err := time.ParseDuration(value)
	return v.Check(err == nil, field, fmt.Sprintf("invalid duration %q", value))
}

// PositiveDuration requires value to parse as a duration greater than zero.
func (v *Validator) PositiveDuration(field, value string) *Validator {
	d, err := time.ParseDuration(value)
	return v.Check(err == nil && d > 0, field, fmt.Sprintf("must be a positive duration (got: %q)", value))
}

// OneOf requires value to be one of allowed.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	return v.Check(false, field, fmt.Sprintf("must be one of: %s (got: %s)", strings.Join(allowed, ", "), value))
}

// Err returns the collected failures as Errors, or nil.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return v.errs
}
