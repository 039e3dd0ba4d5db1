package request

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/form"
	"github.com/go-playground/validator/v10"

	"github.com/cfi/selfservice/internal/core"
	"github.com/cfi/selfservice/internal/model"
)

var (
	decoder  = form.NewDecoder()
	validate = validator.New()
)

// untrimmed lists form fields whose values are used verbatim.
var untrimmed = map[string]bool{
	"password":    true,
	"newPassword": true,
}

func init() {
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return f.Name
	})
	validate.RegisterValidation("status", func(fl validator.FieldLevel) bool {
		return model.IsKnownStatus(fl.Field().String())
	})
	validate.RegisterValidation("decision", func(fl validator.FieldLevel) bool {
		return model.IsDecision(fl.Field().String())
	})
	validate.RegisterValidation("timestamp", func(fl validator.FieldLevel) bool {
		_, err := model.ParseTimestamp(fl.Field().String())
		return err == nil
	})
}

// DecodeForm decodes the request's POST form into v and validates it.
// Validation failures are returned as a *core.ServiceError carrying a
// message for the form.
func DecodeForm(r *http.Request, v any) error {
	if err := r.ParseForm(); err != nil {
		return &core.ServiceError{
			Message: "The form could not be read",
			Err:     fmt.Errorf("%w: %w", core.ErrValidation, err),
		}
	}

	values := make(map[string][]string, len(r.PostForm))
	for k, vs := range r.PostForm {
		if untrimmed[k] {
			values[k] = vs
			continue
		}
		trimmed := make([]string, len(vs))
		for i, s := range vs {
			trimmed[i] = model.NormalizeNewlines(strings.TrimSpace(s))
		}
		values[k] = trimmed
	}

	if err := decoder.Decode(v, values); err != nil {
		return &core.ServiceError{
			Message: "The form could not be read",
			Err:     fmt.Errorf("%w: %w", core.ErrValidation, err),
		}
	}
	if err := validate.Struct(v); err != nil {
		return &core.ServiceError{
			Message: validationMessage(err),
			Err:     fmt.Errorf("%w: %w", core.ErrValidation, err),
		}
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "The form is invalid"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fieldMessage(fe))
	}
	return strings.Join(msgs, ". ")
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", fe.Field(), fe.Param())
	case "numeric":
		return fe.Field() + " must contain only digits"
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
	case "status":
		return fe.Field() + " must be one of " + strings.Join(model.KnownStatuses, ", ")
	case "decision":
		return fe.Field() + " must be one of " + strings.Join(model.DecisionStatuses, ", ")
	case "timestamp":
		return fe.Field() + " must be in DD/MM/YYYY HH:MM format"
	default:
		return fe.Field() + " is invalid"
	}
}
