package review

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sprite-ai/adreview/internal/backend"
	"github.com/sprite-ai/adreview/internal/model"
)

// Intent is a manual review decision: Approve or Reject.
type Intent interface {
	Decision() model.ReviewStatus
	request() backend.ManualReview
}

// Approve approves a material.
type Approve struct{}

func (Approve) Decision() model.ReviewStatus { return model.StatusApproved }

func (Approve) request() backend.ManualReview {
	return backend.ManualReview{ReviewStatus: model.StatusApproved}
}

// Reject rejects a material. Reason is required.
type Reject struct {
	Reason string
}

func (Reject) Decision() model.ReviewStatus { return model.StatusRejected }

func (r Reject) request() backend.ManualReview {
	return backend.ManualReview{
		ReviewStatus: model.StatusRejected,
		Reason:       strings.TrimSpace(r.Reason),
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the payload an intent would send. It returns a
// *ValidationError for the first invalid field.
func Validate(i Intent) error {
	if i == nil {
		return &ValidationError{Field: "reviewStatus", Message: "a decision is required"}
	}
	err := validate.Struct(i.request())
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &ValidationError{Field: fe.Field(), Message: validationMessage(fe)}
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required_if", "required":
		if fe.Field() == "reason" {
			return "a rejection reason is required"
		}
		return "is required"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag()
	}
}
