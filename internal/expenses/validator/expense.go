package validator

import (
	"errors"
	"fmt"
	"strings"

	"lofshare/pkg/logger"
	"lofshare/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type ExpenseValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewExpenseValidator(log *logger.Logger) *ExpenseValidator {
	return &ExpenseValidator{
		validate: validator.New(),
		logger:   log,
	}
}

func (v *ExpenseValidator) ValidateExpense(expense *model.SharedExpense) error {
	return v.validateStruct(expense)
}

func (v *ExpenseValidator) ValidateTag(tag *model.MemberTag) error {
	return v.validateStruct(tag)
}

// ValidateShare additionally requires at least one allocation field: a share
// with neither tag, percentage nor custom amount allocates nothing and is
// always a caller mistake.
func (v *ExpenseValidator) ValidateShare(share *model.MemberShare) error {
	if err := v.validateStruct(share); err != nil {
		return err
	}
	if share.Mode() == model.ModeUnset {
		return ValidationErrors{{
			Field:   "share",
			Message: "one of tag_id, share_percentage or custom_amount is required",
		}}
	}
	return nil
}

func (v *ExpenseValidator) ValidateShareUpdate(update *model.MemberShareUpdate) error {
	return v.validateStruct(update)
}

func (v *ExpenseValidator) validateStruct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *ExpenseValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var out ValidationErrors
	for _, err := range errs {
		var message string
		switch err.Tag() {
		case "required":
			message = "this field is required"
		case "email":
			message = "must be a valid email address"
		case "mongodb":
			message = "must be a valid object id"
		case "min":
			message = fmt.Sprintf("must be at least %s", err.Param())
		case "max":
			message = fmt.Sprintf("must be at most %s", err.Param())
		case "gt":
			message = fmt.Sprintf("must be greater than %s", err.Param())
		case "oneof":
			message = fmt.Sprintf("must be one of: %s", err.Param())
		default:
			message = fmt.Sprintf("failed %s validation", err.Tag())
		}
		out = append(out, ValidationError{Field: err.Field(), Message: message})
	}
	return out
}
