// Package apperror holds the error taxonomy shared by the ledger, linking,
// settlement and payout packages, and its mapping onto HTTP status codes.
package apperror

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrCsrfMismatch         = errors.New("oauth state mismatch")
	ErrNotOnboarded         = errors.New("ambassador has no linked payout account")
	ErrAlreadySettled       = errors.New("contract already settled")
	ErrSettlementInProgress = errors.New("contract settlement already in progress")
)

// ValidationError reports a schema constraint violation such as a missing
// required field or a duplicate unique value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for a single field.
func Invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the entity name so messages stay readable.
func NotFound(entity string) error {
	return fmt.Errorf("%s %w", entity, ErrNotFound)
}

// FromValidator converts the first validator.FieldError into a ValidationError.
// Other errors are returned unchanged.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return Invalid(field, "is required")
	case "email":
		return Invalid(field, "must be a valid email address")
	case "url":
		return Invalid(field, "must be a valid URL")
	case "gt", "gte", "min":
		return Invalid(field, "must be at least "+fe.Param())
	case "max", "lte":
		return Invalid(field, "must be at most "+fe.Param())
	case "oneof":
		return Invalid(field, "must be one of "+fe.Param())
	default:
		return Invalid(field, "failed "+fe.Tag()+" validation")
	}
}

// FromGorm translates gorm sentinels into the taxonomy. Unknown errors pass through.
func FromGorm(err error, entity string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(entity)
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicateKey(err):
		return Invalid("", entity+" already exists")
	default:
		return err
	}
}

// Drivers without gorm's TranslateError still report duplicates in the message.
func isDuplicateKey(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate entry") || strings.Contains(msg, "unique constraint failed")
}

// HTTPStatus maps an error of the taxonomy to the status the HTTP layer returns.
// Processor failures implement StatusCoder and report 402 themselves.
func HTTPStatus(err error) int {
	var verr *ValidationError
	var sc StatusCoder
	switch {
	case err == nil:
		return fiber.StatusOK
	case errors.As(err, &verr):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrCsrfMismatch):
		return fiber.StatusForbidden
	case errors.Is(err, ErrNotOnboarded):
		return fiber.StatusConflict
	case errors.Is(err, ErrAlreadySettled), errors.Is(err, ErrSettlementInProgress):
		return fiber.StatusConflict
	case errors.As(err, &sc):
		return sc.HTTPStatus()
	default:
		return fiber.StatusInternalServerError
	}
}

// StatusCoder is implemented by errors that carry their own client-facing status.
type StatusCoder interface {
	HTTPStatus() int
}

// PublicMessage returns the message safe to show to a client. Unexpected
// errors collapse to a generic message; their detail only goes to the log.
func PublicMessage(err error) string {
	if HTTPStatus(err) == fiber.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
