package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"aiagents/internal/core"
)

// Codes used for failures that are not domain errors.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeInternalError   = "INTERNAL_ERROR"
)

const internalErrorMessage = "an unexpected error occurred"

// FieldError describes a single rejected request field.
type FieldError struct {
	Field        string `json:"field"`
	Message      string `json:"message"`
	InvalidValue any    `json:"invalid_value"`
}

// RequestValidationError is returned when a request body or query fails
// field validation. It is rendered as 422.
type RequestValidationError struct {
	Details []FieldError
}

func (e *RequestValidationError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+": "+d.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newFieldError(field, message string, value any) *RequestValidationError {
	return &RequestValidationError{Details: []FieldError{{Field: field, Message: message, InvalidValue: value}}}
}

// handleError converts service and validation errors to HTTP responses
func handleError(c echo.Context, logger *slog.Logger, err error) error {
	now := time.Now().UTC()

	var domainErr *core.Error
	if errors.As(err, &domainErr) {
		body := domainErr.ToJSON()
		body["timestamp"] = now
		return c.JSON(domainErr.HTTPStatusCode(), body)
	}

	var validationErr *RequestValidationError
	if errors.As(err, &validationErr) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    CodeValidationError,
				"message": "request validation failed",
				"details": validationErr.Details,
			},
			"timestamp": now,
		})
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		message := http.StatusText(httpErr.Code)
		if m, ok := httpErr.Message.(string); ok && m != "" {
			message = m
		}
		return c.JSON(httpErr.Code, map[string]interface{}{
			"error": map[string]interface{}{
				"code":    statusCode(httpErr.Code),
				"message": message,
			},
			"timestamp": now,
		})
	}

	// Fallback for unexpected errors
	logger.ErrorContext(c.Request().Context(), "unexpected error",
		append(core.LogAttrs(c.Request().Context()),
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"error", err,
		)...)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"code":    CodeInternalError,
			"message": internalErrorMessage,
		},
		"timestamp": now,
	})
}

// httpErrorHandler renders errors that escape handlers and middleware
// (unknown routes, body limit, recovered panics) with the same envelopes.
func httpErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		if writeErr := handleError(c, logger, err); writeErr != nil {
			logger.Error("failed to write error response", "error", writeErr)
		}
	}
}

// statusCode turns an HTTP status into an upper snake case code,
// e.g. 404 -> NOT_FOUND.
func statusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "HTTP_ERROR"
	}
	return strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}

// decodeError maps JSON decoding failures to field errors.
func decodeError(err error) error {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		field := "body"
		if typeErr.Field != "" {
			field = fieldPath("body", strings.Split(typeErr.Field, "."))
		}
		return newFieldError(field, "value is not a valid "+typeErr.Type.String(), typeErr.Value)
	}

	if errors.Is(err, io.EOF) {
		return newFieldError("body", "field required", nil)
	}
	return newFieldError("body", "invalid JSON: "+err.Error(), nil)
}

// validationDetails converts validator errors into field errors with
// paths like "body -> messages -> 0 -> content".
func validationDetails(location string, err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	details := make([]FieldError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, FieldError{
			Field:        fieldPath(location, namespaceParts(fe.Namespace())),
			Message:      validationMessage(fe),
			InvalidValue: fe.Value(),
		})
	}
	return &RequestValidationError{Details: details}
}

// namespaceParts splits "ChatRequest.messages[0].content" into
// [messages 0 content], dropping the root struct name.
func namespaceParts(namespace string) []string {
	segments := strings.Split(namespace, ".")
	if len(segments) > 1 {
		segments = segments[1:]
	}
	var parts []string
	for _, seg := range segments {
		for seg != "" {
			open := strings.IndexByte(seg, '[')
			if open < 0 {
				parts = append(parts, seg)
				break
			}
			if open > 0 {
				parts = append(parts, seg[:open])
			}
			end := strings.IndexByte(seg[open:], ']')
			if end < 0 {
				parts = append(parts, seg[open:])
				break
			}
			parts = append(parts, seg[open+1:open+end])
			seg = seg[open+end+1:]
		}
	}
	return parts
}

func fieldPath(location string, parts []string) string {
	return strings.Join(append([]string{location}, parts...), " -> ")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "max":
		if fe.Kind() == reflect.String {
			return "ensure this value has at most " + fe.Param() + " characters"
		}
		return "ensure this value is less than or equal to " + fe.Param()
	case "min":
		switch fe.Kind() {
		case reflect.String:
			return "ensure this value has at least " + fe.Param() + " characters"
		case reflect.Slice:
			return "ensure this value has at least " + fe.Param() + " items"
		}
		return "ensure this value is greater than or equal to " + fe.Param()
	case "gte":
		return "ensure this value is greater than or equal to " + fe.Param()
	case "lte":
		return "ensure this value is less than or equal to " + fe.Param()
	case "role":
		return core.ErrInvalidRole.Error()
	case "nonblank":
		return core.ErrEmptyContent.Error()
	default:
		return "failed on the '" + fe.Tag() + "' rule"
	}
}
