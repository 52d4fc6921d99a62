package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/erp/syncengine/internal/interfaces/http/dto"
)

// SetupValidator makes gin's validator report fields by their json (or form) name
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "form", "uri"} {
			name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
}

// FormatValidationErrors folds a binding error into one error message
func FormatValidationErrors(err error, requestID string) dto.ErrorResponse {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return dto.Failure(dto.ErrCodeBadRequest, "Malformed request: "+err.Error(), requestID)
	}

	parts := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		parts[i] = fe.Field() + ": " + fieldMessage(fe)
	}
	return dto.Failure(dto.ErrCodeValidation,
		"Request validation failed: "+strings.Join(parts, "; "), requestID)
}

// HandleValidationError aborts with 400 and the formatted binding error
func HandleValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, FormatValidationErrors(err, getRequestID(c)))
}

func fieldMessage(fe validator.FieldError) string {
	unit := ""
	if fe.Kind() == reflect.String {
		unit = " characters"
	}
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "min", "gte":
		return fmt.Sprintf("Must be at least %s%s", fe.Param(), unit)
	case "max", "lte":
		return fmt.Sprintf("Must be at most %s%s", fe.Param(), unit)
	case "uuid":
		return "Invalid UUID format"
	default:
		return "Failed the " + fe.Tag() + " check"
	}
}
