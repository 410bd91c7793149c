package httpapi

import (
	"errors"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"talehub/internal/apperr"
	"talehub/pkg/protocol"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func respond(c *gin.Context, status int, data any, message string) {
	c.JSON(status, protocol.OK(status, data, message))
}

// fail is the only place errors become responses. Internal errors are
// logged and answered with a generic message.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	detail := protocol.ErrorDetail{Code: protocol.ErrorCode(kind)}

	var appErr *apperr.Error
	switch {
	case kind == apperr.KindInternal:
		log.Printf("Internal error on %s %s: %v", c.Request.Method, c.FullPath(), err)
		detail.Message = "Something went wrong"
	case errors.As(err, &appErr):
		detail.Message = appErr.Message
		detail.Field = appErr.Field
	}
	if detail.Message == "" {
		detail.Message = string(kind)
	}
	c.AbortWithStatusJSON(status, protocol.Fail(status, detail))
}

var validate = newValidator()

// newValidator reports field names as they appear in JSON.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// bindJSON decodes and validates the body into dst. On failure it has
// already written the error response.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, apperr.Validation("", "invalid JSON body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			fail(c, apperr.Validation(fe.Field(), validationMessage(fe)))
			return false
		}
		fail(c, apperr.Validation("", err.Error()))
		return false
	}
	return true
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	}
	return fe.Field() + " is invalid"
}

func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		fail(c, apperr.Validation(name, name+" must be a positive integer"))
		return 0, false
	}
	return uint(id), true
}

func notFoundRoute(c *gin.Context) {
	fail(c, apperr.NotFound("route "+c.Request.Method+" "+c.Request.URL.Path+" not found"))
}

func methodNotAllowed(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusMethodNotAllowed, protocol.Fail(http.StatusMethodNotAllowed, protocol.ErrorDetail{
		Code:    protocol.ErrorCodeValidation,
		Message: "method not allowed",
	}))
}
