package handlers

import (
	"errors"
	"net/http"

	"saasan/internal/middleware"
	"saasan/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{services.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{services.ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{services.ErrInvalidState, http.StatusConflict, "INVALID_STATE"},
	{services.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION"},
	{services.ErrUpload, http.StatusBadGateway, "UPLOAD_FAILED"},
	{services.ErrStorage, http.StatusBadGateway, "STORAGE_ERROR"},
}

// RespondError maps a service error onto the HTTP error body. Unknown
// errors are logged by the access log and hidden from the client.
func RespondError(c *gin.Context, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			middleware.AbortError(c, m.status, m.code, err.Error())
			return
		}
	}
	_ = c.Error(err)
	middleware.AbortError(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
}

// bind decodes a JSON body and reports binding failures as validation errors.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.AbortError(c, http.StatusBadRequest, "VALIDATION_ERROR", bindingMessage(err))
		return false
	}
	return true
}

func bindingMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required":
			return fe.Field() + " is required"
		case "oneof":
			return fe.Field() + " must be one of: " + fe.Param()
		case "max":
			return fe.Field() + " is too long"
		case "gte":
			return fe.Field() + " must not be negative"
		}
		return fe.Field() + " is invalid"
	}
	return "malformed request body"
}

// actor returns the authenticated caller or writes 401.
func actor(c *gin.Context) (services.Actor, bool) {
	a, ok := middleware.CurrentActor(c)
	if !ok {
		middleware.AbortError(c, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
	}
	return a, ok
}
