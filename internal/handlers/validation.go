package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/flagforge/flagforge/pkg/errors"
	"github.com/flagforge/flagforge/pkg/response"
	appValidator "github.com/flagforge/flagforge/pkg/validator"
)

// bindAndValidate decodes the JSON body into dest and runs struct validation,
// writing a 400 response itself when either step fails.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request payload"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request payload"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			switch failure.Tag {
			case "required":
				messages = append(messages, failure.Field+" is required")
			case "max":
				messages = append(messages, failure.Field+" is too long")
			default:
				messages = append(messages, failure.Field+" is invalid")
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request payload"
}
