package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/exam-assign-api/internal/middleware"
	"github.com/noah-isme/exam-assign-api/internal/models"
	appErrors "github.com/noah-isme/exam-assign-api/pkg/errors"
	"github.com/noah-isme/exam-assign-api/pkg/response"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

// bindJSON decodes the request body, responding with a validation error on failure.
func bindJSON(c *gin.Context, dest interface{}, message string) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message))
		return false
	}
	return true
}

// respondWithMessage sends data with the write notification in meta.message.
func respondWithMessage(c *gin.Context, status int, data interface{}, message string) {
	middleware.SetMessage(c, message)
	response.JSON(c, status, data, nil, middleware.ResponseMeta(c))
}
