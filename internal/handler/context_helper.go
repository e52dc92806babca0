package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/campusnotes/campus-notes-api/internal/middleware"
	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
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

// flatError writes the flat {"error": "..."} shape used by the note and
// file endpoints, as opposed to the enveloped auth/subject responses.
func flatError(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.JSON(appErr.Status, gin.H{"error": appErr.Message})
}
