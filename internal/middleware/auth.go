package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aidesk-io/aidesk/internal/apierrors"
	"github.com/aidesk-io/aidesk/internal/models"
)

// TechnicianKey is the gin context key holding the authenticated
// technician.
const TechnicianKey = "technician"

// TokenValidator validates an access token. Satisfied by the auth
// service.
type TokenValidator interface {
	ValidateToken(token string) (*models.Technician, error)
}

// RequireTechnician rejects requests without a valid bearer token and
// stores the technician identity in the context.
func RequireTechnician(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			apierrors.Error(c, apierrors.CodeUnauthorized)
			c.Abort()
			return
		}

		tech, err := validator.ValidateToken(token)
		if err != nil {
			apierrors.Error(c, apierrors.CodeUnauthorized)
			c.Abort()
			return
		}

		c.Set(TechnicianKey, tech)
		c.Next()
	}
}

// TechnicianFromContext returns the authenticated technician, or nil
// when the request was not authenticated.
func TechnicianFromContext(c *gin.Context) *models.Technician {
	v, ok := c.Get(TechnicianKey)
	if !ok {
		return nil
	}
	tech, _ := v.(*models.Technician)
	return tech
}
