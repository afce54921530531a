package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/aidesk-io/aidesk/internal/models"
)

type fakeValidator struct {
	tech *models.Technician
}

func (v *fakeValidator) ValidateToken(token string) (*models.Technician, error) {
	if token == "good" {
		return v.tech, nil
	}
	return nil, errors.New("invalid token")
}

func authRouter() *gin.Engine {
	validator := &fakeValidator{tech: &models.Technician{ID: "tech-1", Name: "Carlos"}}
	router := gin.New()
	router.GET("/protected", RequireTechnician(validator), func(c *gin.Context) {
		tech := TechnicianFromContext(c)
		c.JSON(http.StatusOK, gin.H{"name": tech.Name})
	})
	return router
}

func TestRequireTechnician_ValidToken(t *testing.T) {
	router := authRouter()

	req, _ := http.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer good")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Carlos")
}

func TestRequireTechnician_Rejections(t *testing.T) {
	router := authRouter()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"empty token", "Bearer "},
		{"bad token", "Bearer bogus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestTechnicianFromContext_Unauthenticated(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, TechnicianFromContext(c))
}
