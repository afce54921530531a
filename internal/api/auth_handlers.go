package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aidesk-io/aidesk/internal/apierrors"
	"github.com/aidesk-io/aidesk/internal/service"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// handleLogin authenticates a technician and returns a bearer token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.ErrorWithMessage(c, apierrors.CodeValidationFailed, err.Error())
		return
	}

	tech, token, err := s.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			apierrors.Error(c, apierrors.CodeInvalidCredential)
			return
		}
		s.logger.Printf("login: %v", err)
		apierrors.Error(c, apierrors.CodeInternalError)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "technician": tech})
}
