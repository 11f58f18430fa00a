package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/medpoint/authsvc/internal/common"
	"github.com/medpoint/authsvc/internal/server/services"
)

// refreshCookieName is the cookie carrying the refresh token. HttpOnly always;
// Secure per configuration.
const refreshCookieName = "refresh"

type loginRequest struct {
	Credentials string `json:"credentials" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    "INVALID_INPUT",
			Message: "credentials and password are required",
		})
		return
	}

	pair, err := s.auth.Login(c.Request.Context(), req.Credentials, req.Password)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	s.setRefreshCookie(c, pair)
	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (s *Server) refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshCookieName)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse{
			Code:    "REFRESH_REQUIRED",
			Message: "refresh cookie is missing",
		})
		return
	}

	pair, err := s.auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnavailable) {
			s.writeServiceError(c, err)
			return
		}
		// Expired, invalid, revoked, or wrong-kind refresh token: the
		// session is over, the client must log in again.
		s.clearRefreshCookie(c)
		c.JSON(http.StatusUnauthorized, errorResponse{
			Code:    "INVALID_REFRESH",
			Message: "refresh token is invalid or expired",
		})
		return
	}

	s.setRefreshCookie(c, pair)
	c.JSON(http.StatusOK, tokenResponse{AccessToken: pair.AccessToken})
}

func (s *Server) logout(c *gin.Context) {
	refreshToken, _ := c.Cookie(refreshCookieName)

	if err := s.auth.Logout(c.Request.Context(), refreshToken); err != nil {
		s.writeServiceError(c, err)
		return
	}

	s.clearRefreshCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user_id": c.GetString(contextUserIDKey)})
}

// writeServiceError maps service-level sentinel errors onto HTTP statuses.
// Credential failures get one uniform body regardless of cause.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrorInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{
			Code:    "INVALID_CREDENTIALS",
			Message: "invalid credentials",
		})
	case errors.Is(err, common.ErrorUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse{
			Code:    "SERVICE_UNAVAILABLE",
			Message: "try again later",
		})
	default:
		s.logger.Error(c.Request.Context(), "unexpected service error", "error", err.Error())
		c.JSON(http.StatusInternalServerError, errorResponse{
			Code:    "INTERNAL",
			Message: "internal error",
		})
	}
}

func (s *Server) setRefreshCookie(c *gin.Context, pair *services.TokenPair) {
	maxAge := int(time.Until(pair.RefreshExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, pair.RefreshToken, maxAge, "/", "", s.cookieSecure, true)
}

func (s *Server) clearRefreshCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(refreshCookieName, "", -1, "/", "", s.cookieSecure, true)
}
