package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medpoint/authsvc/internal/common"
)

// contextUserIDKey is the gin context key under which requireAuth stores the
// authenticated user id for downstream handlers.
const contextUserIDKey = "auth.user_id"

const bearerPrefix = "Bearer "

// requireAuth validates the bearer access token. An expired token gets a
// distinct error code so clients know to call refresh instead of logging in
// again.
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Code:    "UNAUTHORIZED",
				Message: "bearer access token required",
			})
			return
		}

		userID, err := s.auth.VerifyAccess(strings.TrimPrefix(header, bearerPrefix))
		if err != nil {
			code := "INVALID_TOKEN"
			if errors.Is(err, common.ErrTokenExpired) {
				code = "TOKEN_EXPIRED"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{
				Code:    code,
				Message: "access token rejected",
			})
			return
		}

		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}
