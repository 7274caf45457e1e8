package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docai/internal/app"
	"docai/internal/model"
	"docai/internal/transport/http/response"
)

const ContextUserKey = "current_user"

// Authenticator resolves a bearer token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

func AuthJWT(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if authHeader == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
			return
		}

		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.Header("WWW-Authenticate", "Bearer")
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid authorization scheme")
			return
		}

		user, err := auth.Authenticate(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			switch {
			case errors.Is(err, app.ErrInactiveUser):
				response.Abort(c, http.StatusBadRequest, response.CodeInactiveUser, err.Error())
			case errors.Is(err, app.ErrUnauthenticated):
				c.Header("WWW-Authenticate", "Bearer")
				response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, err.Error())
			default:
				response.Abort(c, http.StatusInternalServerError, response.CodeInternalServer, "authenticate failed")
			}
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RequireSuperuser must run after AuthJWT.
func RequireSuperuser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, response.CodeUnauthorized, "not authenticated")
			return
		}
		if !user.IsSuperuser {
			response.Abort(c, http.StatusForbidden, response.CodeForbidden, "not enough permissions")
			return
		}
		c.Next()
	}
}

func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}
