package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docai/internal/logger"
	"docai/internal/transport/http/response"
)

func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.FromContext(c.Request.Context()).Error("panic recovered",
			"panic", recovered,
			"path", c.Request.URL.Path,
		)
		response.Abort(c, http.StatusInternalServerError, response.CodeInternalServer, "internal server error")
	})
}
