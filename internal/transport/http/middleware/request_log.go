package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docai/internal/logger"
)

const (
	HeaderRequestID   = "X-Request-ID"
	HeaderProcessTime = "X-Process-Time"
)

// RequestLog tags every request with an id, stores a request-scoped logger in
// the request context and logs start and completion.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		c.Header(HeaderRequestID, requestID)

		log := logger.With("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), log))
		c.Writer = &timedWriter{ResponseWriter: c.Writer, start: start}

		log.Info("request started",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
		)

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		log.Info("request completed", attrs...)
	}
}

// timedWriter stamps X-Process-Time just before the header is sent.
type timedWriter struct {
	gin.ResponseWriter
	start time.Time
}

func (w *timedWriter) stamp() {
	if !w.Written() {
		elapsed := time.Since(w.start).Seconds()
		w.Header().Set(HeaderProcessTime, strconv.FormatFloat(elapsed, 'f', 6, 64))
	}
}

func (w *timedWriter) WriteHeader(code int) {
	w.stamp()
	w.ResponseWriter.WriteHeader(code)
}

func (w *timedWriter) WriteHeaderNow() {
	w.stamp()
	w.ResponseWriter.WriteHeaderNow()
}

func (w *timedWriter) Write(b []byte) (int, error) {
	w.stamp()
	return w.ResponseWriter.Write(b)
}

func (w *timedWriter) WriteString(s string) (int, error) {
	w.stamp()
	return w.ResponseWriter.WriteString(s)
}
