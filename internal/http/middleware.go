package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sinzn/dbDrive/internal/domain"
	"github.com/sinzn/dbDrive/internal/metrics"
	"github.com/sinzn/dbDrive/internal/session"
)

func requestLogger(logger logrus.FieldLogger, rec *metrics.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		rec.RecordRequest(c.Request.Method, c.FullPath(), status)

		entry := logger.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.Request.URL.Path,
			"status":    status,
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if snap, ok := domain.SnapshotFromContext(c.Request.Context()); ok {
			entry = entry.WithField("user_id", snap.UserID)
		}
		switch {
		case status >= http.StatusInternalServerError:
			entry.Error("request failed")
		case c.FullPath() == "/healthz" || c.FullPath() == "/metrics":
			entry.Debug("request")
		default:
			entry.Info("request")
		}
	}
}

// identity resolves the session cookie once and stores the snapshot in the
// request context. Anonymous requests pass through untouched.
func (h *Handler) identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := session.TokenFromRequest(c.Request, h.cookie)
		if token == "" {
			c.Next()
			return
		}

		snap, err := h.sessions.CurrentUser(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, domain.ErrUnauthenticated) {
				session.ClearCookie(c.Writer, h.cookie)
			} else {
				h.logger.WithError(err).Error("resolve session")
			}
			c.Next()
			return
		}

		c.Request = c.Request.WithContext(domain.WithSnapshot(c.Request.Context(), snap))
		c.Next()
	}
}

func requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := domain.SnapshotFromContext(c.Request.Context()); !ok {
			c.Redirect(http.StatusFound, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

// requireRole must run after requireAuth. Callers without the role are sent
// back to their dashboard.
func requireRole(role domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, ok := domain.SnapshotFromContext(c.Request.Context())
		if !ok || snap.Role != role {
			c.Redirect(http.StatusFound, "/dashboard")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) domain.Snapshot {
	snap, _ := domain.SnapshotFromContext(c.Request.Context())
	return snap
}
