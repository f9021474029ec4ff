package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sinzn/dbDrive/internal/domain"
	"github.com/sinzn/dbDrive/internal/metrics"
	"github.com/sinzn/dbDrive/internal/service"
	"github.com/sinzn/dbDrive/internal/session"
)

// Options carries the presentation settings of the handler.
type Options struct {
	Cookie             session.CookieOptions
	MinPasswordLength  int
	AllowRoleSelection bool
	Logger             *logrus.Logger
	// Metrics may be nil, which also disables the /metrics route.
	Metrics *metrics.Recorder
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	files    service.FileService
	sessions *session.Authority
	cookie   session.CookieOptions
	logger   *logrus.Logger
	metrics  *metrics.Recorder

	minPasswordLength  int
	allowRoleSelection bool
}

func NewHandler(users service.UserService, files service.FileService, sessions *session.Authority, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Handler{
		users:              users,
		files:              files,
		sessions:           sessions,
		cookie:             opts.Cookie,
		logger:             opts.Logger,
		metrics:            opts.Metrics,
		minPasswordLength:  opts.MinPasswordLength,
		allowRoleSelection: opts.AllowRoleSelection,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) error {
	tmpl, err := loadTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	router.Use(requestLogger(h.logger, h.metrics), h.identity())

	router.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/login")
	})
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.metrics != nil {
		router.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	}

	router.GET("/register", h.registerForm)
	router.POST("/register", h.register)
	router.GET("/login", h.loginForm)
	router.POST("/login", h.login)
	router.GET("/logout", h.logout)

	authed := router.Group("/", requireAuth())
	{
		authed.GET("/dashboard", h.dashboard)
		authed.POST("/upload", h.upload)
		authed.GET("/download/:ref", h.download)
		authed.POST("/delete/:id", h.deleteFile)
	}

	admin := router.Group("/admin", requireAuth(), requireRole(domain.RoleAdmin))
	{
		admin.GET("", h.adminIndex)
		admin.GET("/download/:id", h.adminDownload)
		admin.POST("/delete/:id", h.adminDelete)
	}
	return nil
}

func (h *Handler) render(c *gin.Context, status int, name string, data pageData) {
	if snap, ok := domain.SnapshotFromContext(c.Request.Context()); ok {
		data.User = &snap
	}
	c.HTML(status, name, data)
}

func (h *Handler) renderError(c *gin.Context, status int, msg string) {
	h.render(c, status, "error.html", pageData{Title: http.StatusText(status), Error: msg})
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	snap := currentUser(c)
	h.logger.WithFields(logrus.Fields{
		"op":      op,
		"user_id": snap.UserID,
		"error":   err,
	}).Error("request failed")
	h.renderError(c, http.StatusInternalServerError, "Something went wrong, please try again.")
}
