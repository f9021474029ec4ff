package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sinzn/dbDrive/internal/domain"
	"github.com/sinzn/dbDrive/internal/metrics"
	"github.com/sinzn/dbDrive/internal/session"
)

func (h *Handler) registerForm(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", h.registerPage("", ""))
}

func (h *Handler) registerPage(username, errMsg string) pageData {
	return pageData{
		Title:              "Register",
		Error:              errMsg,
		Username:           username,
		MinPasswordLength:  h.minPasswordLength,
		AllowRoleSelection: h.allowRoleSelection,
	}
}

func (h *Handler) register(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	role := c.PostForm("role")

	user, err := h.users.Register(c.Request.Context(), username, password, role)
	switch {
	case err == nil:
		h.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("user registered")
		c.Redirect(http.StatusFound, "/login")
	case errors.Is(err, domain.ErrDuplicateUser):
		h.render(c, http.StatusConflict, "register.html", h.registerPage(username, "User already exists"))
	case errors.Is(err, domain.ErrInvalidInput):
		msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidInput.Error()+": ")
		h.render(c, http.StatusBadRequest, "register.html", h.registerPage(username, msg))
	default:
		h.internalError(c, "register", err)
	}
}

func (h *Handler) loginForm(c *gin.Context) {
	if snap, ok := domain.SnapshotFromContext(c.Request.Context()); ok {
		c.Redirect(http.StatusFound, landingPage(snap.Role))
		return
	}
	h.render(c, http.StatusOK, "login.html", pageData{Title: "Login"})
}

func (h *Handler) login(c *gin.Context) {
	ctx := c.Request.Context()
	username := c.PostForm("username")

	user, err := h.users.VerifyCredentials(ctx, username, c.PostForm("password"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			h.metrics.RecordLogin(metrics.LoginFailure)
			h.render(c, http.StatusUnauthorized, "login.html", pageData{
				Title:    "Login",
				Error:    "Invalid credentials",
				Username: username,
			})
			return
		}
		h.internalError(c, "login", err)
		return
	}

	// one session per client: drop whatever the cookie carried before
	if prev := session.TokenFromRequest(c.Request, h.cookie); prev != "" {
		if err := h.sessions.DestroySession(ctx, prev); err != nil {
			h.logger.WithError(err).Warn("destroy previous session")
		}
	}

	s, err := h.sessions.CreateSession(ctx, *user)
	if err != nil {
		h.internalError(c, "create session", err)
		return
	}
	session.SetCookie(c.Writer, s.Token, s.ExpiresAt, h.cookie)
	h.metrics.RecordLogin(metrics.LoginSuccess)
	h.logger.WithField("user_id", user.ID).Info("user logged in")

	c.Redirect(http.StatusFound, landingPage(user.Role))
}

func (h *Handler) logout(c *gin.Context) {
	if token := session.TokenFromRequest(c.Request, h.cookie); token != "" {
		if err := h.sessions.DestroySession(c.Request.Context(), token); err != nil {
			h.logger.WithError(err).Warn("destroy session")
		}
	}
	session.ClearCookie(c.Writer, h.cookie)
	c.Redirect(http.StatusFound, "/login")
}

func landingPage(role domain.Role) string {
	if role == domain.RoleAdmin {
		return "/admin"
	}
	return "/dashboard"
}
