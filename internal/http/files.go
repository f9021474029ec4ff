package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sinzn/dbDrive/internal/domain"
)

func (h *Handler) dashboard(c *gin.Context) {
	h.renderDashboard(c, http.StatusOK, "")
}

func (h *Handler) renderDashboard(c *gin.Context, status int, errMsg string) {
	files, err := h.files.List(c.Request.Context(), currentUser(c))
	if err != nil {
		h.internalError(c, "list files", err)
		return
	}
	h.render(c, status, "dashboard.html", pageData{
		Title: "Your files",
		Error: errMsg,
		Files: files,
	})
}

func (h *Handler) upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		h.renderDashboard(c, http.StatusBadRequest, "Please choose a file to upload.")
		return
	}

	f, err := header.Open()
	if err != nil {
		h.internalError(c, "open upload", err)
		return
	}
	defer f.Close()

	_, err = h.files.Upload(c.Request.Context(), currentUser(c), f, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			h.renderDashboard(c, http.StatusBadRequest, "The upload was rejected.")
			return
		}
		h.internalError(c, "upload", err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) download(c *gin.Context) {
	id, ok := parseID(c.Param("ref"))
	if !ok {
		h.fileNotFound(c)
		return
	}
	record, rc, err := h.files.Open(c.Request.Context(), currentUser(c), id)
	h.serveFile(c, record, rc, err)
}

func (h *Handler) deleteFile(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fileNotFound(c)
		return
	}
	if err := h.files.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		h.fileError(c, "delete", err)
		return
	}
	c.Redirect(http.StatusFound, "/dashboard")
}

func (h *Handler) serveFile(c *gin.Context, record *domain.FileRecord, rc io.ReadCloser, err error) {
	if err != nil {
		h.fileError(c, "download", err)
		return
	}
	defer rc.Close()

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": record.OriginalName})
	if disposition == "" {
		disposition = "attachment"
	}
	c.DataFromReader(http.StatusOK, record.Size, record.ContentType, rc, map[string]string{
		"Content-Disposition":    disposition,
		"X-Content-Type-Options": "nosniff",
	})
}

// fileError hides foreign files behind the same response as missing ones.
func (h *Handler) fileError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		h.fileNotFound(c)
	default:
		h.internalError(c, op, err)
	}
}

func (h *Handler) fileNotFound(c *gin.Context) {
	h.renderError(c, http.StatusNotFound, "file not found")
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
