package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) adminIndex(c *gin.Context) {
	records, err := h.files.ListAll(c.Request.Context())
	if err != nil {
		h.internalError(c, "list all files", err)
		return
	}
	h.render(c, http.StatusOK, "admin.html", pageData{
		Title:  "All files",
		Owners: groupByOwner(records),
	})
}

func (h *Handler) adminDownload(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fileNotFound(c)
		return
	}
	record, rc, err := h.files.AdminOpen(c.Request.Context(), id)
	h.serveFile(c, record, rc, err)
}

func (h *Handler) adminDelete(c *gin.Context) {
	id, ok := parseID(c.Param("id"))
	if !ok {
		h.fileNotFound(c)
		return
	}
	if err := h.files.AdminDelete(c.Request.Context(), id); err != nil {
		h.fileError(c, "admin delete", err)
		return
	}
	c.Redirect(http.StatusFound, "/admin")
}
