package http

import (
	"embed"
	"fmt"
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/sinzn/dbDrive/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageData is the single view model shared by all pages.
type pageData struct {
	Title string
	User  *domain.Snapshot
	Error string

	Username           string
	MinPasswordLength  int
	AllowRoleSelection bool

	Files  []domain.FileRecord
	Owners []ownerFiles
}

type ownerFiles struct {
	Username string
	Files    []domain.FileRecord
}

func loadTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"humanSize":  humanSize,
		"formatTime": formatTime,
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// groupByOwner keeps the id order of records within each owner and orders
// owners by their first file.
func groupByOwner(records []domain.FileRecord) []ownerFiles {
	var groups []ownerFiles
	index := make(map[int64]int)
	for _, rec := range records {
		i, ok := index[rec.UserID]
		if !ok {
			i = len(groups)
			index[rec.UserID] = i
			groups = append(groups, ownerFiles{Username: rec.OwnerUsername})
		}
		groups[i].Files = append(groups[i].Files, rec)
	}
	return groups
}

func humanSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}
