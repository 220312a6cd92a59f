// Package templates holds the embedded HTML templates for the web UI and
// renders them either to the response or to a string for SSE patching.
package templates

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"time"
)

//go:embed *.html
var files embed.FS

var funcs = template.FuncMap{
	"kd":      formatKd,
	"timeago": formatTimeAgo,
	"csv":     func(vals []string) string { return strings.Join(vals, ", ") },
}

var tmpl = template.Must(template.New("").Funcs(funcs).ParseFS(files, "*.html"))

// Render executes the named template into a string, for SSE element
// patches.
func Render(name string, data any) (string, error) {
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return b.String(), nil
}

// Page executes the named template as a full HTML response.
func Page(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, name, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// formatKd renders an affinity for display: whole numbers without
// decimals, otherwise one decimal place.
func formatKd(v *float64) string {
	if v == nil {
		return "-"
	}
	if *v == float64(int64(*v)) {
		return strconv.FormatInt(int64(*v), 10)
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

// formatTimeAgo renders a human-friendly relative timestamp.
func formatTimeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
