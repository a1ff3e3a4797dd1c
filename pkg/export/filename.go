package export

import (
	"strings"
	"time"
)

// Filename derives the download name from the report title and a date:
// lowercase alphanumerics joined by underscores, suffixed with YYYY-MM-DD.
func Filename(title string, at time.Time, ext string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}
	slug := b.String()
	if slug == "" {
		slug = "report"
	}
	if ext == "" {
		ext = "pdf"
	}
	return slug + "_" + at.Format("2006-01-02") + "." + strings.TrimPrefix(ext, ".")
}
