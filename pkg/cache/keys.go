package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// ReportListPattern matches every cached report list page.
const ReportListPattern = "reports:list:*"

// ReportListKey builds the cache key of one list page for a visibility scope.
// Scope parts are hashed so department ids and status sets never leak into key names.
func ReportListKey(scope []string, page, pageSize int) string {
	h := sha1.New()
	_, _ = h.Write([]byte(strings.Join(scope, "|")))
	return fmt.Sprintf("reports:list:%s:%d:%d", hex.EncodeToString(h.Sum(nil))[:16], page, pageSize)
}
