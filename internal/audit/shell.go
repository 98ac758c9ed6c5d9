package audit

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultShellThreshold is the body size under which script-heavy pages are
// treated as unrendered shells.
const DefaultShellThreshold = 2048

// mountSelectors are the SPA mount points a client bundle renders into.
const mountSelectors = "#root, #app, #__next, [data-reactroot]"

// ShellDetector reports whether HTML is an SPA shell a crawler would see as empty.
type ShellDetector struct {
	Threshold int
}

// NewShellDetector returns a detector; a zero threshold uses DefaultShellThreshold.
func NewShellDetector(threshold int) *ShellDetector {
	if threshold <= 0 {
		threshold = DefaultShellThreshold
	}
	return &ShellDetector{Threshold: threshold}
}

// LooksLikeShell applies three rules: an empty body, an empty mount point, or
// a small document dominated by script tags.
func (d *ShellDetector) LooksLikeShell(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err == nil {
		mount := doc.Find(mountSelectors).First()
		if mount.Length() > 0 && mount.Children().Length() == 0 && strings.TrimSpace(mount.Text()) == "" {
			return true
		}
	}
	return len(body) < d.Threshold && scriptCoverage(body) >= 25
}

// scriptCoverage returns the percentage of the document inside <script> elements.
func scriptCoverage(body []byte) int {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return 0
	}
	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	covered := 0
	pos := 0
	for {
		rel := strings.Index(lower[pos:], openTag)
		if rel == -1 {
			break
		}
		start := pos + rel
		tagEnd := strings.IndexByte(lower[start:], '>')
		if tagEnd == -1 {
			covered += total - start
			break
		}
		contentStart := start + tagEnd + 1
		next := total
		if end := strings.Index(lower[contentStart:], closeTag); end != -1 {
			next = contentStart + end + len(closeTag)
		}
		covered += next - start
		pos = next
	}
	return covered * 100 / total
}
