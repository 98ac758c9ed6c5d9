package seo

import "strings"

// KnownSections are the top-level site sections with dedicated output files.
var KnownSections = []string{"eat", "stay", "do", "blog", "surf", "calendar", "info"}

// Layout selects how logical paths become physical files.
type Layout string

// Supported layouts.
const (
	// LayoutFlat writes /eat/foo as eat/foo.html.
	LayoutFlat Layout = "flat"
	// LayoutDirectoryIndex writes /eat/foo as eat/foo/index.html so a static
	// web root serves it at the matching URL.
	LayoutDirectoryIndex Layout = "directory"
)

// ParseLayout returns the layout for a config value, defaulting to LayoutFlat.
func ParseLayout(raw string) Layout {
	switch Layout(strings.ToLower(strings.TrimSpace(raw))) {
	case LayoutDirectoryIndex, "public", "index":
		return LayoutDirectoryIndex
	default:
		return LayoutFlat
	}
}

// Map returns the physical file path of logicalPath under the layout.
func (l Layout) Map(logicalPath string) string {
	if l == LayoutDirectoryIndex {
		trimmed := strings.Trim(NormalizePath(logicalPath), "/")
		if trimmed == "" {
			return "index.html"
		}
		return trimmed + "/index.html"
	}
	return MapToPhysicalPath(logicalPath)
}

// MapToPhysicalPath maps a logical page path to its flat output filename.
func MapToPhysicalPath(logicalPath string) string {
	if logicalPath == "/" {
		return "index.html"
	}
	trimmed := strings.Trim(logicalPath, "/")
	if trimmed == "" {
		return "index.html"
	}
	parts := strings.Split(trimmed, "/")
	switch {
	case len(parts) == 1 && isKnownSection(parts[0]):
		return parts[0] + ".html"
	case len(parts) == 2 && isKnownSection(parts[0]):
		return parts[0] + "/" + parts[1] + ".html"
	default:
		return trimmed + ".html"
	}
}

func isKnownSection(segment string) bool {
	for _, s := range KnownSections {
		if s == segment {
			return true
		}
	}
	return false
}

// ClassifyFile reports the file type of a logical path for deployment stats.
func ClassifyFile(logicalPath string) FileType {
	path := NormalizePath(logicalPath)
	if path == "/" {
		return FileTypeHome
	}
	trimmed := strings.Trim(path, "/")
	section, rest, nested := strings.Cut(trimmed, "/")
	if !nested || rest == "" {
		if isKnownSection(section) {
			return FileTypeCategory
		}
		return FileTypeStatic
	}
	switch section {
	case "eat":
		return FileTypeRestaurant
	case "stay":
		return FileTypeHotel
	case "do":
		return FileTypeActivity
	case "blog":
		return FileTypeBlog
	default:
		return FileTypeStatic
	}
}
