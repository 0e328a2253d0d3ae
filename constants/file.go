package constants

import "strings"

// Source formats the dispatcher routes on.
const (
	TABULAR = "TABULAR"
	PDF     = "PDF"
	IMAGE   = "IMAGE"
	ARCHIVE = "ARCHIVE"
)

// AllowedExtensions is the dispatcher allow-list; anything else is rejected.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"xlsx": {},
	"xls":  {},
	"csv":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"zip":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ExtOf returns the lowercase extension of a file name, without the dot.
func ExtOf(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[i+1:])
}

// IsAllowed reports whether ext is on the upload allow-list.
func IsAllowed(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MapExtToFormat classifies an extension into a pipeline route.
// Unknown extensions map to "".
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "csv", "xlsx", "xls":
		return TABULAR
	case "pdf":
		return PDF
	case "jpg", "jpeg", "png":
		return IMAGE
	case "zip":
		return ARCHIVE
	default:
		return ""
	}
}
