package tmdb

import "strings"

// Image size segments understood by the provider CDN.
const (
	SizeOriginal = "original"
	SizePoster   = "w500"
	SizeThumb    = "w185"
)

// ImageURL joins the CDN base, a size segment and a relative image path.
// It returns "" when path is empty.
func ImageURL(base, size, path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if path == "" {
		return ""
	}
	if size == "" {
		size = SizeOriginal
	}
	return strings.TrimRight(base, "/") + "/" + size + "/" + path
}
