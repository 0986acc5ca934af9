package media

import (
	"mime"
	"net/url"
	"path"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is served for unknown extensions
const DefaultContentType = "application/octet-stream"

// extTypes maps cached file extensions to the content type they are served with
var extTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
}

// typeExts is the reverse table used when persisting a download
var typeExts = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/svg+xml":   ".svg",
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
}

// KnownExtensions lists the extensions probed when the index has no entry.
// The empty extension comes last.
var KnownExtensions = []string{".jpg", ".png", ".webp", ".gif", ".jpeg", ".svg", ".mp4", ".webm", ".mov", ""}

var (
	trailingIndex = regexp.MustCompile(`/+\d+$`)
	safeExt       = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)
)

// ContentTypeForExt maps an extension (with dot) to a content type
func ContentTypeForExt(ext string) string {
	if ct, ok := extTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return DefaultContentType
}

// ContentTypeForFile maps a cached filename to a content type
func ContentTypeForFile(name string) string {
	return ContentTypeForExt(path.Ext(name))
}

// ExtForContentType maps a Content-Type header value to an extension.
// Parameters such as "; charset=binary" are ignored.
func ExtForContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return typeExts[strings.ToLower(mediaType)]
}

// ExtFromURL takes the extension of the URL path after dropping a trailing
// "/<digits>" segment, so ".../image.webp/0" yields ".webp".
func ExtFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	clean := trailingIndex.ReplaceAllString(u.Path, "")
	ext := path.Ext(clean)
	if !safeExt.MatchString(ext) {
		return ""
	}
	return strings.ToLower(ext)
}

// sniffExt detects the type from the payload and maps it through the table
func sniffExt(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return ExtForContentType(mimetype.Detect(data).String())
}

// ResolveExt picks the file extension for a download: the response content
// type first, then the URL path, then the payload itself.
func ResolveExt(contentType, rawURL string, data []byte) string {
	if ext := ExtForContentType(contentType); ext != "" {
		return ext
	}
	if ext := ExtFromURL(rawURL); ext != "" {
		return ext
	}
	return sniffExt(data)
}
