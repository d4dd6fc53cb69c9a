package mediatypes

import (
	"path"
	"strings"
)

// MediaType is the integer classification stored in the media_type column.
type MediaType int

const (
	// MediaTypeImage marks still images, including the still half of a Live Photo.
	MediaTypeImage MediaType = 0
	// MediaTypeVideo marks videos, including Live Photo motion components.
	MediaTypeVideo MediaType = 1
)

// Valid reports whether t is one of the known media types.
func (t MediaType) Valid() bool {
	return t == MediaTypeImage || t == MediaTypeVideo
}

// String returns the label used for metrics and logs.
func (t MediaType) String() string {
	switch t {
	case MediaTypeImage:
		return "image"
	case MediaTypeVideo:
		return "video"
	default:
		return "unknown"
	}
}

// ImageExtensions maps file extensions to whether they are supported image formats.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
	".tiff": true,
	".tif":  true,
	".heic": true,
	".heif": true,
	".avif": true,
	".dng":  true,
	".cr2":  true,
	".nef":  true,
	".arw":  true,
}

// VideoExtensions maps file extensions to whether they are supported video formats.
var VideoExtensions = map[string]bool{
	".mp4":  true,
	".mkv":  true,
	".avi":  true,
	".mov":  true,
	".wmv":  true,
	".webm": true,
	".m4v":  true,
	".mpeg": true,
	".mpg":  true,
	".3gp":  true,
	".mts":  true,
	".m2ts": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".webp": "image/webp",
	".tiff": "image/tiff",
	".tif":  "image/tiff",
	".heic": "image/heic",
	".heif": "image/heif",
	".avif": "image/avif",

	".mp4":  "video/mp4",
	".mkv":  "video/x-matroska",
	".avi":  "video/x-msvideo",
	".mov":  "video/quicktime",
	".wmv":  "video/x-ms-wmv",
	".webm": "video/webm",
	".m4v":  "video/x-m4v",
	".mpeg": "video/mpeg",
	".mpg":  "video/mpeg",
	".3gp":  "video/3gpp",
	".mts":  "video/mp2t",
	".m2ts": "video/mp2t",
}

// FromMime classifies a MIME type. ok is false when the MIME type is neither
// image/* nor video/*.
func FromMime(mime string) (MediaType, bool) {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MediaTypeImage, true
	case strings.HasPrefix(mime, "video/"):
		return MediaTypeVideo, true
	}
	return MediaTypeImage, false
}

// FromPath classifies a file by its extension.
func FromPath(p string) (MediaType, bool) {
	ext := strings.ToLower(path.Ext(p))
	if VideoExtensions[ext] {
		return MediaTypeVideo, true
	}
	if ImageExtensions[ext] {
		return MediaTypeImage, true
	}
	return MediaTypeImage, false
}

// Classify prefers the MIME type and falls back to the extension.
func Classify(mime, p string) (MediaType, bool) {
	if t, ok := FromMime(mime); ok {
		return t, true
	}
	return FromPath(p)
}

// GetMimeType returns the MIME type for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the path has a supported media extension.
func IsMediaFile(p string) bool {
	_, ok := FromPath(p)
	return ok
}
