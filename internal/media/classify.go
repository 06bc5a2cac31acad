package media

import (
	"mime"
	"path/filepath"
	"regexp"
	"strings"
)

// SourceKind identifies which upstream service a media link belongs to.
type SourceKind string

const (
	SourceDrive   SourceKind = "drive"
	SourceDropbox SourceKind = "dropbox"
	SourceUnknown SourceKind = ""
)

var driveFileIDRe = regexp.MustCompile(`/file/d/([A-Za-z0-9_-]+)/`)

// ClassifyLink inspects a media link and reports which service it points
// to, plus the Drive file ID when applicable.
func ClassifyLink(link string) (SourceKind, string) {
	lower := strings.ToLower(link)
	if strings.Contains(lower, "/file/d/") {
		if m := driveFileIDRe.FindStringSubmatch(link); m != nil {
			return SourceDrive, m[1]
		}
		return SourceDrive, ""
	}
	if strings.Contains(lower, "dropbox.com") {
		return SourceDropbox, ""
	}
	return SourceUnknown, ""
}

var imageMimes = map[string]bool{
	"image/jpeg": true, "image/png": true, "image/webp": true, "image/gif": true, "image/tiff": true,
}
var videoMimes = map[string]bool{
	"video/mp4": true, "video/quicktime": true, "video/x-msvideo": true, "video/x-matroska": true,
}
var audioMimes = map[string]bool{
	"audio/mpeg": true, "audio/wav": true, "audio/aac": true, "audio/ogg": true,
}

const pdfMime = "application/pdf"

// DetectMediaType classifies a MIME type (falling back to a filename
// extension guess) into one of the model.MediaType values.
func DetectMediaType(mimeType, filenameHint string) string {
	m := strings.ToLower(mimeType)
	switch {
	case imageMimes[m]:
		return "image"
	case videoMimes[m]:
		return "video"
	case audioMimes[m]:
		return "audio"
	case m == pdfMime:
		return "pdf"
	}
	if guessed := mime.TypeByExtension(filepath.Ext(filenameHint)); guessed != "" {
		g := strings.ToLower(guessed)
		switch {
		case strings.HasPrefix(g, "image/"):
			return "image"
		case strings.HasPrefix(g, "video/"):
			return "video"
		case strings.HasPrefix(g, "audio/"):
			return "audio"
		case g == pdfMime:
			return "pdf"
		}
	}
	return "other"
}

// GuessExtension derives a lowercase file extension from a MIME type,
// falling back to a filename hint's own extension, and finally "bin".
func GuessExtension(mimeType, filenameHint string) string {
	ext := ""
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		ext = exts[0]
	}
	if ext == "" && filenameHint != "" {
		ext = filepath.Ext(filenameHint)
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpe" {
		ext = "jpg"
	}
	if ext == "" {
		ext = "bin"
	}
	return ext
}
