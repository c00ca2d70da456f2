package storage

import (
	"path/filepath"
	"strings"
)

var staticThumbnails = map[string]string{
	"doc":  StaticThumbnailPrefix + "docx.png",
	"docx": StaticThumbnailPrefix + "docx.png",
	"xls":  StaticThumbnailPrefix + "xlsx.png",
	"xlsx": StaticThumbnailPrefix + "xlsx.png",
	"ppt":  StaticThumbnailPrefix + "pptx.png",
	"pptx": StaticThumbnailPrefix + "pptx.png",
	"txt":  StaticThumbnailPrefix + "txt.png",
	"csv":  StaticThumbnailPrefix + "csv.png",
	"json": StaticThumbnailPrefix + "json.png",
	"zip":  StaticThumbnailPrefix + "zip.png",
	"rar":  StaticThumbnailPrefix + "rar.png",
}

var imageExtensions = map[string]bool{
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"tiff": true,
}

// DeriveThumbnailKey picks the thumbnail for a freshly registered document.
// Images are their own thumbnail. PDFs keep the caller-provided key, since
// the frontend renders and uploads a first-page thumbnail alongside the file.
// Everything else maps to a bundled static icon.
func DeriveThumbnailKey(fileName, fileKey, provided string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if imageExtensions[ext] {
		return fileKey
	}
	if ext == "pdf" {
		return provided
	}
	if key, ok := staticThumbnails[ext]; ok {
		return key
	}
	return StaticThumbnailPrefix + "default.png"
}
