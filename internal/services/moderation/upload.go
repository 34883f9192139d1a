// Package moderation decides what attachments and chat messages each party
// can see, and validates uploads before they reach storage.
package moderation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
)

const MaxUploadSize = 40 << 20 // 40MB

var allowedExt = map[string]bool{
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".odt": true, ".rtf": true, ".txt": true, ".md": true, ".tex": true,
	// spreadsheets
	".xls": true, ".xlsx": true, ".ods": true, ".csv": true,
	// slides
	".ppt": true, ".pptx": true, ".odp": true,
	// images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true, ".bmp": true,
	// archives
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true,
}

var videoExt = map[string]bool{
	".mp4": true, ".mov": true, ".avi": true, ".mkv": true, ".wmv": true, ".flv": true,
	".webm": true, ".m4v": true, ".mpeg": true, ".mpg": true, ".3gp": true,
}

// ValidateUpload rejects empty, oversized and disallowed files. It only looks
// at metadata so it can run before anything is written.
func ValidateUpload(name, contentType string, size int64) error {
	if strings.TrimSpace(name) == "" || size <= 0 {
		return apperr.Validation(apperr.CodeNoFile, "no file uploaded")
	}
	if size > MaxUploadSize {
		return apperr.Validation(apperr.CodeFileTooLarge,
			fmt.Sprintf("file exceeds the %dMB limit", MaxUploadSize>>20)).With("max_bytes", MaxUploadSize)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if videoExt[ext] || strings.HasPrefix(strings.ToLower(contentType), "video/") {
		return apperr.Validation(apperr.CodeInvalidFileFormat, "video files are not allowed")
	}
	if !allowedExt[ext] {
		return apperr.Validation(apperr.CodeInvalidFileFormat, "file type "+ext+" is not allowed")
	}
	return nil
}
