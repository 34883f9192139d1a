package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Windi-Fikriyansyah/writers_market_be/internal/apperr"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		contentType string
		size        int64
		code        string
	}{
		{"pdf ok", "brief.pdf", "application/pdf", 1024, ""},
		{"docx upper ext ok", "Draft.DOCX", "", 2048, ""},
		{"exactly 40MB ok", "big.zip", "application/zip", MaxUploadSize, ""},
		{"over 40MB", "big.zip", "application/zip", MaxUploadSize + 1, apperr.CodeFileTooLarge},
		{"video ext", "lecture.mp4", "application/octet-stream", 1024, apperr.CodeInvalidFileFormat},
		{"video content type", "clip.bin", "video/quicktime", 1024, apperr.CodeInvalidFileFormat},
		{"unknown ext", "setup.exe", "application/octet-stream", 1024, apperr.CodeInvalidFileFormat},
		{"no ext", "README", "", 1024, apperr.CodeInvalidFileFormat},
		{"empty", "notes.txt", "text/plain", 0, apperr.CodeNoFile},
		{"no name", "", "", 10, apperr.CodeNoFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.file, tt.contentType, tt.size)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperr.Is(err, tt.code), "got %v", err)
		})
	}
}
