package object

import (
	"net/http"
	"path/filepath"
	"strings"
)

var extensionTypes = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain; charset=utf-8",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".webm": "audio/webm",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

// DetectContentType sniffs head and falls back to the file extension when the
// sniffer only recognises a generic container (DOCX is a zip, webm audio is
// reported as video).
func DetectContentType(head []byte, fileName string) string {
	sniffed := http.DetectContentType(head)
	ext := strings.ToLower(filepath.Ext(fileName))
	byExt, known := extensionTypes[ext]
	if !known {
		return sniffed
	}
	switch {
	case strings.HasPrefix(sniffed, "application/zip"),
		strings.HasPrefix(sniffed, "application/octet-stream"),
		strings.HasPrefix(sniffed, "video/webm"),
		strings.HasPrefix(sniffed, "text/plain") && !strings.HasPrefix(byExt, "text/"):
		return byExt
	}
	return sniffed
}
