package gcs

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
)

// sanitizePathSegment strips separators and leading/trailing dots from one object path segment.
func sanitizePathSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.Trim(s, ". ")
}

// ensureExtensionByMIME appends an extension when fileName has none.
func ensureExtensionByMIME(fileName, mime string) string {
	if strings.Contains(path.Base(strings.TrimSpace(fileName)), ".") {
		return fileName
	}
	switch strings.ToLower(strings.TrimSpace(mime)) {
	case "image/jpeg", "image/jpg":
		return fileName + ".jpg"
	case "image/png":
		return fileName + ".png"
	case "image/webp":
		return fileName + ".webp"
	case "image/gif":
		return fileName + ".gif"
	default:
		return fileName
	}
}

func newObjectID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err == nil {
		return hex.EncodeToString(b)
	}
	return fmt.Sprintf("%d", time.Now().UTC().UnixNano())
}
