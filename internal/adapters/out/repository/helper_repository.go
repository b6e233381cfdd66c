package repository

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
)

// Store values come back as whatever the backend decoded: Firestore yields
// int64/float64, the in-memory store returns what was written.

func asString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	default:
		return fmt.Sprint(v)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int32:
		return int(t)
	case int64:
		return int(t)
	case float32:
		return int(t)
	case float64:
		return int(t)
	case string:
		var n int
		_, _ = fmt.Sscanf(strings.TrimSpace(t), "%d", &n)
		return n
	default:
		return 0
	}
}

func asDecimal(v any) decimal.Decimal {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t)
	case float32:
		return decimal.NewFromFloat32(t)
	case int:
		return decimal.NewFromInt(int64(t))
	case int64:
		return decimal.NewFromInt(t)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero
		}
		return d
	case decimal.Decimal:
		return t
	default:
		return decimal.Zero
	}
}

// DefaultUploadName names uploads whose filename is unknown.
const DefaultUploadName = "uploaded_image"

// UploadName derives the remote public id from a local filename: directory and
// last extension are dropped ("shoes/photo.final.jpg" -> "photo.final").
func UploadName(filename string) string {
	name := strings.TrimSpace(filepath.Base(strings.TrimSpace(filename)))
	if name == "." || name == string(filepath.Separator) {
		name = ""
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[:i]
	}
	if name == "" {
		return DefaultUploadName
	}
	return name
}

// ForceHTTPS rewrites a plain-http URL to https.
func ForceHTTPS(url string) string {
	u := strings.TrimSpace(url)
	const plain = "http://"
	if len(u) >= len(plain) && strings.EqualFold(u[:len(plain)], plain) {
		return "https://" + u[len(plain):]
	}
	return u
}

// contentType guesses the MIME type from the filename extension.
func contentType(filename string) string {
	switch strings.ToLower(filepath.Ext(strings.TrimSpace(filename))) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
