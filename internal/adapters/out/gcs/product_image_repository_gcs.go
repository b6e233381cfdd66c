package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"cloud.google.com/go/storage"

	productdom "sneakhead/internal/domain/product"
)

// ProductImageRepositoryGCS stores product images in a GCS bucket.
//
// Layout:
// - objectPath: <prefix>/<publicId><ext>
//
// The bucket is expected to grant allUsers object read, so the returned URL is public.
type ProductImageRepositoryGCS struct {
	Client        *storage.Client
	Bucket        string
	Prefix        string
	PublicBaseURL string
}

func NewProductImageRepositoryGCS(client *storage.Client, bucket, prefix string) *ProductImageRepositoryGCS {
	return &ProductImageRepositoryGCS{
		Client:        client,
		Bucket:        strings.TrimSpace(bucket),
		Prefix:        strings.Trim(strings.TrimSpace(prefix), "/"),
		PublicBaseURL: "https://storage.googleapis.com",
	}
}

var _ productdom.ImageHost = (*ProductImageRepositoryGCS)(nil)

func (r *ProductImageRepositoryGCS) Upload(ctx context.Context, publicID, contentType string, data io.Reader) (string, error) {
	if r == nil || r.Client == nil {
		return "", errors.New("product_image_gcs: storage client is nil")
	}
	if r.Bucket == "" {
		return "", errors.New("product_image_gcs: bucket is empty")
	}
	name := sanitizePathSegment(publicID)
	if name == "" {
		name = newObjectID()
	}
	obj := ensureExtensionByMIME(name, contentType)
	if r.Prefix != "" {
		obj = r.Prefix + "/" + obj
	}

	// Cancelling wctx aborts the upload; Close would commit the partial object.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := r.Client.Bucket(r.Bucket).Object(obj).NewWriter(wctx)
	w.ContentType = strings.TrimSpace(contentType)
	w.CacheControl = "public, max-age=3600"
	if _, err := io.Copy(w, data); err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("product_image_gcs: write %s: %w", obj, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("product_image_gcs: close %s: %w", obj, err)
	}
	return r.PublicURL(obj), nil
}

// PublicURL returns the public https URL of an object in the configured bucket.
func (r *ProductImageRepositoryGCS) PublicURL(objectPath string) string {
	base := strings.TrimRight(strings.TrimSpace(r.PublicBaseURL), "/")
	if base == "" {
		base = "https://storage.googleapis.com"
	}
	segs := strings.Split(strings.TrimLeft(objectPath, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return base + "/" + r.Bucket + "/" + strings.Join(segs, "/")
}
