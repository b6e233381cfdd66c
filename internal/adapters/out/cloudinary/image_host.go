// Package cloudinary uploads product images to Cloudinary.
package cloudinary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"

	productdom "sneakhead/internal/domain/product"
)

// ResourceTypeImage is the Cloudinary resource type for every product upload.
const ResourceTypeImage = "image"

type uploadAPI interface {
	Upload(ctx context.Context, file interface{}, params uploader.UploadParams) (*uploader.UploadResult, error)
}

// ImageHost implements product.ImageHost on the Cloudinary upload API.
type ImageHost struct {
	api    uploadAPI
	folder string
}

// Config holds the account credentials. APISecret may be a Secret Manager
// reference resolved before this point.
type Config struct {
	CloudName string `koanf:"cloud_name"`
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
	Folder    string `koanf:"folder"`
}

func New(cfg Config) (*ImageHost, error) {
	if strings.TrimSpace(cfg.CloudName) == "" || strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, errors.New("cloudinary: cloud name, api key and api secret are required")
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("cloudinary: init: %w", err)
	}
	return &ImageHost{api: &cld.Upload, folder: strings.Trim(strings.TrimSpace(cfg.Folder), "/")}, nil
}

var _ productdom.ImageHost = (*ImageHost)(nil)

func (h *ImageHost) Upload(ctx context.Context, publicID, _ string, data io.Reader) (string, error) {
	if h == nil || h.api == nil {
		return "", errors.New("cloudinary: client is nil")
	}
	params := uploader.UploadParams{
		PublicID:     strings.TrimSpace(publicID),
		ResourceType: ResourceTypeImage,
		Folder:       h.folder,
	}
	res, err := h.api.Upload(ctx, data, params)
	if err != nil {
		return "", fmt.Errorf("cloudinary: upload %q: %w", publicID, err)
	}
	if res == nil {
		return "", errors.New("cloudinary: empty upload response")
	}
	if msg := strings.TrimSpace(res.Error.Message); msg != "" {
		return "", fmt.Errorf("cloudinary: upload %q: %s", publicID, msg)
	}
	if res.SecureURL != "" {
		return res.SecureURL, nil
	}
	if res.URL != "" {
		return res.URL, nil
	}
	return "", errors.New("cloudinary: upload returned no url")
}
