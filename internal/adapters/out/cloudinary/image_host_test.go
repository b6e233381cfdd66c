package cloudinary

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploadAPI struct {
	got    uploader.UploadParams
	result *uploader.UploadResult
	err    error
}

func (f *fakeUploadAPI) Upload(_ context.Context, _ interface{}, p uploader.UploadParams) (*uploader.UploadResult, error) {
	f.got = p
	return f.result, f.err
}

func TestImageHost_Upload(t *testing.T) {
	tests := []struct {
		name    string
		api     *fakeUploadAPI
		wantURL string
		wantErr string
	}{
		{
			name:    "prefers secure url",
			api:     &fakeUploadAPI{result: &uploader.UploadResult{URL: "http://res.cloudinary.com/x.png", SecureURL: "https://res.cloudinary.com/x.png"}},
			wantURL: "https://res.cloudinary.com/x.png",
		},
		{
			name:    "falls back to plain url",
			api:     &fakeUploadAPI{result: &uploader.UploadResult{URL: "http://res.cloudinary.com/x.png"}},
			wantURL: "http://res.cloudinary.com/x.png",
		},
		{
			name:    "api error in body",
			api:     &fakeUploadAPI{result: &uploader.UploadResult{Error: api.ErrorResp{Message: "Invalid Signature"}}},
			wantErr: "Invalid Signature",
		},
		{
			name:    "transport error",
			api:     &fakeUploadAPI{err: errors.New("dial tcp: timeout")},
			wantErr: "timeout",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &ImageHost{api: tt.api, folder: "products"}
			url, err := h.Upload(t.Context(), "photo", "image/png", strings.NewReader("x"))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantURL, url)
			assert.Equal(t, "photo", tt.api.got.PublicID)
			assert.Equal(t, ResourceTypeImage, tt.api.got.ResourceType)
			assert.Equal(t, "products", tt.api.got.Folder)
		})
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New(Config{CloudName: "demo"})
	assert.Error(t, err)
}
