// internal/domain/product/repository_port.go
package product

import (
	"context"
	"io"

	"sneakhead/internal/domain/common"
)

// Repository is the product adapter contract consumed by view-models and handlers.
//
// Storage (realtime store):
// - collection: products
// - docId: productId (generated by the store)
type Repository interface {
	AddProduct(ctx context.Context, p Product) common.Result[Product]
	UpdateProduct(ctx context.Context, id string, patch Patch) common.Result[common.Empty]
	DeleteProduct(ctx context.Context, id string) common.Result[common.Empty]

	// live reads: fn fires on every change until the subscription is closed
	GetAllProducts(ctx context.Context, fn func(common.Result[[]Product])) common.Subscription
	GetProductByID(ctx context.Context, id string, fn func(common.Result[*Product])) common.Subscription

	// one-shot reads
	ListProducts(ctx context.Context) common.Result[[]Product]
	FindProduct(ctx context.Context, id string) common.Result[*Product]

	// UploadImage runs on a background worker and calls fn on the UI-owning dispatcher.
	UploadImage(ctx context.Context, data io.Reader, filename string, fn func(url string, ok bool))
	Upload(ctx context.Context, data io.Reader, filename string) (string, error)
}

// ImageHost stores an image under publicID and returns its public URL.
type ImageHost interface {
	Upload(ctx context.Context, publicID string, contentType string, data io.Reader) (string, error)
}
