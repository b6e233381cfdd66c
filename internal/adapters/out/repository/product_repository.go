package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"sneakhead/internal/domain/common"
	productdom "sneakhead/internal/domain/product"
	"sneakhead/internal/infra/realtime"
	"sneakhead/internal/platform/mainloop"
)

// CollectionProducts is the store collection holding the catalog.
const CollectionProducts = "products"

// ProductRepository implements product.Repository on a realtime.Store.
//
// Storage:
// - collection: products
// - docId: productId (generated by the store; docId is the source of truth)
type ProductRepository struct {
	Store    realtime.Store
	Images   productdom.ImageHost
	Uploads  *ants.Pool
	Dispatch mainloop.Dispatcher
	Log      *zap.Logger
}

func NewProductRepository(store realtime.Store, images productdom.ImageHost, uploads *ants.Pool, dispatch mainloop.Dispatcher, log *zap.Logger) *ProductRepository {
	if dispatch == nil {
		dispatch = mainloop.Immediate{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductRepository{Store: store, Images: images, Uploads: uploads, Dispatch: dispatch, Log: log}
}

var _ productdom.Repository = (*ProductRepository)(nil)

func (r *ProductRepository) AddProduct(ctx context.Context, p productdom.Product) common.Result[productdom.Product] {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return common.Fail[productdom.Product](err.Error(), err)
	}

	p.ID = r.Store.NewKey(CollectionProducts)
	if err := r.Store.Set(ctx, CollectionProducts, p.ID, productFields(p)); err != nil {
		r.Log.Warn("[product_repo] add failed", zap.Error(err))
		return common.Fail[productdom.Product](errMessage(err), err)
	}
	return common.Ok("product added", p)
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, id string, patch productdom.Patch) common.Result[common.Empty] {
	pid := strings.TrimSpace(id)
	if pid == "" {
		return common.Fail[common.Empty](productdom.ErrInvalidID.Error(), productdom.ErrInvalidID)
	}
	if err := patch.Validate(); err != nil {
		return common.Fail[common.Empty](err.Error(), err)
	}

	if err := r.Store.Update(ctx, CollectionProducts, pid, patch.Fields()); err != nil {
		if errors.Is(err, realtime.ErrNotFound) {
			return common.Fail[common.Empty]("product not found", productdom.ErrNotFound)
		}
		r.Log.Warn("[product_repo] update failed", zap.String("productId", pid), zap.Error(err))
		return common.Fail[common.Empty](errMessage(err), err)
	}
	return common.Ok("product updated", common.Empty{})
}

func (r *ProductRepository) DeleteProduct(ctx context.Context, id string) common.Result[common.Empty] {
	pid := strings.TrimSpace(id)
	if pid == "" {
		return common.Fail[common.Empty](productdom.ErrInvalidID.Error(), productdom.ErrInvalidID)
	}
	if err := r.Store.Remove(ctx, CollectionProducts, pid); err != nil {
		r.Log.Warn("[product_repo] delete failed", zap.String("productId", pid), zap.Error(err))
		return common.Fail[common.Empty](errMessage(err), err)
	}
	return common.Ok("product deleted", common.Empty{})
}

func (r *ProductRepository) GetAllProducts(ctx context.Context, fn func(common.Result[[]productdom.Product])) common.Subscription {
	return r.Store.Watch(ctx, CollectionProducts, func(snap realtime.Snapshot) {
		if snap.Err != nil {
			fn(common.Fail[[]productdom.Product](errMessage(snap.Err), snap.Err))
			return
		}
		fn(common.Ok("fetched", productsFromDocs(snap.Docs)))
	})
}

func (r *ProductRepository) GetProductByID(ctx context.Context, id string, fn func(common.Result[*productdom.Product])) common.Subscription {
	pid := strings.TrimSpace(id)
	if pid == "" {
		fn(common.Fail[*productdom.Product](productdom.ErrInvalidID.Error(), productdom.ErrInvalidID))
		return common.SubscriptionFunc(func() error { return nil })
	}
	return r.Store.WatchDoc(ctx, CollectionProducts, pid, func(snap realtime.DocSnapshot) {
		switch {
		case snap.Err != nil:
			fn(common.Fail[*productdom.Product](errMessage(snap.Err), snap.Err))
		case snap.Doc == nil:
			fn(common.Fail[*productdom.Product]("product not found", productdom.ErrNotFound))
		default:
			p := productFromDoc(*snap.Doc)
			fn(common.Ok("product fetched", &p))
		}
	})
}

func (r *ProductRepository) ListProducts(ctx context.Context) common.Result[[]productdom.Product] {
	docs, err := r.Store.Find(ctx, CollectionProducts)
	if err != nil {
		return common.Fail[[]productdom.Product](errMessage(err), err)
	}
	return common.Ok("fetched", productsFromDocs(docs))
}

func (r *ProductRepository) FindProduct(ctx context.Context, id string) common.Result[*productdom.Product] {
	pid := strings.TrimSpace(id)
	if pid == "" {
		return common.Fail[*productdom.Product](productdom.ErrInvalidID.Error(), productdom.ErrInvalidID)
	}
	doc, err := r.Store.Get(ctx, CollectionProducts, pid)
	if err != nil {
		if errors.Is(err, realtime.ErrNotFound) {
			return common.Fail[*productdom.Product]("product not found", productdom.ErrNotFound)
		}
		return common.Fail[*productdom.Product](errMessage(err), err)
	}
	p := productFromDoc(doc)
	return common.Ok("product fetched", &p)
}

// UploadImage uploads on the background pool and calls fn on the dispatcher.
// Any failure, including a panicking host, is reported as ("", false).
func (r *ProductRepository) UploadImage(ctx context.Context, data io.Reader, filename string, fn func(url string, ok bool)) {
	deliver := func(url string, err error) {
		if err != nil {
			r.Log.Warn("[product_repo] image upload failed", zap.String("filename", filename), zap.Error(err))
		}
		r.Dispatch.Post(func() { fn(url, err == nil && url != "") })
	}

	task := func() {
		var (
			url string
			err error
		)
		defer func() {
			if rec := recover(); rec != nil {
				url, err = "", fmt.Errorf("image upload panicked: %v", rec)
			}
			deliver(url, err)
		}()
		url, err = r.Upload(ctx, data, filename)
	}

	if r.Uploads == nil {
		go task()
		return
	}
	if err := r.Uploads.Submit(task); err != nil {
		deliver("", err)
	}
}

func (r *ProductRepository) Upload(ctx context.Context, data io.Reader, filename string) (string, error) {
	if r.Images == nil {
		return "", errors.New("product_repo: image host is not configured")
	}
	if data == nil {
		return "", errors.New("product_repo: image data is nil")
	}
	url, err := r.Images.Upload(ctx, UploadName(filename), contentType(filename), data)
	if err != nil {
		return "", err
	}
	url = ForceHTTPS(url)
	if url == "" {
		return "", errors.New("product_repo: image host returned no url")
	}
	return url, nil
}

// ---- mapping ----

func productFields(p productdom.Product) map[string]any {
	return map[string]any{
		productdom.FieldID:          p.ID,
		productdom.FieldName:        p.Name,
		productdom.FieldPrice:       p.Price.InexactFloat64(),
		productdom.FieldDescription: p.Description,
		productdom.FieldImage:       p.Image,
	}
}

func productFromDoc(doc realtime.Doc) productdom.Product {
	d := doc.Data
	p := productdom.Product{
		ID:          doc.ID,
		Name:        asString(d[productdom.FieldName]),
		Price:       asDecimal(d[productdom.FieldPrice]),
		Description: asString(d[productdom.FieldDescription]),
		Image:       asString(d[productdom.FieldImage]),
	}
	if p.Image == "" {
		p.Image = productdom.DefaultImage
	}
	return p
}

func productsFromDocs(docs []realtime.Doc) []productdom.Product {
	out := make([]productdom.Product, 0, len(docs))
	for _, d := range docs {
		out = append(out, productFromDoc(d))
	}
	return out
}
