package viewmodel

import (
	"context"
	"io"

	"go.uber.org/zap"

	"sneakhead/internal/domain/common"
	productdom "sneakhead/internal/domain/product"
	"sneakhead/internal/platform/mainloop"
)

// ProductViewModel exposes the catalog and the product being viewed.
type ProductViewModel struct {
	*base
	repo productdom.Repository

	Product     *Observable[*productdom.Product]
	AllProducts *Observable[[]productdom.Product]
	Loading     *Observable[bool]
}

func NewProductViewModel(repo productdom.Repository, dispatch mainloop.Dispatcher, log *zap.Logger) *ProductViewModel {
	return &ProductViewModel{
		base:        newBase(dispatch, log),
		repo:        repo,
		Product:     NewObservable[*productdom.Product](nil),
		AllProducts: NewObservable([]productdom.Product{}),
		Loading:     NewObservable(false),
	}
}

// LoadAllProducts subscribes to the catalog; later changes keep flowing in.
// A failed read publishes an empty list.
func (vm *ProductViewModel) LoadAllProducts() {
	vm.post(func() { vm.Loading.set(true) })
	sub := vm.repo.GetAllProducts(vm.ctx, func(r common.Result[[]productdom.Product]) {
		vm.post(func() {
			vm.Loading.set(false)
			if r.OK() {
				vm.AllProducts.set(r.Payload)
				return
			}
			vm.log.Warn("[product_vm] load products failed", zap.String("message", r.Message))
			vm.AllProducts.set([]productdom.Product{})
		})
	})
	vm.replace("all", sub)
}

// LoadProduct subscribes to one product. A missing product publishes nil.
func (vm *ProductViewModel) LoadProduct(id string) {
	vm.post(func() { vm.Loading.set(true) })
	sub := vm.repo.GetProductByID(vm.ctx, id, func(r common.Result[*productdom.Product]) {
		vm.post(func() {
			vm.Loading.set(false)
			if r.OK() {
				vm.Product.set(r.Payload)
				return
			}
			vm.Product.set(nil)
		})
	})
	vm.replace("one", sub)
}

func (vm *ProductViewModel) AddProduct(p productdom.Product, cb func(common.Result[productdom.Product])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.AddProduct(ctx, p)
		vm.post(func() { call(cb, r) })
	})
}

// AddProductWithImage uploads data first and stores the resulting URL.
// With no data, or a failed upload, the product gets the placeholder image.
func (vm *ProductViewModel) AddProductWithImage(p productdom.Product, data io.Reader, filename string, cb func(common.Result[productdom.Product])) {
	if data == nil {
		p.Image = productdom.DefaultImage
		vm.AddProduct(p, cb)
		return
	}
	vm.repo.UploadImage(vm.ctx, data, filename, func(url string, ok bool) {
		if vm.closed() {
			return
		}
		if ok {
			p.Image = url
		} else {
			vm.log.Warn("[product_vm] upload failed, using placeholder", zap.String("filename", filename))
			p.Image = productdom.DefaultImage
		}
		vm.AddProduct(p, cb)
	})
}

func (vm *ProductViewModel) UpdateProduct(id string, patch productdom.Patch, cb func(common.Result[common.Empty])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.UpdateProduct(ctx, id, patch)
		vm.post(func() { call(cb, r) })
	})
}

func (vm *ProductViewModel) DeleteProduct(id string, cb func(common.Result[common.Empty])) {
	vm.async(func(ctx context.Context) {
		r := vm.repo.DeleteProduct(ctx, id)
		vm.post(func() { call(cb, r) })
	})
}

// UploadImage forwards to the adapter; cb receives "" on failure.
func (vm *ProductViewModel) UploadImage(data io.Reader, filename string, cb func(url string)) {
	vm.repo.UploadImage(vm.ctx, data, filename, func(url string, ok bool) {
		if vm.closed() {
			return
		}
		if !ok {
			url = ""
		}
		if cb != nil {
			cb(url)
		}
	})
}
