// internal/adapters/in/http/handlers/product_handler.go
package handlers

import (
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sneakhead/internal/application/viewmodel"
	"sneakhead/internal/domain/common"
	productdom "sneakhead/internal/domain/product"
	"sneakhead/internal/platform/mainloop"
)

const maxImageBytes = 10 << 20

// ProductHandler serves /products.
type ProductHandler struct {
	repo     productdom.Repository
	dispatch mainloop.Dispatcher
	log      *zap.Logger
}

func NewProductHandler(repo productdom.Repository, dispatch mainloop.Dispatcher, log *zap.Logger) *ProductHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ProductHandler{repo: repo, dispatch: dispatch, log: log.Named("product_handler")}
}

// RegisterPublic mounts the read routes.
func (h *ProductHandler) RegisterPublic(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/stream", h.stream)
	r.Get("/products/{id}", h.get)
}

// RegisterAuthed mounts the write routes; r must already require a session.
func (h *ProductHandler) RegisterAuthed(r chi.Router) {
	r.Post("/products", h.create)
	r.Post("/products/images", h.uploadImage)
	r.Patch("/products/{id}", h.update)
	r.Delete("/products/{id}", h.delete)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	respond(w, h.log, http.StatusOK, h.repo.ListProducts(r.Context()))
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	respond(w, h.log, http.StatusOK, h.repo.FindProduct(r.Context(), chi.URLParam(r, "id")))
}

type productRequest struct {
	Name        string          `json:"productName"`
	Price       decimal.Decimal `json:"productPrice"`
	Description string          `json:"productDesc"`
	Image       string          `json:"image"`
}

// create accepts JSON, or multipart with an optional "image" file. A failed
// upload falls back to the placeholder image.
func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		h.createMultipart(w, r)
		return
	}
	var req productRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	p := productdom.Product{Name: req.Name, Price: req.Price, Description: req.Description, Image: req.Image}
	respond(w, h.log, http.StatusCreated, h.repo.AddProduct(r.Context(), p))
}

func (h *ProductHandler) createMultipart(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		badRequest(w, h.log, "invalid multipart form: "+err.Error())
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(r.FormValue("productPrice")))
	if err != nil {
		badRequest(w, h.log, "productPrice must be a number")
		return
	}
	p := productdom.Product{
		Name:        r.FormValue("productName"),
		Price:       price,
		Description: r.FormValue("productDesc"),
		Image:       productdom.DefaultImage,
	}

	if file, hdr, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if url, err := h.repo.Upload(r.Context(), file, hdr.Filename); err == nil && url != "" {
			p.Image = url
		} else {
			h.log.Warn("[product_handler] upload failed, using placeholder", zap.String("filename", hdr.Filename), zap.Error(err))
		}
	} else if err != http.ErrMissingFile {
		badRequest(w, h.log, "invalid image: "+err.Error())
		return
	}
	respond(w, h.log, http.StatusCreated, h.repo.AddProduct(r.Context(), p))
}

func (h *ProductHandler) uploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageBytes); err != nil {
		badRequest(w, h.log, "invalid multipart form: "+err.Error())
		return
	}
	file, hdr, err := r.FormFile("image")
	if err != nil {
		badRequest(w, h.log, "image file is required")
		return
	}
	defer file.Close()

	url, err := h.repo.Upload(r.Context(), file, hdr.Filename)
	if err != nil {
		writeJSON(w, h.log, http.StatusBadGateway, envelope{Message: "image upload failed"})
		return
	}
	writeJSON(w, h.log, http.StatusCreated, envelope{OK: true, Message: "image uploaded", Data: map[string]string{"url": url}})
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decode(w, r, &body); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	patch, err := productdom.PatchFromMap(body)
	if err != nil {
		respond(w, h.log, http.StatusOK, common.Fail[common.Empty](err.Error(), err))
		return
	}
	respond(w, h.log, http.StatusOK, h.repo.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch))
}

func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request) {
	respond(w, h.log, http.StatusOK, h.repo.DeleteProduct(r.Context(), chi.URLParam(r, "id")))
}

// stream pushes the live catalog as "products" events, driven by a
// view-model scoped to the connection.
func (h *ProductHandler) stream(w http.ResponseWriter, r *http.Request) {
	vm := viewmodel.NewProductViewModel(h.repo, h.dispatch, h.log)
	defer vm.Close()

	updates := newLatest[[]productdom.Product]()
	var primed atomic.Bool
	sub := vm.AllProducts.Observe(func(ps []productdom.Product) {
		if !primed.Swap(true) {
			return
		}
		updates.push(ps)
	})
	defer sub.Close()

	vm.LoadAllProducts()
	serveSSE(w, r, h.log, "products", updates)
}
