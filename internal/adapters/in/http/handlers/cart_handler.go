// internal/adapters/in/http/handlers/cart_handler.go
package handlers

import (
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sneakhead/internal/application/session"
	"sneakhead/internal/application/viewmodel"
	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
	productdom "sneakhead/internal/domain/product"
	"sneakhead/internal/platform/mainloop"
)

// CartHandler serves /me/cart for the verified caller.
type CartHandler struct {
	cart     cartdom.Repository
	products productdom.Repository
	shipping decimal.Decimal
	dispatch mainloop.Dispatcher
	log      *zap.Logger
}

func NewCartHandler(cart cartdom.Repository, products productdom.Repository, shipping decimal.Decimal, dispatch mainloop.Dispatcher, log *zap.Logger) *CartHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartHandler{cart: cart, products: products, shipping: shipping, dispatch: dispatch, log: log.Named("cart_handler")}
}

func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Route("/me/cart", func(r chi.Router) {
		r.Get("/", h.get)
		r.Delete("/", h.clear)
		r.Get("/stream", h.stream)
		r.Post("/items", h.add)
		r.Patch("/items/{id}", h.updateItem)
		r.Delete("/items/{id}", h.removeItem)
		r.Put("/products/{productId}", h.updateByProduct)
		r.Delete("/products/{productId}", h.removeByProduct)
	})
}

// cartView is the cart as returned to clients: the lines plus their pricing.
type cartView struct {
	Items   []cartdom.Item  `json:"items"`
	Summary cartdom.Summary `json:"summary"`
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	res := h.cart.ListCartItems(r.Context(), s.UserID)
	if !res.OK() {
		respond(w, h.log, http.StatusOK, res)
		return
	}
	respond(w, h.log, http.StatusOK, common.Ok(res.Message, cartView{Items: res.Payload, Summary: cartdom.Summarize(res.Payload, h.shipping)}))
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// add snapshots the current product into a new cart line.
func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	var req addItemRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	if req.Quantity == 0 {
		req.Quantity = cartdom.MinQuantity
	}

	found := h.products.FindProduct(r.Context(), req.ProductID)
	if !found.OK() {
		respond(w, h.log, http.StatusOK, found)
		return
	}
	item, err := cartdom.NewItem(*found.Payload, s.UserID, req.Quantity)
	if err != nil {
		respond(w, h.log, http.StatusOK, common.Fail[cartdom.Item](err.Error(), err))
		return
	}
	respond(w, h.log, http.StatusCreated, h.cart.AddToCart(r.Context(), item))
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) quantity(w http.ResponseWriter, r *http.Request) (int, bool) {
	var req quantityRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return 0, false
	}
	return req.Quantity, true
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	qty, ok := h.quantity(w, r)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.cart.UpdateQuantity(r.Context(), s.UserID, chi.URLParam(r, "id"), qty))
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.cart.RemoveFromCart(r.Context(), s.UserID, chi.URLParam(r, "id")))
}

func (h *CartHandler) updateByProduct(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	qty, ok := h.quantity(w, r)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.cart.UpdateQuantityByProduct(r.Context(), s.UserID, chi.URLParam(r, "productId"), qty))
}

func (h *CartHandler) removeByProduct(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.cart.RemoveByProduct(r.Context(), s.UserID, chi.URLParam(r, "productId")))
}

func (h *CartHandler) clear(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.cart.ClearCart(r.Context(), s.UserID))
}

// stream pushes the caller's live cart as "cart" events. The connection gets
// its own session and view-model; both end when the client disconnects.
func (h *CartHandler) stream(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	sessions := session.NewManager()
	sessions.Begin(s)
	defer func() { _ = sessions.End() }()

	vm := viewmodel.NewCartViewModel(h.cart, sessions, h.shipping, h.dispatch, h.log)
	defer vm.Close()

	updates := newLatest[cartView]()
	var primed atomic.Bool
	sub := vm.Items.Observe(func(items []cartdom.Item) {
		if !primed.Swap(true) {
			return
		}
		updates.push(cartView{Items: items, Summary: cartdom.Summarize(items, h.shipping)})
	})
	defer sub.Close()

	vm.LoadCart(s.UserID)
	serveSSE(w, r, h.log, "cart", updates)
}
