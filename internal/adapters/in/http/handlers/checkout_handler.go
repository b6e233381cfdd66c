package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sneakhead/internal/application/usecase"
	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
)

// Checkout prices and places orders.
type Checkout interface {
	Quote(ctx context.Context, userID string) common.Result[cartdom.Summary]
	PlaceOrder(ctx context.Context, userID string) common.Result[usecase.Receipt]
}

type CheckoutHandler struct {
	uc  Checkout
	log *zap.Logger
}

func NewCheckoutHandler(uc Checkout, log *zap.Logger) *CheckoutHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &CheckoutHandler{uc: uc, log: log.Named("checkout_handler")}
}

func (h *CheckoutHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me/checkout", h.quote)
	r.Post("/me/checkout", h.placeOrder)
}

func (h *CheckoutHandler) quote(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.uc.Quote(r.Context(), s.UserID))
}

func (h *CheckoutHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusCreated, h.uc.PlaceOrder(r.Context(), s.UserID))
}
