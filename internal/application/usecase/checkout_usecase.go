package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
)

var ErrEmptyCart = errors.New("checkout: cart is empty")

// Receipt is what PlaceOrder returns once the cart has been cleared.
type Receipt struct {
	OrderID  string          `json:"orderId"`
	UserID   string          `json:"userId"`
	Items    []cartdom.Item  `json:"items"`
	Summary  cartdom.Summary `json:"summary"`
	PlacedAt time.Time       `json:"placedAt"`
}

// CheckoutUsecase prices a cart and turns it into an order.
type CheckoutUsecase struct {
	cart     cartdom.Repository
	shipping decimal.Decimal
	clock    Clock
	log      *zap.Logger
}

func NewCheckoutUsecase(cart cartdom.Repository, shipping decimal.Decimal, log *zap.Logger) *CheckoutUsecase {
	return NewCheckoutUsecaseWithClock(cart, shipping, systemClock{}, log)
}

// NewCheckoutUsecaseWithClock is useful for tests.
func NewCheckoutUsecaseWithClock(cart cartdom.Repository, shipping decimal.Decimal, clock Clock, log *zap.Logger) *CheckoutUsecase {
	if clock == nil {
		clock = systemClock{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if shipping.IsNegative() {
		shipping = cartdom.DefaultShipping
	}
	return &CheckoutUsecase{cart: cart, shipping: shipping, clock: clock, log: log}
}

func (uc *CheckoutUsecase) Summary(items []cartdom.Item) cartdom.Summary {
	return cartdom.Summarize(items, uc.shipping)
}

// Quote reads the user's cart once and prices it.
func (uc *CheckoutUsecase) Quote(ctx context.Context, userID string) common.Result[cartdom.Summary] {
	list := uc.cart.ListCartItems(ctx, strings.TrimSpace(userID))
	if !list.OK() {
		return common.Fail[cartdom.Summary](list.Message, list.Err)
	}
	return common.Ok("ok", uc.Summary(list.Payload))
}

// PlaceOrder prices the current cart and clears it.
func (uc *CheckoutUsecase) PlaceOrder(ctx context.Context, userID string) common.Result[Receipt] {
	uid := strings.TrimSpace(userID)
	list := uc.cart.ListCartItems(ctx, uid)
	if !list.OK() {
		return common.Fail[Receipt](list.Message, list.Err)
	}
	if len(list.Payload) == 0 {
		return common.Fail[Receipt]("cart is empty", ErrEmptyCart)
	}

	rc := Receipt{
		OrderID:  uuid.NewString(),
		UserID:   uid,
		Items:    list.Payload,
		Summary:  uc.Summary(list.Payload),
		PlacedAt: uc.clock.Now().UTC(),
	}

	cleared := uc.cart.ClearCart(ctx, uid)
	if !cleared.OK() {
		return common.Fail[Receipt]("Failed to place order: "+cleared.Message, cleared.Err)
	}
	uc.log.Info("[checkout] order placed",
		zap.String("orderId", rc.OrderID),
		zap.String("userId", uid),
		zap.String("total", rc.Summary.Total.StringFixed(2)),
	)
	return common.Ok("Order placed successfully", rc)
}
