package viewmodel

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/platform/mainloop"
)

// CartViewModel exposes the signed-in user's cart.
//
// Every operation names a user id, which must be the current session's user.
type CartViewModel struct {
	*base
	repo     cartdom.Repository
	sessions Sessions
	shipping decimal.Decimal

	Items   *Observable[[]cartdom.Item]
	Loading *Observable[bool]
}

func NewCartViewModel(repo cartdom.Repository, sessions Sessions, shipping decimal.Decimal, dispatch mainloop.Dispatcher, log *zap.Logger) *CartViewModel {
	return &CartViewModel{
		base:     newBase(dispatch, log),
		repo:     repo,
		sessions: sessions,
		shipping: shipping,
		Items:    NewObservable([]cartdom.Item{}),
		Loading:  NewObservable(false),
	}
}

// authorize checks userID against the current session.
func (vm *CartViewModel) authorize(userID string) error {
	s, ok := vm.sessions.Current()
	if !ok {
		return userdom.ErrNoSession
	}
	if s.UserID != strings.TrimSpace(userID) {
		return cartdom.ErrNotOwner
	}
	return nil
}

func rejected(err error) common.Result[common.Empty] {
	return common.Fail[common.Empty](err.Error(), err)
}

// LoadCart subscribes to userID's cart. The subscription is also tied to the
// session, so logging out stops it.
func (vm *CartViewModel) LoadCart(userID string) {
	if err := vm.authorize(userID); err != nil {
		vm.post(func() {
			vm.Loading.set(false)
			vm.Items.set([]cartdom.Item{})
		})
		return
	}
	vm.post(func() { vm.Loading.set(true) })
	sub := vm.repo.GetCartItems(vm.ctx, userID, func(r common.Result[[]cartdom.Item]) {
		vm.post(func() {
			vm.Loading.set(false)
			if r.OK() {
				vm.Items.set(r.Payload)
				return
			}
			vm.log.Warn("[cart_vm] load cart failed", zap.String("message", r.Message))
			vm.Items.set([]cartdom.Item{})
		})
	})
	if err := vm.sessions.Track(sub); err != nil {
		vm.log.Warn("[cart_vm] session ended before cart subscription", zap.Error(err))
	}
	vm.replace("cart", sub)
}

func (vm *CartViewModel) AddCartItem(item cartdom.Item, cb func(common.Result[cartdom.Item])) {
	if err := vm.authorize(item.UserID); err != nil {
		vm.post(func() { call(cb, common.Fail[cartdom.Item](err.Error(), err)) })
		return
	}
	vm.async(func(ctx context.Context) {
		r := vm.repo.AddToCart(ctx, item)
		vm.post(func() { call(cb, r) })
	})
}

// UpdateCartItem writes item.Quantity to the stored line item.ID.
func (vm *CartViewModel) UpdateCartItem(item cartdom.Item, cb func(common.Result[common.Empty])) {
	vm.run(item.UserID, cb, func(ctx context.Context) common.Result[common.Empty] {
		return vm.repo.UpdateQuantity(ctx, item.UserID, item.ID, item.Quantity)
	})
}

func (vm *CartViewModel) DeleteCartItem(userID, cartItemID string, cb func(common.Result[common.Empty])) {
	vm.run(userID, cb, func(ctx context.Context) common.Result[common.Empty] {
		return vm.repo.RemoveFromCart(ctx, userID, cartItemID)
	})
}

// RemoveCartItem removes userID's line for productID. Lookup and delete are one
// store transaction; a miss reports "Item not found".
func (vm *CartViewModel) RemoveCartItem(productID, userID string, cb func(common.Result[common.Empty])) {
	vm.run(userID, cb, func(ctx context.Context) common.Result[common.Empty] {
		return vm.repo.RemoveByProduct(ctx, userID, productID)
	})
}

// UpdateCartItemQuantity sets the quantity of userID's line for productID.
func (vm *CartViewModel) UpdateCartItemQuantity(productID, userID string, qty int, cb func(common.Result[common.Empty])) {
	vm.run(userID, cb, func(ctx context.Context) common.Result[common.Empty] {
		return vm.repo.UpdateQuantityByProduct(ctx, userID, productID, qty)
	})
}

func (vm *CartViewModel) ClearCart(userID string, cb func(common.Result[common.Empty])) {
	vm.run(userID, cb, func(ctx context.Context) common.Result[common.Empty] {
		return vm.repo.ClearCart(ctx, userID)
	})
}

// Summary prices the last cart snapshot.
func (vm *CartViewModel) Summary() cartdom.Summary {
	return cartdom.Summarize(vm.Items.Get(), vm.shipping)
}

func (vm *CartViewModel) run(userID string, cb func(common.Result[common.Empty]), op func(ctx context.Context) common.Result[common.Empty]) {
	if err := vm.authorize(userID); err != nil {
		vm.post(func() { call(cb, rejected(err)) })
		return
	}
	vm.async(func(ctx context.Context) {
		r := op(ctx)
		vm.post(func() { call(cb, r) })
	})
}
