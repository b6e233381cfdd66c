package repository

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
	"sneakhead/internal/infra/realtime"
)

// CollectionCart is the store collection holding every user's cart lines.
const CollectionCart = "cart"

// MsgItemNotFound is reported by product-addressed operations that match nothing.
const MsgItemNotFound = "Item not found"

// CartRepository implements cart.Repository on a realtime.Store.
//
// Storage:
// - collection: cart
// - docId: cartItemId (generated by the store)
// - one document per line; filtered by userId
type CartRepository struct {
	Store realtime.Store
	Log   *zap.Logger
}

func NewCartRepository(store realtime.Store, log *zap.Logger) *CartRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &CartRepository{Store: store, Log: log}
}

var _ cartdom.Repository = (*CartRepository)(nil)

func (r *CartRepository) AddToCart(ctx context.Context, item cartdom.Item) common.Result[cartdom.Item] {
	item.ProductID = strings.TrimSpace(item.ProductID)
	item.UserID = strings.TrimSpace(item.UserID)
	if err := item.Validate(); err != nil {
		return common.Fail[cartdom.Item](err.Error(), err)
	}

	item.ID = r.Store.NewKey(CollectionCart)
	if err := r.Store.Set(ctx, CollectionCart, item.ID, cartFields(item)); err != nil {
		r.Log.Warn("[cart_repo] add failed", zap.String("userId", item.UserID), zap.Error(err))
		return common.Fail[cartdom.Item]("Failed to add item to cart: "+errMessage(err), err)
	}
	return common.Ok("Item added to cart successfully", item)
}

func (r *CartRepository) RemoveFromCart(ctx context.Context, userID, cartItemID string) common.Result[common.Empty] {
	uid, id := strings.TrimSpace(userID), strings.TrimSpace(cartItemID)
	if uid == "" {
		return failEmpty("Failed to remove item from cart: ", cartdom.ErrMissingUser)
	}
	if id == "" {
		return failEmpty("Failed to remove item from cart: ", cartdom.ErrInvalidItem)
	}

	err := r.Store.RunTx(ctx, func(ctx context.Context, tx realtime.Tx) error {
		if _, err := ownedItem(tx, uid, id); err != nil {
			return err
		}
		return tx.Remove(CollectionCart, id)
	})
	if err != nil {
		return r.txFailure("Failed to remove item from cart: ", err)
	}
	return common.Ok("Item removed from cart successfully", common.Empty{})
}

func (r *CartRepository) UpdateQuantity(ctx context.Context, userID, cartItemID string, qty int) common.Result[common.Empty] {
	uid, id := strings.TrimSpace(userID), strings.TrimSpace(cartItemID)
	if uid == "" {
		return failEmpty("Failed to update quantity: ", cartdom.ErrMissingUser)
	}
	if id == "" {
		return failEmpty("Failed to update quantity: ", cartdom.ErrInvalidItem)
	}
	if qty < cartdom.MinQuantity {
		return failEmpty("Failed to update quantity: ", cartdom.ErrInvalidQuantity)
	}

	err := r.Store.RunTx(ctx, func(ctx context.Context, tx realtime.Tx) error {
		if _, err := ownedItem(tx, uid, id); err != nil {
			return err
		}
		return tx.Update(CollectionCart, id, map[string]any{cartdom.FieldQuantity: qty})
	})
	if err != nil {
		return r.txFailure("Failed to update quantity: ", err)
	}
	return common.Ok("Quantity updated successfully", common.Empty{})
}

func (r *CartRepository) GetCartItems(ctx context.Context, userID string, fn func(common.Result[[]cartdom.Item])) common.Subscription {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		fn(common.Fail[[]cartdom.Item]("Failed to fetch cart items: "+cartdom.ErrMissingUser.Error(), cartdom.ErrMissingUser))
		return common.SubscriptionFunc(func() error { return nil })
	}
	return r.Store.Watch(ctx, CollectionCart, func(snap realtime.Snapshot) {
		if snap.Err != nil {
			fn(common.Fail[[]cartdom.Item]("Failed to fetch cart items: "+errMessage(snap.Err), snap.Err))
			return
		}
		fn(common.Ok("Cart items fetched successfully", itemsFromDocs(snap.Docs)))
	}, realtime.Eq(cartdom.FieldUserID, uid))
}

func (r *CartRepository) ListCartItems(ctx context.Context, userID string) common.Result[[]cartdom.Item] {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return common.Fail[[]cartdom.Item]("Failed to fetch cart items: "+cartdom.ErrMissingUser.Error(), cartdom.ErrMissingUser)
	}
	docs, err := r.Store.Find(ctx, CollectionCart, realtime.Eq(cartdom.FieldUserID, uid))
	if err != nil {
		return common.Fail[[]cartdom.Item]("Failed to fetch cart items: "+errMessage(err), err)
	}
	return common.Ok("Cart items fetched successfully", itemsFromDocs(docs))
}

// ClearCart reads the user's lines once and deletes them in parallel.
// It succeeds only after every delete has returned.
func (r *CartRepository) ClearCart(ctx context.Context, userID string) common.Result[common.Empty] {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return failEmpty("Failed to clear cart: ", cartdom.ErrMissingUser)
	}

	docs, err := r.Store.Find(ctx, CollectionCart, realtime.Eq(cartdom.FieldUserID, uid))
	if err != nil {
		return failEmpty("Failed to clear cart: ", err)
	}
	if len(docs) == 0 {
		return common.Ok("Cart is already empty", common.Empty{})
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, d := range docs {
		id := d.ID
		g.Go(func() error {
			return r.Store.Remove(gctx, CollectionCart, id)
		})
	}
	if err := g.Wait(); err != nil {
		r.Log.Warn("[cart_repo] clear failed", zap.String("userId", uid), zap.Int("items", len(docs)), zap.Error(err))
		return failEmpty("Failed to clear cart: ", err)
	}
	return common.Ok("Cart cleared successfully", common.Empty{})
}

// UpdateQuantityByProduct sets qty on the user's line for productID.
// Lookup and write share one transaction, so a concurrent change cannot slip between them.
func (r *CartRepository) UpdateQuantityByProduct(ctx context.Context, userID, productID string, qty int) common.Result[common.Empty] {
	uid, pid := strings.TrimSpace(userID), strings.TrimSpace(productID)
	if uid == "" {
		return failEmpty("Failed to update quantity: ", cartdom.ErrMissingUser)
	}
	if qty < cartdom.MinQuantity {
		return failEmpty("Failed to update quantity: ", cartdom.ErrInvalidQuantity)
	}

	err := r.Store.RunTx(ctx, func(ctx context.Context, tx realtime.Tx) error {
		it, err := lineForProduct(tx, uid, pid)
		if err != nil {
			return err
		}
		return tx.Update(CollectionCart, it.ID, map[string]any{cartdom.FieldQuantity: qty})
	})
	if err != nil {
		return r.txFailure("Failed to update quantity: ", err)
	}
	return common.Ok("Quantity updated successfully", common.Empty{})
}

// RemoveByProduct deletes the user's line for productID in one transaction.
func (r *CartRepository) RemoveByProduct(ctx context.Context, userID, productID string) common.Result[common.Empty] {
	uid, pid := strings.TrimSpace(userID), strings.TrimSpace(productID)
	if uid == "" {
		return failEmpty("Failed to remove item from cart: ", cartdom.ErrMissingUser)
	}

	err := r.Store.RunTx(ctx, func(ctx context.Context, tx realtime.Tx) error {
		it, err := lineForProduct(tx, uid, pid)
		if err != nil {
			return err
		}
		return tx.Remove(CollectionCart, it.ID)
	})
	if err != nil {
		return r.txFailure("Failed to remove item from cart: ", err)
	}
	return common.Ok("Item removed from cart successfully", common.Empty{})
}

func (r *CartRepository) txFailure(prefix string, err error) common.Result[common.Empty] {
	if errors.Is(err, cartdom.ErrNotFound) {
		return common.Fail[common.Empty](MsgItemNotFound, nil)
	}
	r.Log.Warn("[cart_repo] transaction failed", zap.Error(err))
	return failEmpty(prefix, err)
}

func failEmpty(prefix string, err error) common.Result[common.Empty] {
	return common.Fail[common.Empty](prefix+errMessage(err), err)
}

// ownedItem loads cartItemID and checks it belongs to userID.
func ownedItem(tx realtime.Tx, userID, cartItemID string) (cartdom.Item, error) {
	doc, err := tx.Get(CollectionCart, cartItemID)
	if errors.Is(err, realtime.ErrNotFound) {
		return cartdom.Item{}, cartdom.ErrNotFound
	}
	if err != nil {
		return cartdom.Item{}, err
	}
	it := itemFromDoc(doc)
	if it.UserID != userID {
		return cartdom.Item{}, cartdom.ErrNotOwner
	}
	return it, nil
}

func lineForProduct(tx realtime.Tx, userID, productID string) (cartdom.Item, error) {
	if productID == "" {
		return cartdom.Item{}, cartdom.ErrNotFound
	}
	docs, err := tx.Find(CollectionCart,
		realtime.Eq(cartdom.FieldUserID, userID),
		realtime.Eq(cartdom.FieldProductID, productID),
	)
	if err != nil {
		return cartdom.Item{}, err
	}
	it, ok := cartdom.FindByProduct(itemsFromDocs(docs), productID)
	if !ok {
		return cartdom.Item{}, cartdom.ErrNotFound
	}
	return it, nil
}

// ---- mapping ----

func cartFields(it cartdom.Item) map[string]any {
	return map[string]any{
		cartdom.FieldID:           it.ID,
		cartdom.FieldProductID:    it.ProductID,
		cartdom.FieldProductName:  it.ProductName,
		cartdom.FieldProductPrice: it.ProductPrice.InexactFloat64(),
		cartdom.FieldProductImage: it.ProductImage,
		cartdom.FieldQuantity:     it.Quantity,
		cartdom.FieldUserID:       it.UserID,
	}
}

func itemFromDoc(doc realtime.Doc) cartdom.Item {
	d := doc.Data
	return cartdom.Item{
		ID:           doc.ID,
		ProductID:    asString(d[cartdom.FieldProductID]),
		ProductName:  asString(d[cartdom.FieldProductName]),
		ProductPrice: asDecimal(d[cartdom.FieldProductPrice]),
		ProductImage: asString(d[cartdom.FieldProductImage]),
		Quantity:     asInt(d[cartdom.FieldQuantity]),
		UserID:       asString(d[cartdom.FieldUserID]),
	}
}

func itemsFromDocs(docs []realtime.Doc) []cartdom.Item {
	out := make([]cartdom.Item, 0, len(docs))
	for _, d := range docs {
		out = append(out, itemFromDoc(d))
	}
	cartdom.SortByID(out)
	return out
}
