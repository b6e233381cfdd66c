// internal/domain/cart/repository_port.go
package cart

import (
	"context"

	"sneakhead/internal/domain/common"
)

// Document field names.
const (
	FieldID           = "cartItemId"
	FieldProductID    = "productId"
	FieldProductName  = "productName"
	FieldProductPrice = "productPrice"
	FieldProductImage = "productImage"
	FieldQuantity     = "quantity"
	FieldUserID       = "userId"
)

// Repository is the cart adapter contract.
//
// Storage (realtime store):
// - collection: cart
// - docId: cartItemId (generated by the store)
// - filtered server-side by userId
//
// Every mutation names the owning user; items owned by someone else are never touched.
type Repository interface {
	AddToCart(ctx context.Context, item Item) common.Result[Item]
	RemoveFromCart(ctx context.Context, userID, cartItemID string) common.Result[common.Empty]
	UpdateQuantity(ctx context.Context, userID, cartItemID string, qty int) common.Result[common.Empty]

	GetCartItems(ctx context.Context, userID string, fn func(common.Result[[]Item])) common.Subscription
	ListCartItems(ctx context.Context, userID string) common.Result[[]Item]

	ClearCart(ctx context.Context, userID string) common.Result[common.Empty]

	// product-addressed operations; each runs as a single store transaction
	UpdateQuantityByProduct(ctx context.Context, userID, productID string, qty int) common.Result[common.Empty]
	RemoveByProduct(ctx context.Context, userID, productID string) common.Result[common.Empty]
}
