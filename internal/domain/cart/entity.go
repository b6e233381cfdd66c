// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	productdom "sneakhead/internal/domain/product"
)

var (
	ErrInvalidItem     = errors.New("cart: invalid item")
	ErrInvalidQuantity = errors.New("cart: quantity must be >= 1")
	ErrMissingUser     = errors.New("cart: userId is empty")
	ErrNotOwner        = errors.New("cart: item belongs to another user")
	ErrNotFound        = errors.New("cart: item not found")
)

// MinQuantity is the smallest quantity a stored item may carry.
const MinQuantity = 1

// Item is one line in a user's cart.
//
// ProductName/ProductPrice/ProductImage are a snapshot taken when the item was
// added. They are not kept in sync with later product edits.
type Item struct {
	ID           string          `json:"cartItemId"`
	ProductID    string          `json:"productId"`
	ProductName  string          `json:"productName"`
	ProductPrice decimal.Decimal `json:"productPrice"`
	ProductImage string          `json:"productImage"`
	Quantity     int             `json:"quantity"`
	UserID       string          `json:"userId"`
}

// NewItem snapshots p into a cart line for userID.
func NewItem(p productdom.Product, userID string, qty int) (Item, error) {
	it := Item{
		ProductID:    strings.TrimSpace(p.ID),
		ProductName:  strings.TrimSpace(p.Name),
		ProductPrice: p.Price,
		ProductImage: strings.TrimSpace(p.Image),
		Quantity:     qty,
		UserID:       strings.TrimSpace(userID),
	}
	if err := it.Validate(); err != nil {
		return Item{}, err
	}
	return it, nil
}

// Validate checks the invariants that hold for every stored item.
func (it Item) Validate() error {
	if strings.TrimSpace(it.UserID) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(it.ProductID) == "" {
		return ErrInvalidItem
	}
	if it.Quantity < MinQuantity {
		return ErrInvalidQuantity
	}
	if it.ProductPrice.IsNegative() {
		return ErrInvalidItem
	}
	return nil
}

// LineTotal is price × quantity.
func (it Item) LineTotal() decimal.Decimal {
	return it.ProductPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// FindByProduct returns the first item (by cartItemId order) referencing productID.
func FindByProduct(items []Item, productID string) (Item, bool) {
	pid := strings.TrimSpace(productID)
	var hit *Item
	for i := range items {
		if items[i].ProductID != pid {
			continue
		}
		if hit == nil || items[i].ID < hit.ID {
			hit = &items[i]
		}
	}
	if hit == nil {
		return Item{}, false
	}
	return *hit, true
}

// SortByID gives listings a stable order.
func SortByID(items []Item) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}
