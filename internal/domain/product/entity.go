// internal/domain/product/entity.go
package product

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultImage is the local placeholder token used when no image was uploaded.
const DefaultImage = "shoe1.png"

var (
	ErrInvalidProduct = errors.New("product: invalid")
	ErrInvalidID      = errors.New("product: invalid id")
	ErrNegativePrice  = errors.New("product: price must not be negative")
	ErrImmutableField = errors.New("product: productId is immutable")
	ErrUnknownField   = errors.New("product: unknown field")
	ErrEmptyPatch     = errors.New("product: patch is empty")
	ErrNotFound       = errors.New("product: not found")
)

// Product is one catalog entry.
// ID is assigned by the store on creation and never changes afterwards.
type Product struct {
	ID          string          `json:"productId"`
	Name        string          `json:"productName" validate:"required,max=200"`
	Price       decimal.Decimal `json:"productPrice"`
	Description string          `json:"productDesc" validate:"max=4000"`
	Image       string          `json:"image"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims text fields and fills the placeholder image.
func (p *Product) Normalize() {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Image = strings.TrimSpace(p.Image)
	if p.Image == "" {
		p.Image = DefaultImage
	}
}

// Validate checks the product shape.
func (p Product) Validate() error {
	if err := validate.Struct(p); err != nil {
		return errors.Join(ErrInvalidProduct, err)
	}
	if p.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}
