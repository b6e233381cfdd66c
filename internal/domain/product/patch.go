// internal/domain/product/patch.go
package product

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Document field names (kept identical to the mobile client's records).
const (
	FieldID          = "productId"
	FieldName        = "productName"
	FieldPrice       = "productPrice"
	FieldDescription = "productDesc"
	FieldImage       = "image"
)

// Patch is a partial product update. nil fields are left untouched.
type Patch struct {
	Name        *string          `json:"productName,omitempty"`
	Price       *decimal.Decimal `json:"productPrice,omitempty"`
	Description *string          `json:"productDesc,omitempty"`
	Image       *string          `json:"image,omitempty"`
}

// IsEmpty reports whether no field is set.
func (p Patch) IsEmpty() bool {
	return p.Name == nil && p.Price == nil && p.Description == nil && p.Image == nil
}

// Validate keeps the patched product inside the Product shape contract.
func (p Patch) Validate() error {
	if p.IsEmpty() {
		return ErrEmptyPatch
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return fmt.Errorf("%w: productName is empty", ErrInvalidProduct)
	}
	if p.Price != nil && p.Price.IsNegative() {
		return ErrNegativePrice
	}
	return nil
}

// Fields returns the document fields to write.
// An empty image resets to the placeholder rather than clearing the field.
func (p Patch) Fields() map[string]any {
	out := map[string]any{}
	if p.Name != nil {
		out[FieldName] = strings.TrimSpace(*p.Name)
	}
	if p.Price != nil {
		out[FieldPrice] = p.Price.InexactFloat64()
	}
	if p.Description != nil {
		out[FieldDescription] = strings.TrimSpace(*p.Description)
	}
	if p.Image != nil {
		img := strings.TrimSpace(*p.Image)
		if img == "" {
			img = DefaultImage
		}
		out[FieldImage] = img
	}
	return out
}

// PatchFromMap converts a loosely typed field map (as sent by clients) into a Patch.
// productId and unknown keys are rejected.
func PatchFromMap(m map[string]any) (Patch, error) {
	var p Patch
	for k, v := range m {
		switch strings.TrimSpace(k) {
		case FieldID:
			return Patch{}, ErrImmutableField
		case FieldName:
			s, ok := v.(string)
			if !ok {
				return Patch{}, fmt.Errorf("%w: %s must be a string", ErrInvalidProduct, k)
			}
			p.Name = &s
		case FieldDescription:
			s, ok := v.(string)
			if !ok {
				return Patch{}, fmt.Errorf("%w: %s must be a string", ErrInvalidProduct, k)
			}
			p.Description = &s
		case FieldImage:
			s, ok := v.(string)
			if !ok {
				return Patch{}, fmt.Errorf("%w: %s must be a string", ErrInvalidProduct, k)
			}
			p.Image = &s
		case FieldPrice:
			d, err := toDecimal(v)
			if err != nil {
				return Patch{}, fmt.Errorf("%w: %s: %v", ErrInvalidProduct, k, err)
			}
			p.Price = &d
		default:
			return Patch{}, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
	}
	return p, nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(t))
	case decimal.Decimal:
		return t, nil
	default:
		return decimal.Zero, fmt.Errorf("unsupported price type %T", v)
	}
}
