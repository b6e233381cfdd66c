// internal/domain/user/entity.go
package user

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Errors (single source)
var (
	ErrInvalidID          = errors.New("user: invalid id")
	ErrInvalidProfile     = errors.New("user: invalid profile")
	ErrNotFound           = errors.New("user: not found")
	ErrImmutableField     = errors.New("user: userID is immutable")
	ErrUnknownField       = errors.New("user: unknown field")
	ErrEmptyPatch         = errors.New("user: patch is empty")
	ErrInvalidCredentials = errors.New("user: invalid email or password")
	ErrEmailTaken         = errors.New("user: email already registered")
	ErrWeakPassword       = errors.New("user: password must be at least 6 characters")
	ErrNoSession          = errors.New("user: not logged in")
	ErrAuthUnavailable    = errors.New("user: auth provider unavailable")
)

// MinPasswordLength matches the auth provider's own lower bound.
const MinPasswordLength = 6

// Policy
var MaxNameLength = 100

// User is the profile record stored next to the auth account.
// ID is the opaque identifier issued by the auth provider.
type User struct {
	ID        string `json:"userID"`
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	DOB       string `json:"dob"`
	Country   string `json:"country"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Normalize trims every field.
func (u *User) Normalize() {
	u.ID = strings.TrimSpace(u.ID)
	u.Email = strings.TrimSpace(u.Email)
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Gender = strings.TrimSpace(u.Gender)
	u.DOB = strings.TrimSpace(u.DOB)
	u.Country = strings.TrimSpace(u.Country)
}

// Validate checks the profile shape.
func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return ErrInvalidID
	}
	if len([]rune(u.FirstName)) > MaxNameLength || len([]rune(u.LastName)) > MaxNameLength {
		return fmt.Errorf("%w: name too long", ErrInvalidProfile)
	}
	if err := validate.Struct(u); err != nil {
		return errors.Join(ErrInvalidProfile, err)
	}
	return nil
}

// ValidateCredentials checks email/password before they reach the auth provider.
func ValidateCredentials(email, password string) error {
	if err := validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return ErrInvalidCredentials
	}
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
