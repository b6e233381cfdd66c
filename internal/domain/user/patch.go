package user

import (
	"fmt"
	"strings"
)

// Document field names.
const (
	FieldID        = "userID"
	FieldEmail     = "email"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldGender    = "gender"
	FieldDOB       = "dob"
	FieldCountry   = "country"
)

var patchable = map[string]bool{
	FieldEmail:     true,
	FieldFirstName: true,
	FieldLastName:  true,
	FieldGender:    true,
	FieldDOB:       true,
	FieldCountry:   true,
}

// Patch is a partial profile update keyed by document field name.
type Patch map[string]string

// PatchFromMap converts a loosely typed map into a Patch.
func PatchFromMap(m map[string]any) (Patch, error) {
	p := Patch{}
	for k, v := range m {
		key := strings.TrimSpace(k)
		if key == FieldID {
			return nil, ErrImmutableField
		}
		if !patchable[key] {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s must be a string", ErrInvalidProfile, k)
		}
		p[key] = strings.TrimSpace(s)
	}
	return p, nil
}

// Validate rejects empty patches, identity changes and malformed emails.
func (p Patch) Validate() error {
	if len(p) == 0 {
		return ErrEmptyPatch
	}
	for k, v := range p {
		if k == FieldID {
			return ErrImmutableField
		}
		if !patchable[k] {
			return fmt.Errorf("%w: %q", ErrUnknownField, k)
		}
		if k == FieldEmail {
			if err := validate.Var(v, "required,email"); err != nil {
				return fmt.Errorf("%w: email", ErrInvalidProfile)
			}
		}
		if (k == FieldFirstName || k == FieldLastName) && len([]rune(v)) > MaxNameLength {
			return fmt.Errorf("%w: name too long", ErrInvalidProfile)
		}
	}
	return nil
}

// Fields returns the document fields to write.
func (p Patch) Fields() map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
