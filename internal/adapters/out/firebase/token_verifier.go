package firebase

import (
	"context"
	"errors"
	"strings"
)

// Claims is the verified identity carried by a request.
type Claims struct {
	UID   string
	Email string
}

// TokenVerifier checks Firebase ID tokens for the HTTP middleware.
type TokenVerifier struct {
	Admin AdminAuth
}

var ErrInvalidToken = errors.New("firebase: invalid id token")

func (v *TokenVerifier) Verify(ctx context.Context, idToken string) (Claims, error) {
	if v == nil || v.Admin == nil {
		return Claims{}, errors.New("firebase: token verifier not initialized")
	}
	raw := strings.TrimSpace(idToken)
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}
	tok, err := v.Admin.VerifyIDToken(ctx, raw)
	if err != nil {
		return Claims{}, errors.Join(ErrInvalidToken, err)
	}
	uid := strings.TrimSpace(tok.UID)
	if uid == "" {
		return Claims{}, ErrInvalidToken
	}
	c := Claims{UID: uid}
	if e, ok := tok.Claims["email"].(string); ok {
		c.Email = strings.TrimSpace(e)
	}
	return c, nil
}
