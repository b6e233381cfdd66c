// internal/adapters/out/firebase/auth_provider.go
package firebase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/identitytoolkit/v3"
	"google.golang.org/api/option"

	userdom "sneakhead/internal/domain/user"
)

// AdminAuth is the subset of *auth.Client used here.
type AdminAuth interface {
	CreateUser(ctx context.Context, user *fbauth.UserToCreate) (*fbauth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
	RevokeRefreshTokens(ctx context.Context, uid string) error
	PasswordResetLinkWithSettings(ctx context.Context, email string, settings *fbauth.ActionCodeSettings) (string, error)
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// PasswordSignIn exchanges email/password for tokens. The Admin SDK cannot
// do this, so it goes through the Identity Toolkit REST API.
type PasswordSignIn interface {
	SignInWithPassword(ctx context.Context, email, password string) (userdom.Identity, error)
}

// ResetMailer delivers a generated password reset link.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, toEmail, link string) error
}

// Config holds the web API key used for password sign-in and the URL
// the reset link continues to.
type Config struct {
	APIKey           string `koanf:"api_key"`
	ResetContinueURL string `koanf:"reset_continue_url"`
}

// AuthProvider implements user.AuthProvider on Firebase Authentication.
type AuthProvider struct {
	Admin            AdminAuth
	Password         PasswordSignIn
	Mailer           ResetMailer
	ResetContinueURL string
	Log              *zap.Logger
}

func NewAuthProvider(admin AdminAuth, signIn PasswordSignIn, mailer ResetMailer, continueURL string, log *zap.Logger) *AuthProvider {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthProvider{
		Admin:            admin,
		Password:         signIn,
		Mailer:           mailer,
		ResetContinueURL: strings.TrimSpace(continueURL),
		Log:              log,
	}
}

var _ userdom.AuthProvider = (*AuthProvider)(nil)

func (p *AuthProvider) SignUp(ctx context.Context, email, password string) (userdom.Identity, error) {
	if p.Admin == nil {
		return userdom.Identity{}, errors.New("firebase: auth client is nil")
	}
	email = strings.TrimSpace(email)
	rec, err := p.Admin.CreateUser(ctx, (&fbauth.UserToCreate{}).Email(email).Password(password))
	if err != nil {
		if fbauth.IsEmailAlreadyExists(err) {
			return userdom.Identity{}, userdom.ErrEmailTaken
		}
		return userdom.Identity{}, fmt.Errorf("firebase: create user: %w", err)
	}
	p.Log.Info("[firebase_auth] account created", zap.String("uid", rec.UID))
	return userdom.Identity{UID: rec.UID, Email: rec.Email}, nil
}

func (p *AuthProvider) SignIn(ctx context.Context, email, password string) (userdom.Identity, error) {
	if p.Password == nil {
		return userdom.Identity{}, errors.New("firebase: password sign-in is not configured")
	}
	return p.Password.SignInWithPassword(ctx, strings.TrimSpace(email), password)
}

func (p *AuthProvider) SendPasswordReset(ctx context.Context, email string) error {
	if p.Admin == nil || p.Mailer == nil {
		return errors.New("firebase: password reset is not configured")
	}
	email = strings.TrimSpace(email)

	var settings *fbauth.ActionCodeSettings
	if p.ResetContinueURL != "" {
		settings = &fbauth.ActionCodeSettings{URL: p.ResetContinueURL}
	}
	link, err := p.Admin.PasswordResetLinkWithSettings(ctx, email, settings)
	if err != nil {
		if fbauth.IsUserNotFound(err) {
			return userdom.ErrNotFound
		}
		return fmt.Errorf("firebase: reset link: %w", err)
	}
	if err := p.Mailer.SendPasswordReset(ctx, email, link); err != nil {
		return fmt.Errorf("firebase: send reset mail: %w", err)
	}
	return nil
}

func (p *AuthProvider) DeleteAccount(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return userdom.ErrInvalidID
	}
	if err := p.Admin.DeleteUser(ctx, uid); err != nil {
		if fbauth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("firebase: delete user %s: %w", uid, err)
	}
	p.Log.Info("[firebase_auth] account deleted", zap.String("uid", uid))
	return nil
}

func (p *AuthProvider) SignOut(ctx context.Context, uid string) error {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return userdom.ErrInvalidID
	}
	if err := p.Admin.RevokeRefreshTokens(ctx, uid); err != nil {
		return fmt.Errorf("firebase: revoke tokens %s: %w", uid, err)
	}
	return nil
}

// ============================================================
// Identity Toolkit password sign-in
// ============================================================

// IdentityToolkitSignIn implements PasswordSignIn with the v3 relying party API.
type IdentityToolkitSignIn struct {
	svc *identitytoolkit.Service
}

func NewIdentityToolkitSignIn(ctx context.Context, apiKey string, opts ...option.ClientOption) (*IdentityToolkitSignIn, error) {
	key := strings.TrimSpace(apiKey)
	if key == "" {
		return nil, errors.New("firebase: web api key is empty")
	}
	svc, err := identitytoolkit.NewService(ctx, append([]option.ClientOption{option.WithAPIKey(key)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("firebase: identitytoolkit.NewService: %w", err)
	}
	return &IdentityToolkitSignIn{svc: svc}, nil
}

func (s *IdentityToolkitSignIn) SignInWithPassword(ctx context.Context, email, password string) (userdom.Identity, error) {
	resp, err := s.svc.Relyingparty.VerifyPassword(&identitytoolkit.IdentitytoolkitRelyingpartyVerifyPasswordRequest{
		Email:             email,
		Password:          password,
		ReturnSecureToken: true,
	}).Context(ctx).Do()
	if err != nil {
		return userdom.Identity{}, signInError(err)
	}
	return userdom.Identity{
		UID:          resp.LocalId,
		Email:        resp.Email,
		IDToken:      resp.IdToken,
		RefreshToken: resp.RefreshToken,
	}, nil
}

// signInError folds the REST error codes for a bad login into ErrInvalidCredentials.
func signInError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
		msg := strings.ToUpper(gerr.Message)
		for _, code := range []string{"INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_DISABLED"} {
			if strings.Contains(msg, code) {
				return fmt.Errorf("%w: %s", userdom.ErrInvalidCredentials, code)
			}
		}
	}
	return fmt.Errorf("firebase: verify password: %w", err)
}
