package user

import (
	"context"
	"time"

	"sneakhead/internal/domain/common"
)

// Identity is what the auth provider returns for an account.
type Identity struct {
	UID          string
	Email        string
	IDToken      string
	RefreshToken string
}

// AuthProvider is the hosted authentication service, consumed as a black box.
type AuthProvider interface {
	SignUp(ctx context.Context, email, password string) (Identity, error)
	SignIn(ctx context.Context, email, password string) (Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	// DeleteAccount removes an auth record; used to compensate a failed registration.
	DeleteAccount(ctx context.Context, uid string) error
	// SignOut revokes the account's refresh tokens.
	SignOut(ctx context.Context, uid string) error
}

// Session is the explicit logged-in state that replaces a process-wide "current user".
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	IDToken   string    `json:"-"`
	StartedAt time.Time `json:"startedAt"`
}

// SessionManager owns the current session. Begin/End are tied to login/logout.
type SessionManager interface {
	Begin(s Session)
	End() error
	Current() (Session, bool)
}

// PreferenceStore is local key-value storage scoped by namespace.
type PreferenceStore interface {
	GetString(namespace, key string) (string, bool, error)
	PutString(namespace, key, value string) error
	Remove(namespace, key string) error
}

// Preference namespace/key holding the remembered login email.
const (
	PrefsNamespace  = "User"
	PrefsKeyEmail   = "email"
	CollectionUsers = "users"
)

// Repository is the user adapter contract.
type Repository interface {
	Login(ctx context.Context, email, password string) common.Result[Session]
	Register(ctx context.Context, email, password string) common.Result[string]
	AddUserToDatabase(ctx context.Context, userID string, profile User) common.Result[common.Empty]
	UpdateProfile(ctx context.Context, userID string, patch Patch) common.Result[common.Empty]
	ForgetPassword(ctx context.Context, email string) common.Result[common.Empty]
	GetCurrentUser() *Session
	GetUserByID(ctx context.Context, userID string) common.Result[*User]
	Logout(ctx context.Context) common.Result[common.Empty]
	// DeleteAccount removes the auth record for userID (registration compensation).
	DeleteAccount(ctx context.Context, userID string) common.Result[common.Empty]
}
