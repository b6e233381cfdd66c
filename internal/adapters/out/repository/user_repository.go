package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"sneakhead/internal/domain/common"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/infra/realtime"
)

// UserRepository implements user.Repository: auth calls go to the provider,
// profiles live in the "users" collection keyed by the auth uid.
type UserRepository struct {
	Auth     userdom.AuthProvider
	Store    realtime.Store
	Sessions userdom.SessionManager
	Log      *zap.Logger
	Now      func() time.Time
}

func NewUserRepository(auth userdom.AuthProvider, store realtime.Store, sessions userdom.SessionManager, log *zap.Logger) *UserRepository {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserRepository{Auth: auth, Store: store, Sessions: sessions, Log: log, Now: time.Now}
}

var _ userdom.Repository = (*UserRepository)(nil)

func (r *UserRepository) Login(ctx context.Context, email, password string) common.Result[userdom.Session] {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return common.Fail[userdom.Session]("email and password are required", userdom.ErrInvalidCredentials)
	}
	id, err := r.Auth.SignIn(ctx, email, password)
	if err != nil {
		return common.Fail[userdom.Session](authMessage(err), err)
	}

	s := userdom.Session{UserID: id.UID, Email: id.Email, IDToken: id.IDToken, StartedAt: r.Now().UTC()}
	if s.Email == "" {
		s.Email = email
	}
	r.Sessions.Begin(s)
	r.Log.Info("[user_repo] login", zap.String("userId", s.UserID))
	return common.Ok("Login successful", s)
}

func (r *UserRepository) Register(ctx context.Context, email, password string) common.Result[string] {
	email = strings.TrimSpace(email)
	if err := userdom.ValidateCredentials(email, password); err != nil {
		return common.Fail[string](err.Error(), err)
	}
	id, err := r.Auth.SignUp(ctx, email, password)
	if err != nil {
		return common.Fail[string](authMessage(err), err)
	}
	return common.Ok("Registration successful", id.UID)
}

func (r *UserRepository) AddUserToDatabase(ctx context.Context, userID string, profile userdom.User) common.Result[common.Empty] {
	profile.ID = userID
	profile.Normalize()
	if err := profile.Validate(); err != nil {
		return common.Fail[common.Empty](err.Error(), err)
	}
	// Set keyed by uid: repeating the write is harmless.
	if err := r.Store.Set(ctx, userdom.CollectionUsers, profile.ID, userFields(profile)); err != nil {
		r.Log.Warn("[user_repo] profile write failed", zap.String("userId", profile.ID), zap.Error(err))
		return common.Fail[common.Empty](errMessage(err), err)
	}
	return common.Ok("User added to database", common.Empty{})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID string, patch userdom.Patch) common.Result[common.Empty] {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return common.Fail[common.Empty](userdom.ErrInvalidID.Error(), userdom.ErrInvalidID)
	}
	if err := patch.Validate(); err != nil {
		return common.Fail[common.Empty](err.Error(), err)
	}
	if err := r.Store.Update(ctx, userdom.CollectionUsers, uid, patch.Fields()); err != nil {
		if errors.Is(err, realtime.ErrNotFound) {
			return common.Fail[common.Empty]("user not found", userdom.ErrNotFound)
		}
		return common.Fail[common.Empty](errMessage(err), err)
	}
	return common.Ok("Profile updated successfully", common.Empty{})
}

func (r *UserRepository) ForgetPassword(ctx context.Context, email string) common.Result[common.Empty] {
	email = strings.TrimSpace(email)
	if email == "" {
		return common.Fail[common.Empty]("email is required", userdom.ErrInvalidCredentials)
	}
	if err := r.Auth.SendPasswordReset(ctx, email); err != nil {
		return common.Fail[common.Empty](authMessage(err), err)
	}
	return common.Ok("Reset email sent to "+email, common.Empty{})
}

func (r *UserRepository) GetCurrentUser() *userdom.Session {
	s, ok := r.Sessions.Current()
	if !ok {
		return nil
	}
	return &s
}

func (r *UserRepository) GetUserByID(ctx context.Context, userID string) common.Result[*userdom.User] {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return common.Fail[*userdom.User](userdom.ErrInvalidID.Error(), userdom.ErrInvalidID)
	}
	doc, err := r.Store.Get(ctx, userdom.CollectionUsers, uid)
	if err != nil {
		if errors.Is(err, realtime.ErrNotFound) {
			return common.Fail[*userdom.User]("user not found", userdom.ErrNotFound)
		}
		return common.Fail[*userdom.User](errMessage(err), err)
	}
	u := userFromDoc(doc)
	return common.Ok("user fetched", &u)
}

// Logout ends the local session and closes what was tracked on it.
// Token revocation is best effort.
func (r *UserRepository) Logout(ctx context.Context) common.Result[common.Empty] {
	s, ok := r.Sessions.Current()
	if ok {
		if err := r.Auth.SignOut(ctx, s.UserID); err != nil {
			r.Log.Warn("[user_repo] revoke tokens failed", zap.String("userId", s.UserID), zap.Error(err))
		}
	}
	if err := r.Sessions.End(); err != nil {
		return common.Fail[common.Empty](errMessage(err), err)
	}
	return common.Ok("Logout successful", common.Empty{})
}

func (r *UserRepository) DeleteAccount(ctx context.Context, userID string) common.Result[common.Empty] {
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return common.Fail[common.Empty](userdom.ErrInvalidID.Error(), userdom.ErrInvalidID)
	}
	if err := r.Auth.DeleteAccount(ctx, uid); err != nil {
		return common.Fail[common.Empty](authMessage(err), err)
	}
	return common.Ok("Account deleted", common.Empty{})
}

func authMessage(err error) string {
	switch {
	case errors.Is(err, userdom.ErrInvalidCredentials):
		return "Invalid email or password"
	case errors.Is(err, userdom.ErrEmailTaken):
		return "The email address is already in use by another account"
	case errors.Is(err, userdom.ErrWeakPassword):
		return userdom.ErrWeakPassword.Error()
	case errors.Is(err, userdom.ErrNotFound):
		return "user not found"
	default:
		return errMessage(err)
	}
}

// ---- mapping ----

func userFields(u userdom.User) map[string]any {
	return map[string]any{
		userdom.FieldID:        u.ID,
		userdom.FieldEmail:     u.Email,
		userdom.FieldFirstName: u.FirstName,
		userdom.FieldLastName:  u.LastName,
		userdom.FieldGender:    u.Gender,
		userdom.FieldDOB:       u.DOB,
		userdom.FieldCountry:   u.Country,
	}
}

func userFromDoc(doc realtime.Doc) userdom.User {
	d := doc.Data
	return userdom.User{
		ID:        doc.ID,
		Email:     asString(d[userdom.FieldEmail]),
		FirstName: asString(d[userdom.FieldFirstName]),
		LastName:  asString(d[userdom.FieldLastName]),
		Gender:    asString(d[userdom.FieldGender]),
		DOB:       asString(d[userdom.FieldDOB]),
		Country:   asString(d[userdom.FieldCountry]),
	}
}
