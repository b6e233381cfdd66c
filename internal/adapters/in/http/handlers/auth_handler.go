// internal/adapters/in/http/handlers/auth_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"sneakhead/internal/application/session"
	"sneakhead/internal/domain/common"
	userdom "sneakhead/internal/domain/user"
)

// SignUpFlow registers an account and its profile as one operation.
type SignUpFlow interface {
	SignUp(ctx context.Context, email, password string, profile userdom.User) common.Result[string]
}

// UsersFactory returns a user repository bound to sessions. Each request gets
// its own session; nothing about a caller outlives the request.
type UsersFactory func(sessions userdom.SessionManager) userdom.Repository

// AuthHandler serves /auth and the account routes under /me.
type AuthHandler struct {
	users  UsersFactory
	signUp SignUpFlow
	log    *zap.Logger
}

func NewAuthHandler(users UsersFactory, signUp SignUpFlow, log *zap.Logger) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{users: users, signUp: signUp, log: log.Named("auth_handler")}
}

func (h *AuthHandler) RegisterPublic(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/signup", h.signup)
	r.Post("/auth/login", h.login)
	r.Post("/auth/password-reset", h.passwordReset)
}

func (h *AuthHandler) RegisterAuthed(r chi.Router) {
	r.Get("/me", h.me)
	r.Post("/me/logout", h.logout)
	r.Delete("/me/account", h.deleteAccount)
	r.Get("/me/profile", h.getProfile)
	r.Put("/me/profile", h.putProfile)
	r.Patch("/me/profile", h.patchProfile)
}

func (h *AuthHandler) repo() userdom.Repository {
	return h.users(session.NewManager())
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	res := h.repo().Register(r.Context(), req.Email, req.Password)
	respond(w, h.log, http.StatusCreated, withUserID(res))
}

type signUpRequest struct {
	credentials
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Gender    string `json:"gender"`
	DOB       string `json:"dob"`
	Country   string `json:"country"`
}

// signup creates the auth record and the profile; the profile write is
// retried and, failing that, the auth record is removed again.
func (h *AuthHandler) signup(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(w, r, &req); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	profile := userdom.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
		DOB:       req.DOB,
		Country:   req.Country,
	}
	respond(w, h.log, http.StatusCreated, withUserID(h.signUp.SignUp(r.Context(), req.Email, req.Password, profile)))
}

type loginResponse struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	IDToken   string    `json:"idToken"`
	StartedAt time.Time `json:"startedAt"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decode(w, r, &req); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	sessions := session.NewManager()
	res := h.users(sessions).Login(r.Context(), req.Email, req.Password)
	_ = sessions.End()
	if !res.OK() {
		respond(w, h.log, http.StatusOK, res)
		return
	}
	s := res.Payload
	respond(w, h.log, http.StatusOK, common.Ok(res.Message, loginResponse{UserID: s.UserID, Email: s.Email, IDToken: s.IDToken, StartedAt: s.StartedAt}))
}

func (h *AuthHandler) passwordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decode(w, r, &req); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	respond(w, h.log, http.StatusOK, h.repo().ForgetPassword(r.Context(), req.Email))
}

// me reports the caller as the repository sees the current session.
func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	sessions := session.NewManager()
	sessions.Begin(s)
	defer func() { _ = sessions.End() }()
	respond(w, h.log, http.StatusOK, common.Ok("current user", h.users(sessions).GetCurrentUser()))
}

// logout revokes the caller's refresh tokens.
func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	sessions := session.NewManager()
	sessions.Begin(s)
	respond(w, h.log, http.StatusOK, h.users(sessions).Logout(r.Context()))
}

func (h *AuthHandler) deleteAccount(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.repo().DeleteAccount(r.Context(), s.UserID))
}

func (h *AuthHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	respond(w, h.log, http.StatusOK, h.repo().GetUserByID(r.Context(), s.UserID))
}

// putProfile writes the whole profile keyed by the caller's uid.
func (h *AuthHandler) putProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	var profile userdom.User
	if err := decode(w, r, &profile); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	if profile.Email == "" {
		profile.Email = s.Email
	}
	respond(w, h.log, http.StatusOK, h.repo().AddUserToDatabase(r.Context(), s.UserID, profile))
}

func (h *AuthHandler) patchProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := caller(w, r, h.log)
	if !ok {
		return
	}
	var body map[string]any
	if err := decode(w, r, &body); err != nil {
		badRequest(w, h.log, "invalid json: "+err.Error())
		return
	}
	patch, err := userdom.PatchFromMap(body)
	if err != nil {
		respond(w, h.log, http.StatusOK, common.Fail[common.Empty](err.Error(), err))
		return
	}
	respond(w, h.log, http.StatusOK, h.repo().UpdateProfile(r.Context(), s.UserID, patch))
}

func withUserID(r common.Result[string]) common.Result[map[string]string] {
	if !r.OK() {
		return common.Result[map[string]string]{Status: r.Status, Message: r.Message, Err: r.Err}
	}
	return common.Ok(r.Message, map[string]string{"userId": r.Payload})
}
