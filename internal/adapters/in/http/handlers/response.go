// internal/adapters/in/http/handlers/response.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"sneakhead/internal/adapters/in/http/middleware"
	"sneakhead/internal/adapters/out/repository"
	"sneakhead/internal/application/usecase"
	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
	productdom "sneakhead/internal/domain/product"
	userdom "sneakhead/internal/domain/user"
)

// envelope is the body of every JSON response.
type envelope struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, log *zap.Logger, status int, body envelope) {
	raw, err := json.Marshal(body)
	if err != nil {
		log.Error("[http] encode response failed", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

func badRequest(w http.ResponseWriter, log *zap.Logger, msg string) {
	writeJSON(w, log, http.StatusBadRequest, envelope{Message: msg})
}

// respond writes r with okStatus on success and a status derived from r.Err otherwise.
func respond[T any](w http.ResponseWriter, log *zap.Logger, okStatus int, r common.Result[T]) {
	if r.OK() {
		writeJSON(w, log, okStatus, envelope{OK: true, Message: r.Message, Data: r.Payload})
		return
	}
	writeJSON(w, log, statusFor(r), envelope{Message: r.Message})
}

func statusFor[T any](r common.Result[T]) int {
	err := r.Err
	switch {
	case err == nil && r.Message == repository.MsgItemNotFound:
		return http.StatusNotFound
	case errors.Is(err, productdom.ErrNotFound),
		errors.Is(err, cartdom.ErrNotFound),
		errors.Is(err, userdom.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, cartdom.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, userdom.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, userdom.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, userdom.ErrAuthUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, usecase.ErrEmptyCart):
		return http.StatusUnprocessableEntity
	case errors.Is(err, productdom.ErrInvalidProduct),
		errors.Is(err, productdom.ErrInvalidID),
		errors.Is(err, productdom.ErrNegativePrice),
		errors.Is(err, productdom.ErrImmutableField),
		errors.Is(err, productdom.ErrUnknownField),
		errors.Is(err, productdom.ErrEmptyPatch),
		errors.Is(err, cartdom.ErrInvalidItem),
		errors.Is(err, cartdom.ErrInvalidQuantity),
		errors.Is(err, cartdom.ErrMissingUser),
		errors.Is(err, userdom.ErrInvalidID),
		errors.Is(err, userdom.ErrInvalidProfile),
		errors.Is(err, userdom.ErrImmutableField),
		errors.Is(err, userdom.ErrUnknownField),
		errors.Is(err, userdom.ErrEmptyPatch),
		errors.Is(err, userdom.ErrWeakPassword):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst, rejecting unknown fields.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// caller returns the verified session or writes 401.
func caller(w http.ResponseWriter, r *http.Request, log *zap.Logger) (userdom.Session, bool) {
	s, ok := middleware.CurrentSession(r)
	if !ok {
		writeJSON(w, log, http.StatusUnauthorized, envelope{Message: "unauthorized"})
	}
	return s, ok
}
