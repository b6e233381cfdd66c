package httpin

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"sneakhead/internal/adapters/in/http/handlers"
	"sneakhead/internal/adapters/in/http/middleware"
	cartdom "sneakhead/internal/domain/cart"
	productdom "sneakhead/internal/domain/product"
	"sneakhead/internal/platform/mainloop"
)

// RouterDeps collects everything the HTTP surface needs, injected from main.go.
type RouterDeps struct {
	Products productdom.Repository
	Cart     cartdom.Repository
	Users    handlers.UsersFactory
	SignUp   handlers.SignUpFlow
	Checkout handlers.Checkout
	Tokens   middleware.TokenVerifier

	Shipping       decimal.Decimal
	Dispatch       mainloop.Dispatcher
	AllowedOrigins []string
	Log            *zap.Logger

	// Ping backs /readyz; nil means always ready.
	Ping func(ctx context.Context) error
}

func NewRouter(deps RouterDeps) http.Handler {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))
	r.Use(middleware.CORS(deps.AllowedOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ping != nil {
			ctx, cancel := context.WithTimeout(req.Context(), 3*time.Second)
			defer cancel()
			if err := deps.Ping(ctx); err != nil {
				log.Warn("[router] readiness check failed", zap.Error(err))
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ready"))
	})

	products := handlers.NewProductHandler(deps.Products, deps.Dispatch, log)
	cart := handlers.NewCartHandler(deps.Cart, deps.Products, deps.Shipping, deps.Dispatch, log)
	auth := handlers.NewAuthHandler(deps.Users, deps.SignUp, log)
	checkout := handlers.NewCheckoutHandler(deps.Checkout, log)

	products.RegisterPublic(r)
	auth.RegisterPublic(r)

	authMW := &middleware.AuthMiddleware{Tokens: deps.Tokens, Log: log}
	r.Group(func(r chi.Router) {
		r.Use(authMW.Handler)
		products.RegisterAuthed(r)
		auth.RegisterAuthed(r)
		cart.RegisterRoutes(r)
		checkout.RegisterRoutes(r)
	})

	return r
}
