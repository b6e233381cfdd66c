// internal/platform/di/container.go
package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	httpin "sneakhead/internal/adapters/in/http"
	"sneakhead/internal/adapters/in/http/handlers"
	"sneakhead/internal/adapters/in/http/middleware"
	fbout "sneakhead/internal/adapters/out/firebase"
	"sneakhead/internal/adapters/out/prefs"
	"sneakhead/internal/adapters/out/repository"
	"sneakhead/internal/application/session"
	"sneakhead/internal/application/usecase"
	"sneakhead/internal/application/viewmodel"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/infra/config"
	"sneakhead/internal/platform/di/shared"
	"sneakhead/internal/platform/mainloop"
)

// Container wires repositories and usecases on top of shared.Infra.
// Pure DI: build deps only.
type Container struct {
	Infra *shared.Infra
	Loop  *mainloop.Loop

	Products *repository.ProductRepository
	Cart     *repository.CartRepository
	Checkout *usecase.CheckoutUsecase
	SignUp   *usecase.RegistrationSaga

	// accounts is session-less; it backs the registration saga.
	accounts *repository.UserRepository
	cancel   context.CancelFunc
}

func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	inf, err := shared.NewInfra(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return NewContainerWithInfra(inf), nil
}

// NewContainerWithInfra wires an already built Infra (tests use a memory store).
func NewContainerWithInfra(inf *shared.Infra) *Container {
	if inf.Log == nil {
		inf.Log = zap.NewNop()
	}
	log := inf.Log
	loopCtx, cancel := context.WithCancel(context.Background())
	loop := mainloop.Start(loopCtx)

	c := &Container{Infra: inf, Loop: loop, cancel: cancel}
	c.Products = repository.NewProductRepository(inf.Store, inf.Images, inf.Uploads, loop, log.Named("product_repo"))
	c.Cart = repository.NewCartRepository(inf.Store, log.Named("cart_repo"))
	c.accounts = c.Users(session.NewManager())
	c.SignUp = usecase.NewRegistrationSaga(c.accounts, inf.Config.Saga, log.Named("signup"))
	c.Checkout = usecase.NewCheckoutUsecase(c.Cart, inf.Config.ShippingFee(), log.Named("checkout"))
	return c
}

// Users returns a user repository whose current user is held by sessions.
func (c *Container) Users(sessions userdom.SessionManager) *repository.UserRepository {
	return repository.NewUserRepository(c.Infra.Auth, c.Infra.Store, sessions, c.Infra.Log.Named("user_repo"))
}

func (c *Container) RouterDeps() httpin.RouterDeps {
	deps := httpin.RouterDeps{
		Products:       c.Products,
		Cart:           c.Cart,
		Users:          func(s userdom.SessionManager) userdom.Repository { return c.Users(s) },
		SignUp:         c.SignUp,
		Checkout:       c.Checkout,
		Shipping:       c.Infra.Config.ShippingFee(),
		Dispatch:       c.Loop,
		AllowedOrigins: c.Infra.Config.HTTP.AllowedOrigins,
		Log:            c.Infra.Log,
	}
	if c.Infra.Tokens != nil {
		deps.Tokens = c.Infra.Tokens
	}
	if c.Infra.Firestore != nil {
		deps.Ping = c.Infra.Firestore.Ping
	}
	return deps
}

var (
	_ handlers.SignUpFlow      = (*usecase.RegistrationSaga)(nil)
	_ handlers.Checkout        = (*usecase.CheckoutUsecase)(nil)
	_ middleware.TokenVerifier = (*fbout.TokenVerifier)(nil)
)

// Device is the state of one signed-in storefront client: its session,
// remembered preferences and the view-models bound to them.
type Device struct {
	Sessions *session.Manager
	Prefs    *prefs.BoltStore

	User     *viewmodel.UserViewModel
	Products *viewmodel.ProductViewModel
	Cart     *viewmodel.CartViewModel
	Checkout *usecase.CheckoutUsecase
}

// NewDevice opens the preference file and builds the client view-models.
func (c *Container) NewDevice() (*Device, error) {
	store, err := prefs.Open(c.Infra.Config.Prefs.Path)
	if err != nil {
		return nil, fmt.Errorf("di: %w", err)
	}
	log := c.Infra.Log
	sessions := session.NewManager()
	users := c.Users(sessions)
	return &Device{
		Sessions: sessions,
		Prefs:    store,
		User:     viewmodel.NewUserViewModel(users, store, c.SignUp, c.Loop, log.Named("user_vm")),
		Products: viewmodel.NewProductViewModel(c.Products, c.Loop, log.Named("product_vm")),
		Cart:     viewmodel.NewCartViewModel(c.Cart, sessions, c.Infra.Config.ShippingFee(), c.Loop, log.Named("cart_vm")),
		Checkout: c.Checkout,
	}, nil
}

func (d *Device) Close() error {
	return errors.Join(
		d.Cart.Close(),
		d.Products.Close(),
		d.User.Close(),
		d.Sessions.End(),
		d.Prefs.Close(),
	)
}

// Close stops the dispatcher, then releases Infra.
func (c *Container) Close() error {
	if c == nil {
		return nil
	}
	c.Loop.Stop()
	c.cancel()
	return c.Infra.Close()
}
