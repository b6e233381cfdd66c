package di_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
	productdom "sneakhead/internal/domain/product"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/infra/config"
	"sneakhead/internal/infra/realtime"
	"sneakhead/internal/platform/di"
	"sneakhead/internal/platform/di/shared"
)

type memAuth struct {
	mu    sync.Mutex
	users map[string]string // email -> password
	out   []string
}

func (a *memAuth) SignUp(_ context.Context, email, password string) (userdom.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[email]; ok {
		return userdom.Identity{}, userdom.ErrEmailTaken
	}
	a.users[email] = password
	return userdom.Identity{UID: "uid-" + email, Email: email}, nil
}

func (a *memAuth) SignIn(_ context.Context, email, password string) (userdom.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if pw, ok := a.users[email]; !ok || pw != password {
		return userdom.Identity{}, userdom.ErrInvalidCredentials
	}
	return userdom.Identity{UID: "uid-" + email, Email: email, IDToken: "tok"}, nil
}

func (a *memAuth) SendPasswordReset(context.Context, string) error { return nil }
func (a *memAuth) DeleteAccount(context.Context, string) error     { return nil }

func (a *memAuth) SignOut(_ context.Context, uid string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.out = append(a.out, uid)
	return nil
}

func newContainer(t *testing.T) (*di.Container, *memAuth) {
	t.Helper()
	auth := &memAuth{users: map[string]string{}}
	cfg := &config.Config{
		Prefs:    config.PrefsConfig{Path: filepath.Join(t.TempDir(), "prefs", "device.db")},
		Checkout: config.CheckoutConfig{Shipping: "200"},
	}
	c := di.NewContainerWithInfra(&shared.Infra{Config: cfg, Store: realtime.NewMemoryStore(), Auth: auth})
	t.Cleanup(func() { assert.NoError(t, c.Close()) })
	return c, auth
}

// await runs op and blocks until its callback fires.
func await[T any](t *testing.T, op func(cb func(T))) T {
	t.Helper()
	ch := make(chan T, 1)
	op(func(v T) { ch <- v })
	select {
	case v := <-ch:
		return v
	case <-time.After(3 * time.Second):
		t.Fatal("callback not delivered")
		var zero T
		return zero
	}
}

func TestContainer_RouterDeps(t *testing.T) {
	c, _ := newContainer(t)
	deps := c.RouterDeps()
	assert.Nil(t, deps.Tokens)
	assert.Nil(t, deps.Ping)
	assert.True(t, deps.Shipping.Equal(decimal.NewFromInt(200)))
	assert.NotNil(t, deps.Users(nil))
}

func TestDevice_ShoppingSession(t *testing.T) {
	c, auth := newContainer(t)
	d, err := c.NewDevice()
	require.NoError(t, err)
	defer func() { assert.NoError(t, d.Close()) }()

	const email, password = "kim@sneakhead.app", "secret1"

	signed := await(t, func(cb func(common.Result[string])) {
		d.User.SignUp(email, password, userdom.User{FirstName: "Kim"}, cb)
	})
	require.True(t, signed.OK(), signed.Message)
	uid := signed.Payload

	login := await(t, func(cb func(common.Result[userdom.Session])) {
		d.User.Login(email, password, true, cb)
	})
	require.True(t, login.OK(), login.Message)
	assert.Equal(t, email, d.User.RememberedEmail())
	require.NotNil(t, d.User.CurrentUser())
	assert.Equal(t, uid, d.User.CurrentUser().UserID)

	added := c.Products.AddProduct(t.Context(), productdom.Product{Name: "Air Max", Price: decimal.NewFromInt(1000)})
	require.True(t, added.OK(), added.Message)

	d.Cart.LoadCart(uid)
	item, err := cartdom.NewItem(added.Payload, uid, 2)
	require.NoError(t, err)
	res := await(t, func(cb func(common.Result[cartdom.Item])) { d.Cart.AddCartItem(item, cb) })
	require.True(t, res.OK(), res.Message)

	require.Eventually(t, func() bool { return len(d.Cart.Items.Get()) == 1 }, 3*time.Second, 10*time.Millisecond)
	assert.True(t, d.Cart.Summary().Total.Equal(decimal.NewFromInt(2200)))

	order := d.Checkout.PlaceOrder(t.Context(), uid)
	require.True(t, order.OK(), order.Message)
	require.Eventually(t, func() bool { return len(d.Cart.Items.Get()) == 0 }, 3*time.Second, 10*time.Millisecond)

	out := await(t, func(cb func(common.Result[common.Empty])) { d.User.Logout(cb) })
	require.True(t, out.OK(), out.Message)
	assert.Nil(t, d.User.CurrentUser())
	assert.Equal(t, []string{uid}, auth.out)

	// the remembered email survives logout
	assert.Equal(t, email, d.User.RememberedEmail())
}

func TestDevice_LoginWithoutRememberKeepsHint(t *testing.T) {
	c, auth := newContainer(t)
	auth.users["a@b.co"] = "secret1"
	d, err := c.NewDevice()
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Prefs.PutString(userdom.PrefsNamespace, userdom.PrefsKeyEmail, "old@b.co"))
	r := await(t, func(cb func(common.Result[userdom.Session])) { d.User.Login("a@b.co", "secret1", false, cb) })
	require.True(t, r.OK())
	assert.Equal(t, "old@b.co", d.User.RememberedEmail())
}
