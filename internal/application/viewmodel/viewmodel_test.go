package viewmodel

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"sneakhead/internal/adapters/out/repository"
	"sneakhead/internal/application/session"
	cartdom "sneakhead/internal/domain/cart"
	"sneakhead/internal/domain/common"
	productdom "sneakhead/internal/domain/product"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/infra/realtime"
	"sneakhead/internal/platform/mainloop"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// ants starts its package-level default pool at import time.
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*Pool).purgeStaleWorkers"),
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*Pool).ticktock"),
	)
}

const wait = time.Second

func startLoop(t *testing.T) *mainloop.Loop {
	t.Helper()
	l := mainloop.Start(context.Background())
	t.Cleanup(l.Stop)
	return l
}

// await returns a callback that hands its argument to the returned channel.
func await[T any]() (func(T), <-chan T) {
	ch := make(chan T, 1)
	return func(v T) { ch <- v }, ch
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(wait):
		t.Fatal("timed out waiting for callback")
		var zero T
		return zero
	}
}

func TestObservable(t *testing.T) {
	o := NewObservable(1)
	var seen []int
	sub := o.Observe(func(v int) { seen = append(seen, v) })

	o.set(2)
	require.NoError(t, sub.Close())
	o.set(3)

	assert.Equal(t, []int{1, 2}, seen)
	assert.Equal(t, 3, o.Get())
}

// ---- product ----

type stubImageHost struct {
	url string
	err error
}

func (h stubImageHost) Upload(_ context.Context, _, _ string, data io.Reader) (string, error) {
	_, _ = io.Copy(io.Discard, data)
	return h.url, h.err
}

func newProductVM(t *testing.T, host productdom.ImageHost) (*ProductViewModel, *repository.ProductRepository, *mainloop.Loop) {
	loop := startLoop(t)
	repo := repository.NewProductRepository(realtime.NewMemoryStore(), host, nil, loop, nil)
	vm := NewProductViewModel(repo, loop, nil)
	t.Cleanup(func() { _ = vm.Close() })
	return vm, repo, loop
}

func TestProductViewModel_LoadAllProductsFollowsChanges(t *testing.T) {
	vm, repo, _ := newProductVM(t, nil)

	sizes := make(chan int, 16)
	vm.AllProducts.Observe(func(ps []productdom.Product) { sizes <- len(ps) })
	require.Equal(t, 0, recv(t, sizes))

	vm.LoadAllProducts()
	repo.AddProduct(t.Context(), productdom.Product{Name: "Runner", Price: decimal.NewFromInt(10)})

	require.Eventually(t, func() bool { return len(vm.AllProducts.Get()) == 1 }, wait, 5*time.Millisecond)
	assert.False(t, vm.Loading.Get())
}

func TestProductViewModel_LoadProductMissingPublishesNil(t *testing.T) {
	vm, repo, loop := newProductVM(t, nil)
	p := repo.AddProduct(t.Context(), productdom.Product{Name: "Runner", Price: decimal.NewFromInt(10)}).Payload

	vm.LoadProduct(p.ID)
	require.Eventually(t, func() bool { return vm.Product.Get() != nil }, wait, 5*time.Millisecond)

	vm.LoadProduct("missing")
	require.Eventually(t, func() bool { loop.Sync(); return vm.Product.Get() == nil }, wait, 5*time.Millisecond)
}

func TestProductViewModel_LoadProductTogglesLoading(t *testing.T) {
	vm, repo, _ := newProductVM(t, nil)
	p := repo.AddProduct(t.Context(), productdom.Product{Name: "Runner", Price: decimal.NewFromInt(10)}).Payload

	states := make(chan bool, 16)
	vm.Loading.Observe(func(v bool) { states <- v })
	require.False(t, recv(t, states))

	vm.LoadProduct(p.ID)
	assert.True(t, recv(t, states))
	assert.False(t, recv(t, states))
	require.Eventually(t, func() bool {
		got := vm.Product.Get()
		return got != nil && got.ID == p.ID
	}, wait, 5*time.Millisecond)
}

func TestProductViewModel_AddProductWithImage(t *testing.T) {
	tests := []struct {
		name      string
		host      productdom.ImageHost
		data      io.Reader
		wantImage string
	}{
		{name: "uploaded url is stored", host: stubImageHost{url: "http://cdn.example.com/a.png"}, data: bytes.NewReader([]byte("x")), wantImage: "https://cdn.example.com/a.png"},
		{name: "failed upload falls back", host: stubImageHost{err: errors.New("network")}, data: bytes.NewReader([]byte("x")), wantImage: productdom.DefaultImage},
		{name: "no image falls back", host: stubImageHost{url: "http://unused"}, data: nil, wantImage: productdom.DefaultImage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vm, repo, _ := newProductVM(t, tt.host)
			cb, ch := await[common.Result[productdom.Product]]()

			vm.AddProductWithImage(productdom.Product{Name: "Runner", Price: decimal.NewFromInt(10)}, tt.data, "a.png", cb)

			r := recv(t, ch)
			require.True(t, r.OK(), r.Message)
			assert.Equal(t, tt.wantImage, r.Payload.Image)
			assert.Equal(t, tt.wantImage, repo.FindProduct(t.Context(), r.Payload.ID).Payload.Image)
		})
	}
}

func TestProductViewModel_UploadImageFailureYieldsEmpty(t *testing.T) {
	vm, _, _ := newProductVM(t, stubImageHost{err: errors.New("down")})
	cb, ch := await[string]()
	vm.UploadImage(bytes.NewReader([]byte("x")), "a.jpg", cb)
	assert.Equal(t, "", recv(t, ch))
}

func TestProductViewModel_UpdateAndDelete(t *testing.T) {
	vm, repo, _ := newProductVM(t, nil)
	p := repo.AddProduct(t.Context(), productdom.Product{Name: "Runner", Price: decimal.NewFromInt(10)}).Payload

	name := "Trail Runner"
	cb, ch := await[common.Result[common.Empty]]()
	vm.UpdateProduct(p.ID, productdom.Patch{Name: &name}, cb)
	require.True(t, recv(t, ch).OK())
	assert.Equal(t, name, repo.FindProduct(t.Context(), p.ID).Payload.Name)

	cb, ch = await[common.Result[common.Empty]]()
	vm.DeleteProduct(p.ID, cb)
	require.True(t, recv(t, ch).OK())
	assert.False(t, repo.FindProduct(t.Context(), p.ID).OK())
}

// ---- cart ----

type cartFixture struct {
	vm       *CartViewModel
	repo     *repository.CartRepository
	sessions *session.Manager
	loop     *mainloop.Loop
}

func newCartFixture(t *testing.T, userID string) cartFixture {
	loop := startLoop(t)
	sessions := session.NewManager()
	if userID != "" {
		sessions.Begin(userdom.Session{UserID: userID})
	}
	repo := repository.NewCartRepository(realtime.NewMemoryStore(), nil)
	vm := NewCartViewModel(repo, sessions, cartdom.DefaultShipping, loop, nil)
	t.Cleanup(func() { _ = vm.Close() })
	return cartFixture{vm: vm, repo: repo, sessions: sessions, loop: loop}
}

func (f cartFixture) seed(t *testing.T, userID, productID string, qty int) cartdom.Item {
	r := f.repo.AddToCart(t.Context(), cartdom.Item{ProductID: productID, ProductName: productID, ProductPrice: decimal.NewFromInt(100), Quantity: qty, UserID: userID})
	require.True(t, r.OK(), r.Message)
	return r.Payload
}

func TestCartViewModel_UpdateCartItemQuantityByProduct(t *testing.T) {
	f := newCartFixture(t, "u1")
	f.seed(t, "u1", "p1", 1)
	f.seed(t, "u1", "p2", 1)

	cb, ch := await[common.Result[common.Empty]]()
	f.vm.UpdateCartItemQuantity("p1", "u1", 3, cb)
	require.True(t, recv(t, ch).OK())

	f.vm.LoadCart("u1")
	require.Eventually(t, func() bool { return len(f.vm.Items.Get()) == 2 }, wait, 5*time.Millisecond)
	for _, it := range f.vm.Items.Get() {
		if it.ProductID == "p1" {
			assert.Equal(t, 3, it.Quantity)
		} else {
			assert.Equal(t, 1, it.Quantity)
		}
	}
}

func TestCartViewModel_RemoveCartItemMiss(t *testing.T) {
	f := newCartFixture(t, "u1")
	f.seed(t, "u1", "p1", 1)

	cb, ch := await[common.Result[common.Empty]]()
	f.vm.RemoveCartItem("nope", "u1", cb)
	r := recv(t, ch)
	assert.False(t, r.OK())
	assert.Equal(t, "Item not found", r.Message)
	assert.Len(t, f.repo.ListCartItems(t.Context(), "u1").Payload, 1)
}

func TestCartViewModel_RejectsOtherUsers(t *testing.T) {
	f := newCartFixture(t, "u1")
	victim := f.seed(t, "u2", "p1", 2)

	cb, ch := await[common.Result[common.Empty]]()
	f.vm.DeleteCartItem("u2", victim.ID, cb)
	r := recv(t, ch)
	assert.False(t, r.OK())
	assert.ErrorIs(t, r.Err, cartdom.ErrNotOwner)

	cb, ch = await[common.Result[common.Empty]]()
	f.vm.ClearCart("u2", cb)
	assert.ErrorIs(t, recv(t, ch).Err, cartdom.ErrNotOwner)

	assert.Len(t, f.repo.ListCartItems(t.Context(), "u2").Payload, 1)
}

func TestCartViewModel_NoSession(t *testing.T) {
	f := newCartFixture(t, "")
	cb, ch := await[common.Result[cartdom.Item]]()
	f.vm.AddCartItem(cartdom.Item{ProductID: "p1", Quantity: 1, UserID: "u1"}, cb)
	assert.ErrorIs(t, recv(t, ch).Err, userdom.ErrNoSession)
}

func TestCartViewModel_ClearThenEmpty(t *testing.T) {
	f := newCartFixture(t, "u1")
	f.seed(t, "u1", "p1", 1)
	f.seed(t, "u1", "p2", 4)

	f.vm.LoadCart("u1")
	require.Eventually(t, func() bool { return len(f.vm.Items.Get()) == 2 }, wait, 5*time.Millisecond)
	assert.True(t, decimal.NewFromInt(700).Equal(f.vm.Summary().Total))

	cb, ch := await[common.Result[common.Empty]]()
	f.vm.ClearCart("u1", cb)
	r := recv(t, ch)
	require.True(t, r.OK())
	assert.Equal(t, "Cart cleared successfully", r.Message)

	require.Eventually(t, func() bool { return len(f.vm.Items.Get()) == 0 }, wait, 5*time.Millisecond)
	assert.True(t, f.vm.Summary().Total.IsZero())
}

func TestCartViewModel_LogoutStopsCartUpdates(t *testing.T) {
	f := newCartFixture(t, "u1")
	f.vm.LoadCart("u1")
	f.loop.Sync()
	require.Eventually(t, func() bool { f.loop.Sync(); return !f.vm.Loading.Get() }, wait, 5*time.Millisecond)

	require.NoError(t, f.sessions.End())
	f.seed(t, "u1", "p1", 1)
	time.Sleep(20 * time.Millisecond)
	f.loop.Sync()
	assert.Empty(t, f.vm.Items.Get())
}

func TestCartViewModel_AddAndUpdateCartItem(t *testing.T) {
	f := newCartFixture(t, "u1")

	cb, ch := await[common.Result[cartdom.Item]]()
	f.vm.AddCartItem(cartdom.Item{ProductID: "p1", ProductPrice: decimal.NewFromInt(5), Quantity: 1, UserID: "u1"}, cb)
	added := recv(t, ch)
	require.True(t, added.OK(), added.Message)

	item := added.Payload
	item.Quantity = 0
	ucb, uch := await[common.Result[common.Empty]]()
	f.vm.UpdateCartItem(item, ucb)
	assert.ErrorIs(t, recv(t, uch).Err, cartdom.ErrInvalidQuantity)

	item.Quantity = 2
	ucb, uch = await[common.Result[common.Empty]]()
	f.vm.UpdateCartItem(item, ucb)
	require.True(t, recv(t, uch).OK())
	assert.Equal(t, 2, f.repo.ListCartItems(t.Context(), "u1").Payload[0].Quantity)
}

// ---- user ----

type mapPrefs struct {
	mu sync.Mutex
	m  map[string]string
}

func (p *mapPrefs) GetString(ns, key string) (string, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.m[ns+"/"+key]
	return v, ok, nil
}

func (p *mapPrefs) PutString(ns, key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.m[ns+"/"+key] = value
	return nil
}

func (p *mapPrefs) Remove(ns, key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.m, ns+"/"+key)
	return nil
}

// scriptedUsers is a user repository whose answers are fixed per test.
type scriptedUsers struct {
	userdom.Repository
	sessions *session.Manager
	profiles map[string]userdom.User
}

func (s *scriptedUsers) Login(_ context.Context, email, password string) common.Result[userdom.Session] {
	if password != "secret123" {
		return common.Fail[userdom.Session]("Invalid email or password", userdom.ErrInvalidCredentials)
	}
	sess := userdom.Session{UserID: "u-" + email, Email: email}
	s.sessions.Begin(sess)
	return common.Ok("Login successful", sess)
}

func (s *scriptedUsers) GetCurrentUser() *userdom.Session {
	cur, ok := s.sessions.Current()
	if !ok {
		return nil
	}
	return &cur
}

func (s *scriptedUsers) GetUserByID(_ context.Context, id string) common.Result[*userdom.User] {
	u, ok := s.profiles[id]
	if !ok {
		return common.Fail[*userdom.User]("user not found", userdom.ErrNotFound)
	}
	return common.Ok("user fetched", &u)
}

func (s *scriptedUsers) Logout(context.Context) common.Result[common.Empty] {
	_ = s.sessions.End()
	return common.Ok("Logout successful", common.Empty{})
}

type stubSignUp struct{ res common.Result[string] }

func (s stubSignUp) SignUp(context.Context, string, string, userdom.User) common.Result[string] {
	return s.res
}

func newUserVM(t *testing.T) (*UserViewModel, *mapPrefs, *session.Manager) {
	loop := startLoop(t)
	sessions := session.NewManager()
	prefs := &mapPrefs{m: map[string]string{}}
	users := &scriptedUsers{sessions: sessions, profiles: map[string]userdom.User{"u1": {ID: "u1", FirstName: "Ada"}}}
	vm := NewUserViewModel(users, prefs, stubSignUp{res: common.Ok("Registration successful", "u9")}, loop, nil)
	t.Cleanup(func() { _ = vm.Close() })
	return vm, prefs, sessions
}

func TestUserViewModel_LoginRemembersEmail(t *testing.T) {
	vm, _, _ := newUserVM(t)

	cb, ch := await[common.Result[userdom.Session]]()
	vm.Login("a@b.co", "secret123", true, cb)
	require.True(t, recv(t, ch).OK())
	assert.Equal(t, "a@b.co", vm.RememberedEmail())
	require.NotNil(t, vm.CurrentUser())
	assert.Equal(t, "u-a@b.co", vm.CurrentUser().UserID)

	cb, ch = await[common.Result[userdom.Session]]()
	vm.Login("b@b.co", "secret123", false, cb)
	require.True(t, recv(t, ch).OK())
	assert.Equal(t, "a@b.co", vm.RememberedEmail())
}

func TestUserViewModel_FailedLoginKeepsHint(t *testing.T) {
	vm, prefs, _ := newUserVM(t)
	require.NoError(t, prefs.PutString(userdom.PrefsNamespace, userdom.PrefsKeyEmail, "old@b.co"))

	cb, ch := await[common.Result[userdom.Session]]()
	vm.Login("a@b.co", "wrong", false, cb)
	assert.False(t, recv(t, ch).OK())
	assert.Equal(t, "old@b.co", vm.RememberedEmail())
	assert.Nil(t, vm.CurrentUser())
}

func TestUserViewModel_LoadUser(t *testing.T) {
	vm, _, _ := newUserVM(t)

	vm.LoadUser("u1")
	require.Eventually(t, func() bool { u := vm.User.Get(); return u != nil && u.FirstName == "Ada" }, wait, 5*time.Millisecond)

	vm.LoadUser("missing")
	require.Eventually(t, func() bool { return vm.User.Get() == nil }, wait, 5*time.Millisecond)
}

func TestUserViewModel_SignUpAndLogout(t *testing.T) {
	vm, _, sessions := newUserVM(t)

	cb, ch := await[common.Result[string]]()
	vm.SignUp("n@b.co", "secret123", userdom.User{}, cb)
	assert.Equal(t, "u9", recv(t, ch).Payload)

	sessions.Begin(userdom.Session{UserID: "u1"})
	lcb, lch := await[common.Result[common.Empty]]()
	vm.Logout(lcb)
	require.True(t, recv(t, lch).OK())
	assert.Nil(t, vm.CurrentUser())
}

func TestViewModel_CloseIsIdempotentAndStopsCallbacks(t *testing.T) {
	vm, _, _ := newProductVM(t, nil)
	vm.LoadAllProducts()
	require.NoError(t, vm.Close())
	require.NoError(t, vm.Close())

	called := false
	vm.AddProduct(productdom.Product{Name: "x", Price: decimal.NewFromInt(1)}, func(common.Result[productdom.Product]) { called = true })
	time.Sleep(10 * time.Millisecond)
	assert.False(t, called)
}
