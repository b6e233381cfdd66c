package httpin_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpin "sneakhead/internal/adapters/in/http"
	"sneakhead/internal/adapters/in/http/handlers"
	fbout "sneakhead/internal/adapters/out/firebase"
	"sneakhead/internal/adapters/out/repository"
	"sneakhead/internal/application/usecase"
	productdom "sneakhead/internal/domain/product"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/infra/realtime"
	"sneakhead/internal/platform/mainloop"
)

// fakeIdentity is both the auth provider and the token verifier.
type fakeIdentity struct {
	mu       sync.Mutex
	accounts map[string]struct{ uid, password string }
	tokens   map[string]fbout.Claims
	revoked  []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{
		accounts: map[string]struct{ uid, password string }{},
		tokens:   map[string]fbout.Claims{},
	}
}

func (f *fakeIdentity) SignUp(_ context.Context, email, password string) (userdom.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; ok {
		return userdom.Identity{}, userdom.ErrEmailTaken
	}
	uid := gofakeit.UUID()
	f.accounts[email] = struct{ uid, password string }{uid, password}
	return userdom.Identity{UID: uid, Email: email}, nil
}

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (userdom.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acc, ok := f.accounts[email]
	if !ok || acc.password != password {
		return userdom.Identity{}, userdom.ErrInvalidCredentials
	}
	tok := "tok-" + acc.uid
	f.tokens[tok] = fbout.Claims{UID: acc.uid, Email: email}
	return userdom.Identity{UID: acc.uid, Email: email, IDToken: tok}, nil
}

func (f *fakeIdentity) SendPasswordReset(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.accounts[email]; !ok {
		return userdom.ErrNotFound
	}
	return nil
}

func (f *fakeIdentity) DeleteAccount(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for email, acc := range f.accounts {
		if acc.uid == uid {
			delete(f.accounts, email)
		}
	}
	return nil
}

func (f *fakeIdentity) SignOut(_ context.Context, uid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked = append(f.revoked, uid)
	for tok, c := range f.tokens {
		if c.UID == uid {
			delete(f.tokens, tok)
		}
	}
	return nil
}

func (f *fakeIdentity) Verify(_ context.Context, raw string) (fbout.Claims, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.tokens[raw]
	if !ok {
		return fbout.Claims{}, fbout.ErrInvalidToken
	}
	return c, nil
}

type fakeImages struct{ fail bool }

func (h fakeImages) Upload(_ context.Context, publicID, _ string, data io.Reader) (string, error) {
	if h.fail {
		return "", io.ErrUnexpectedEOF
	}
	_, _ = io.Copy(io.Discard, data)
	return "http://img.example.com/" + publicID, nil
}

type env struct {
	store    *realtime.MemoryStore
	identity *fakeIdentity
	products *repository.ProductRepository
	handler  http.Handler
}

func newEnv(t *testing.T, images fakeImages) *env {
	t.Helper()
	loop := mainloop.Start(context.Background())
	t.Cleanup(loop.Stop)

	store := realtime.NewMemoryStore()
	identity := newFakeIdentity()
	products := repository.NewProductRepository(store, images, nil, loop, nil)
	cart := repository.NewCartRepository(store, nil)
	users := func(s userdom.SessionManager) userdom.Repository {
		return repository.NewUserRepository(identity, store, s, nil)
	}
	shipping := decimal.NewFromInt(200)

	h := httpin.NewRouter(httpin.RouterDeps{
		Products: products,
		Cart:     cart,
		Users:    handlers.UsersFactory(users),
		SignUp:   usecase.NewRegistrationSaga(users(nil), usecase.SagaConfig{MaxRetries: 1, InitialInterval: time.Millisecond}, nil),
		Checkout: usecase.NewCheckoutUsecase(cart, shipping, nil),
		Tokens:   identity,
		Shipping: shipping,
		Dispatch: loop,
	})
	return &env{store: store, identity: identity, products: products, handler: h}
}

type reply struct {
	OK      bool            `json:"ok"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *env) do(t *testing.T, method, path, token string, body any) (int, reply) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var out reply
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

// signedIn registers an account and returns its id token.
func (e *env) signedIn(t *testing.T, email string) string {
	t.Helper()
	code, _ := e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusCreated, code)

	code, res := e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": email, "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		IDToken string `json:"idToken"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &login))
	require.NotEmpty(t, login.IDToken)
	return login.IDToken
}

func (e *env) addProduct(t *testing.T, token, name string, price int64) string {
	t.Helper()
	code, res := e.do(t, http.MethodPost, "/products", token, map[string]any{
		"productName":  name,
		"productPrice": price,
		"productDesc":  "runner",
	})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var p struct {
		ID string `json:"productId"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &p))
	return p.ID
}

func TestRouter_Health(t *testing.T) {
	e := newEnv(t, fakeImages{})
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		e.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_ReadyzFailsWhenPingFails(t *testing.T) {
	h := httpin.NewRouter(httpin.RouterDeps{Ping: func(context.Context) error { return io.EOF }})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_Products(t *testing.T) {
	e := newEnv(t, fakeImages{})
	tok := e.signedIn(t, "a@b.co")

	code, _ := e.do(t, http.MethodPost, "/products", "", map[string]any{"productName": "x", "productPrice": 1})
	assert.Equal(t, http.StatusUnauthorized, code)

	id := e.addProduct(t, tok, "Air Max", 1200)

	code, res := e.do(t, http.MethodGet, "/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), `"image":"shoe1.png"`)

	code, _ = e.do(t, http.MethodGet, "/products/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = e.do(t, http.MethodPatch, "/products/"+id, tok, map[string]any{"productPrice": 999})
	assert.Equal(t, http.StatusOK, code)

	code, _ = e.do(t, http.MethodPatch, "/products/"+id, tok, map[string]any{"productId": "other"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = e.do(t, http.MethodGet, "/products", "", nil)
	require.Equal(t, http.StatusOK, code)
	var list []struct {
		Price decimal.Decimal `json:"productPrice"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].Price.Equal(decimal.NewFromInt(999)))

	code, _ = e.do(t, http.MethodDelete, "/products/"+id, tok, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, e.store.Len(repository.CollectionProducts))
}

func multipartProduct(t *testing.T, withImage bool) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("productName", "Dunk Low"))
	require.NoError(t, mw.WriteField("productPrice", "850.50"))
	if withImage {
		fw, err := mw.CreateFormFile("image", "dunk.png")
		require.NoError(t, err)
		_, _ = fw.Write([]byte("png-bytes"))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRouter_CreateProductMultipart(t *testing.T) {
	for _, tt := range []struct {
		name      string
		fail      bool
		wantImage string
	}{
		{"uploaded", false, "https://img.example.com/"},
		{"upload failed falls back", true, "shoe1.png"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, fakeImages{fail: tt.fail})
			tok := e.signedIn(t, "a@b.co")

			body, ctype := multipartProduct(t, true)
			req := httptest.NewRequest(http.MethodPost, "/products", body)
			req.Header.Set("Content-Type", ctype)
			req.Header.Set("Authorization", "Bearer "+tok)
			rec := httptest.NewRecorder()
			e.handler.ServeHTTP(rec, req)
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			var out struct {
				Data struct {
					Image string `json:"image"`
				} `json:"data"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
			assert.True(t, strings.HasPrefix(out.Data.Image, tt.wantImage), out.Data.Image)
		})
	}
}

func TestRouter_CartAndCheckout(t *testing.T) {
	e := newEnv(t, fakeImages{})
	tok := e.signedIn(t, "a@b.co")
	other := e.signedIn(t, "c@d.co")
	pid := e.addProduct(t, tok, "Air Max", 1000)

	code, _ := e.do(t, http.MethodPost, "/me/checkout", tok, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, res := e.do(t, http.MethodPost, "/me/cart/items", tok, map[string]any{"productId": pid, "quantity": 2})
	require.Equal(t, http.StatusCreated, code, res.Message)
	var item struct {
		ID string `json:"cartItemId"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &item))

	code, _ = e.do(t, http.MethodPost, "/me/cart/items", tok, map[string]any{"productId": "missing"})
	assert.Equal(t, http.StatusNotFound, code)

	// another user cannot touch the line
	code, _ = e.do(t, http.MethodPatch, "/me/cart/items/"+item.ID, other, map[string]int{"quantity": 5})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = e.do(t, http.MethodPatch, "/me/cart/items/"+item.ID, tok, map[string]int{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPut, "/me/cart/products/"+pid, tok, map[string]int{"quantity": 3})
	assert.Equal(t, http.StatusOK, code)

	code, res = e.do(t, http.MethodGet, "/me/cart", tok, nil)
	require.Equal(t, http.StatusOK, code)
	var view struct {
		Items   []json.RawMessage `json:"items"`
		Summary struct {
			ItemCount int             `json:"itemCount"`
			Total     decimal.Decimal `json:"total"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &view))
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Summary.ItemCount)
	assert.True(t, view.Summary.Total.Equal(decimal.NewFromInt(3200)), view.Summary.Total.String())

	code, res = e.do(t, http.MethodGet, "/me/checkout", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), `"itemCount":3`)

	code, res = e.do(t, http.MethodPost, "/me/checkout", tok, nil)
	require.Equal(t, http.StatusCreated, code, res.Message)
	assert.Contains(t, string(res.Data), `"orderId"`)
	assert.Equal(t, 0, e.store.Len(repository.CollectionCart))

	code, _ = e.do(t, http.MethodDelete, "/me/cart/products/"+pid, tok, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRouter_Account(t *testing.T) {
	e := newEnv(t, fakeImages{})

	code, res := e.do(t, http.MethodPost, "/auth/signup", "", map[string]string{
		"email": "new@b.co", "password": "secret1", "firstName": "Ada", "lastName": "L",
	})
	require.Equal(t, http.StatusCreated, code, res.Message)
	assert.Equal(t, 1, e.store.Len(userdom.CollectionUsers))

	code, _ = e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "new@b.co", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = e.do(t, http.MethodPost, "/auth/register", "", map[string]string{"email": "x@b.co", "password": "123"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "new@b.co", "password": "wrong!"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = e.do(t, http.MethodPost, "/auth/password-reset", "", map[string]string{"email": "nobody@b.co"})
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(t, http.MethodPost, "/auth/password-reset", "", map[string]string{"email": "new@b.co"})
	assert.Equal(t, http.StatusOK, code)

	code, res = e.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": "new@b.co", "password": "secret1"})
	require.Equal(t, http.StatusOK, code)
	var login struct {
		UserID  string `json:"userId"`
		IDToken string `json:"idToken"`
	}
	require.NoError(t, json.Unmarshal(res.Data, &login))
	tok := login.IDToken

	code, res = e.do(t, http.MethodGet, "/me", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), login.UserID)

	code, _ = e.do(t, http.MethodPatch, "/me/profile", tok, map[string]any{"country": "JP"})
	assert.Equal(t, http.StatusOK, code)
	code, _ = e.do(t, http.MethodPatch, "/me/profile", tok, map[string]any{"userID": "someone-else"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, res = e.do(t, http.MethodGet, "/me/profile", tok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(res.Data), `"JP"`)

	code, _ = e.do(t, http.MethodPost, "/me/logout", tok, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{login.UserID}, e.identity.revoked)

	code, _ = e.do(t, http.MethodGet, "/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRouter_ProductStream(t *testing.T) {
	e := newEnv(t, fakeImages{})
	srv := httptest.NewServer(e.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/products/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	res := e.products.AddProduct(ctx, productFixture())
	require.True(t, res.OK(), res.Message)

	sc := bufio.NewScanner(resp.Body)
	var event string
	for sc.Scan() {
		line := sc.Text()
		if v, ok := strings.CutPrefix(line, "event: "); ok {
			event = v
			continue
		}
		if v, ok := strings.CutPrefix(line, "data: "); ok && strings.Contains(v, res.Payload.ID) {
			assert.Equal(t, "products", event)
			return
		}
	}
	t.Fatalf("stream ended without the new product: %v", sc.Err())
}

func productFixture() productdom.Product {
	return productdom.Product{
		Name:        gofakeit.ProductName(),
		Price:       decimal.NewFromFloat(gofakeit.Price(10, 500)).Round(2),
		Description: gofakeit.ProductDescription(),
	}
}
