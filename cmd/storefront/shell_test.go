package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	productdom "sneakhead/internal/domain/product"
	userdom "sneakhead/internal/domain/user"
	"sneakhead/internal/infra/config"
	"sneakhead/internal/infra/realtime"
	"sneakhead/internal/platform/di"
	"sneakhead/internal/platform/di/shared"
)

const (
	testWait = 3 * time.Second
	testTick = 10 * time.Millisecond
)

type staticAuth struct{}

func (staticAuth) SignUp(_ context.Context, email, _ string) (userdom.Identity, error) {
	return userdom.Identity{UID: "u1", Email: email}, nil
}

func (staticAuth) SignIn(_ context.Context, email, password string) (userdom.Identity, error) {
	if password != "secret1" {
		return userdom.Identity{}, userdom.ErrInvalidCredentials
	}
	return userdom.Identity{UID: "u1", Email: email, IDToken: "tok"}, nil
}

func (staticAuth) SendPasswordReset(context.Context, string) error { return nil }
func (staticAuth) DeleteAccount(context.Context, string) error     { return nil }
func (staticAuth) SignOut(context.Context, string) error           { return nil }

func TestShell(t *testing.T) {
	cfg := &config.Config{Prefs: config.PrefsConfig{Path: filepath.Join(t.TempDir(), "prefs.db")}}
	c := di.NewContainerWithInfra(&shared.Infra{Config: cfg, Store: realtime.NewMemoryStore(), Auth: staticAuth{}})
	defer c.Close()
	dev, err := c.NewDevice()
	require.NoError(t, err)
	defer dev.Close()

	p := c.Products.AddProduct(t.Context(), productdom.Product{Name: "Dunk", Price: decimal.NewFromInt(500)})
	require.True(t, p.OK())

	var out bytes.Buffer
	sh := newShell(t.Context(), dev, &out)

	assert.ErrorIs(t, sh.exec([]string{"cart"}), errNotSignedIn)
	assert.Error(t, sh.exec([]string{"login", "a@b.co", "wrong"}))
	require.NoError(t, sh.exec([]string{"login", "a@b.co", "secret1", "--remember"}))
	assert.Equal(t, "a@b.co", dev.User.RememberedEmail())

	require.Eventually(t, func() bool { return len(dev.Products.AllProducts.Get()) == 1 }, testWait, testTick)
	require.NoError(t, sh.exec([]string{"add", p.Payload.ID, "2"}))
	assert.Error(t, sh.exec([]string{"add", "nope"}))

	require.Eventually(t, func() bool { return len(dev.Cart.Items.Get()) == 1 }, testWait, testTick)
	out.Reset()
	require.NoError(t, sh.exec([]string{"cart"}))
	assert.Contains(t, out.String(), "1200.00")

	require.NoError(t, sh.exec([]string{"checkout"}))
	assert.Error(t, sh.exec([]string{"checkout"}))

	require.NoError(t, sh.exec([]string{"logout"}))
	assert.ErrorIs(t, sh.exec([]string{"whoami"}), errNotSignedIn)
	assert.Error(t, sh.exec([]string{"bogus"}))
}
