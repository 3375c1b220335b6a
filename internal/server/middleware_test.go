package server

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"lendmatch/pkg/types"

	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	signingKey jwk.Key
	keys       *fakeKeys
	hashKey    []byte
	blockKey   []byte
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	raw, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	signingKey, err := jwk.Import(raw)
	require.NoError(t, err)
	require.NoError(t, signingKey.Set(jwk.KeyIDKey, "test-key"))
	require.NoError(t, signingKey.Set(jwk.AlgorithmKey, jwa.RS256()))

	publicKey, err := jwk.PublicKeyOf(signingKey)
	require.NoError(t, err)

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(publicKey))

	return &authFixture{
		signingKey: signingKey,
		keys:       &fakeKeys{set: set},
		hashKey:    securecookie.GenerateRandomKey(32),
		blockKey:   securecookie.GenerateRandomKey(32),
	}
}

func (f *authFixture) token(t *testing.T, subject string, expires time.Time) string {
	t.Helper()

	tok, err := jwt.NewBuilder().
		Subject(subject).
		IssuedAt(time.Now().Add(-time.Minute)).
		Expiration(expires).
		Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.RS256(), f.signingKey))
	require.NoError(t, err)
	return string(signed)
}

func (f *authFixture) server(t *testing.T) *testServer {
	t.Helper()

	logger, _ := test.NewNullLogger()
	config := &types.Config{
		JWKSURL:           "https://auth.example/.well-known/jwks.json",
		AccessTokenCookie: "access_token",
		CookieHashKey:     base64.StdEncoding.EncodeToString(f.hashKey),
		CookieBlockKey:    base64.StdEncoding.EncodeToString(f.blockKey),
	}

	ts := &testServer{
		matcher:  &fakeMatcher{err: types.ErrQuoteNotFound},
		lenders:  &fakeLenders{lenders: map[int64]*types.Lender{}},
		products: &fakeProducts{products: map[int64]*types.LoanProduct{}},
		db:       &fakePinger{},
	}

	svc, err := New(config, logger, ts.matcher, ts.lenders, ts.products, ts.db, f.keys)
	require.NoError(t, err)
	ts.svc = svc
	return ts
}

func TestRequireAuth(t *testing.T) {
	fixture := newAuthFixture(t)
	ts := fixture.server(t)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		ts.svc.Handler().ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing token", func(t *testing.T) {
		rec := serve(httptest.NewRequest(http.MethodGet, "/quotes/42/matches", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
	})

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/quotes/42/matches", nil)
		req.Header.Set("Authorization", "Bearer "+fixture.token(t, "user-1", time.Now().Add(time.Hour)))

		rec := serve(req)
		// The fake matcher reports an unknown quote, so reaching it means auth passed.
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/quotes/42/matches", nil)
		req.Header.Set("Authorization", "Bearer "+fixture.token(t, "user-1", time.Now().Add(-time.Hour)))

		assert.Equal(t, http.StatusUnauthorized, serve(req).Code)
	})

	t.Run("malformed authorization header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/quotes/42/matches", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")

		assert.Equal(t, http.StatusUnauthorized, serve(req).Code)
	})

	t.Run("encoded cookie", func(t *testing.T) {
		codec := securecookie.New(fixture.hashKey, fixture.blockKey)
		encoded, err := codec.Encode("access_token", fixture.token(t, "user-1", time.Now().Add(time.Hour)))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/quotes/42/matches", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: encoded})

		assert.Equal(t, http.StatusNotFound, serve(req).Code)
	})

	t.Run("tampered cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/quotes/42/matches", nil)
		req.AddCookie(&http.Cookie{Name: "access_token", Value: "not-a-valid-cookie"})

		assert.Equal(t, http.StatusUnauthorized, serve(req).Code)
	})

	t.Run("health is public", func(t *testing.T) {
		rec := serve(httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRequireAuth_KeySetUnavailable(t *testing.T) {
	fixture := newAuthFixture(t)
	ts := fixture.server(t)
	token := fixture.token(t, "user-1", time.Now().Add(time.Hour))
	fixture.keys.err = errors.New("jwks fetch failed")

	req := httptest.NewRequest(http.MethodGet, "/lenders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ts.svc.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
