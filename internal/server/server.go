package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"lendmatch/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

type Matcher interface {
	Match(ctx context.Context, quoteID int64) (*types.MatchSummary, error)
	Matches(ctx context.Context, quoteID int64) (*types.MatchSummary, error)
	Snapshot(ctx context.Context, quoteID int64) (*types.QuoteSnapshot, error)
}

type LenderReader interface {
	Lender(ctx context.Context, lenderID int64) (*types.Lender, error)
	Lenders(ctx context.Context) ([]*types.Lender, error)
}

type LoanProductStore interface {
	LoanProduct(ctx context.Context, productID int64) (*types.LoanProduct, error)
	LoanProducts(ctx context.Context, filter types.LoanProductFilter) ([]*types.LoanProduct, error)
	CreateLoanProduct(ctx context.Context, product *types.LoanProduct) error
	UpdateLoanProduct(ctx context.Context, productID int64, product *types.LoanProduct) error
	DeleteLoanProduct(ctx context.Context, productID int64) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// KeySetSource resolves the JWK set used to verify access tokens.
// *jwk.Cache satisfies it.
type KeySetSource interface {
	Lookup(ctx context.Context, u string) (jwk.Set, error)
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	matcher  Matcher
	lenders  LenderReader
	products LoanProductStore
	db       Pinger

	cookie  *securecookie.SecureCookie
	keys    KeySetSource
	jwksURL string

	handler http.Handler
	server  *http.Server
}

// New builds the API server. Authentication is enforced only when keys is
// non-nil and config.JWKSURL is set.
func New(
	config *types.Config,
	logger *logrus.Logger,
	matcher Matcher,
	lenders LenderReader,
	products LoanProductStore,
	db Pinger,
	keys KeySetSource,
) (*Service, error) {
	mux := flow.New()

	s := &Service{
		logger:   logger,
		config:   config,
		matcher:  matcher,
		lenders:  lenders,
		products: products,
		db:       db,
		keys:     keys,
		jwksURL:  config.JWKSURL,
		handler:  mux,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			Handler:           mux,
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	if config.CookieHashKey != "" {
		hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
		}
		var blockKey []byte
		if config.CookieBlockKey != "" {
			blockKey, err = base64.StdEncoding.DecodeString(config.CookieBlockKey)
			if err != nil {
				return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
			}
		}
		s.cookie = securecookie.New(hashKey, blockKey)
	}

	s.buildRouter(mux)

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, for tests and embedding.
func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.StripTrailingSlash)
	r.Use(s.LoggingMiddleware)

	s.route(r, "/healthz", s.handleHealth, http.MethodGet)
	r.Handle("/metrics", promhttp.Handler(), http.MethodGet)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		s.route(r, "/quotes/:id", s.handleGetQuote, http.MethodGet)
		s.route(r, "/quotes/:id/match", s.handlePostQuoteMatch, http.MethodPost)
		s.route(r, "/quotes/:id/matches", s.handleGetQuoteMatches, http.MethodGet)

		s.route(r, "/lenders", s.handleGetLenders, http.MethodGet)
		s.route(r, "/lenders/:id", s.handleGetLender, http.MethodGet)

		s.route(r, "/loan-products", s.handleGetLoanProducts, http.MethodGet)
		s.route(r, "/loan-products", s.handlePostLoanProduct, http.MethodPost)
		s.route(r, "/loan-products/:id", s.handleGetLoanProduct, http.MethodGet)
		s.route(r, "/loan-products/:id", s.handlePutLoanProduct, http.MethodPut)
		s.route(r, "/loan-products/:id", s.handleDeleteLoanProduct, http.MethodDelete)
	})
}

// route registers the handler with request metrics labelled by pattern.
func (s *Service) route(r *flow.Mux, pattern string, handler http.HandlerFunc, methods ...string) {
	r.HandleFunc(pattern, s.instrument(pattern, handler), methods...)
}
