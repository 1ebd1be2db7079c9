/*
Package api realizes the carlot REST API on a mux router.

The public storefront lives under /api, the back office under /api/admin and
requires the admin role. Authentication is handled under /api/auth.

	router := mux.NewRouter()
	api.New(&api.Builder{
		Store:  store,
		Router: router,
		Issuer: access.NewTokenIssuer(secret, refreshSecret, "carlot"),
	})
*/
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/relabs-tech/carlot/core/access"
	"github.com/relabs-tech/carlot/core/kss"
	"github.com/relabs-tech/carlot/core/logger"
	"github.com/relabs-tech/carlot/core/notify"
	"github.com/relabs-tech/carlot/core/schema"
	"github.com/relabs-tech/carlot/core/store"
)

// default rate limits per client address
const (
	DefaultInquiryRate  = rate.Limit(0.2)
	DefaultInquiryBurst = 5
	DefaultLoginRate    = rate.Limit(1)
	DefaultLoginBurst   = 10
)

// API is the carlot REST API
type API struct {
	store     store.Store
	router    *mux.Router
	issuer    *access.TokenIssuer
	kss       kss.Driver
	notifier  notify.Notifier
	validator *schema.Validator
	metrics   *metrics

	// authenticate validates access tokens on the back office routes and /api/auth/me only
	authenticate mux.MiddlewareFunc

	inquiryLimiter *rateLimiter
	loginLimiter   *rateLimiter
	secureCookies  bool
	trustProxy     bool
}

// Builder is a builder helper for the API
type Builder struct {
	// Store persists all carlot objects. This is mandatory.
	Store store.Store
	// Router is a mux router. This is mandatory.
	Router *mux.Router
	// Issuer issues and verifies tokens. This is mandatory.
	Issuer *access.TokenIssuer
	// KSS stores listing images. Without it, the image routes answer http.StatusNotImplemented.
	KSS kss.Driver
	// Notifier receives domain events. Defaults to notify.Log.
	Notifier notify.Notifier
	// Validator validates payloads. Defaults to the embedded carlot schemas.
	Validator *schema.Validator
	// Registry collects the metrics served under /metrics. Defaults to a new registry.
	Registry *prometheus.Registry

	// InquiryRate and InquiryBurst limit inquiries per client address
	InquiryRate  rate.Limit
	InquiryBurst int
	// LoginRate and LoginBurst limit login attempts per client address
	LoginRate  rate.Limit
	LoginBurst int

	// SecureCookies marks the refresh cookie as secure, set it when serving https
	SecureCookies bool
	// TrustProxy takes the client address of rate limits from X-Forwarded-For. Set it only
	// behind a load balancer which overwrites the header.
	TrustProxy bool
}

// New realizes the API and adds all routes and middlewares to the router
func New(bb *Builder) *API {
	if bb.Store == nil {
		panic("Store is missing")
	}
	if bb.Router == nil {
		panic("Router is missing")
	}
	if bb.Issuer == nil {
		panic("Issuer is missing")
	}

	a := &API{
		store:         bb.Store,
		router:        bb.Router,
		issuer:        bb.Issuer,
		kss:           bb.KSS,
		notifier:      bb.Notifier,
		validator:     bb.Validator,
		secureCookies: bb.SecureCookies,
		trustProxy:    bb.TrustProxy,
	}
	if a.notifier == nil {
		a.notifier = notify.Log{}
	}
	if a.validator == nil {
		v, err := schema.New()
		if err != nil {
			panic(err)
		}
		a.validator = v
	}
	registry := bb.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	a.metrics = newMetrics(registry)

	inquiryRate, inquiryBurst := bb.InquiryRate, bb.InquiryBurst
	if inquiryRate == 0 {
		inquiryRate, inquiryBurst = DefaultInquiryRate, DefaultInquiryBurst
	}
	a.inquiryLimiter = newRateLimiter("inquiry", inquiryRate, inquiryBurst)
	loginRate, loginBurst := bb.LoginRate, bb.LoginBurst
	if loginRate == 0 {
		loginRate, loginBurst = DefaultLoginRate, DefaultLoginBurst
	}
	a.loginLimiter = newRateLimiter("login", loginRate, loginBurst)

	a.authenticate = access.NewJwtMiddelware(&access.JwtMiddlewareBuilder{
		Issuer: a.issuer,
		Admins: a.store,
	})

	a.handleRoutes()
	return a
}

// Router returns the router of the API
func (a *API) Router() *mux.Router {
	return a.router
}

func (a *API) handleRoutes() {
	logger.AddRequestID(a.router)
	a.router.Use(a.metrics.middleware)
	a.handleCORS()
	a.handleCompression()

	a.handleVersion(a.router)
	a.handleHealth(a.router)
	a.router.Handle("/metrics", a.metrics.handler()).Methods(http.MethodGet)

	public := a.router.PathPrefix("/api").Subrouter()
	admin := a.router.PathPrefix("/api/admin").Subrouter()
	admin.Use(a.authenticate, access.RequireRole(access.RoleAdmin))

	a.handleAuth(public)
	a.handleBrands(public, admin)
	a.handleModels(public, admin)
	a.handleListings(public, admin)
	a.handleImages(admin)
	a.handleInquiries(public, admin)
	a.handleStatistics(admin)
}

// handle registers a route for the methods plus http.MethodOptions for CORS preflight requests
func handle(router *mux.Router, path string, handler http.HandlerFunc, methods ...string) {
	logger.Default().Debugln("  handle route:", path, methods)
	router.Handle(path, handler).Methods(append(methods, http.MethodOptions)...)
}
