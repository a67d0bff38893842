package main

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/cart"
	"finitefield.org/zephyr-web/internal/catalog"
	"finitefield.org/zephyr-web/internal/config"
	"finitefield.org/zephyr-web/internal/i18n"
	"finitefield.org/zephyr-web/internal/markup"
	mw "finitefield.org/zephyr-web/internal/middleware"
	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/page"
)

// app carries the dependencies shared by the storefront handlers.
type app struct {
	cfg        config.Config
	logger     *zap.Logger
	repo       *catalog.Static
	bundle     *i18n.Bundle
	views      *templateSet
	markup     *markup.Renderer
	controller *page.Controller
	codec      *securecookie.SecureCookie

	// cartOptions are passed to every cart store; tests use them to pin the clock.
	cartOptions []cart.Option
}

type appDeps struct {
	Config  config.Config
	Logger  *zap.Logger
	Catalog *catalog.Static
	Codec   *securecookie.SecureCookie
}

func newApp(deps appDeps) (*app, error) {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}

	bundle, err := i18n.Load(cfg.Paths.Locales, i18n.DefaultFallback, []string{i18n.DefaultFallback, "en"})
	if err != nil {
		return nil, err
	}
	views, err := newTemplateSet(cfg.Paths.Templates, cfg.Dev, bundle, cfg.Storefront.CurrencySymbol)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		repo:       deps.Catalog,
		bundle:     bundle,
		views:      views,
		markup:     markup.NewRenderer(),
		controller: page.DefaultController(),
		codec:      deps.Codec,
	}, nil
}

func (a *app) routes() http.Handler {
	cookies := mw.CookieOptions{Codec: a.codec, Secure: a.cfg.IsProduction()}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP.
	r.Use(chimw.RealIP)
	r.Use(observability.InjectLoggerMiddleware(a.logger))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(a.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})
	r.Handle("/assets/*", mw.AssetsWithCache(filepath.Join(a.cfg.Paths.Public, "assets"), "/assets"))

	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
		r.Use(chimw.Timeout(30 * time.Second))
		r.Use(mw.HTMX)
		r.Use(mw.Session(cookies))
		r.Use(mw.Locale(a.bundle))
		r.Use(mw.CSRF(cookies.Secure))
		r.Use(mw.LocalStorage(cookies))

		r.Get("/", a.HomeHandler)
		r.Get("/product", a.ProductHandler)
		r.Get("/products/{id}", a.ProductRedirectHandler)
		r.Post("/product/events", a.ProductEventsHandler)
		r.Get("/product/add-button", a.AddButtonFrag)
		r.Get("/cart", a.CartPanelFrag)
		r.Get("/cart.json", a.CartJSONHandler)
	})

	return r
}

func (a *app) server() *http.Server {
	return &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       a.cfg.Server.IdleTimeout,
	}
}
