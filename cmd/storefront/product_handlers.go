package main

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/cart"
	"finitefield.org/zephyr-web/internal/catalog"
	handlersPkg "finitefield.org/zephyr-web/internal/handlers"
	mw "finitefield.org/zephyr-web/internal/middleware"
	"finitefield.org/zephyr-web/internal/nav"
	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/page"
	"finitefield.org/zephyr-web/internal/storage"
)

// regionTemplates maps page regions to the templates that render them.
var regionTemplates = map[page.Region]string{
	page.RegionColors:     "region_colors",
	page.RegionColorError: "region_color_error",
	page.RegionSlider:     "region_slider",
	page.RegionReviews:    "region_reviews",
	page.RegionAddButton:  "region_add_button",
	page.RegionCart:       "region_cart",
}

// HomeHandler sends visitors to the first product of the catalog.
func (a *app) HomeHandler(w http.ResponseWriter, r *http.Request) {
	ids := a.repo.IDs()
	if len(ids) == 0 {
		a.renderNotFound(w, r, "")
		return
	}
	http.Redirect(w, r, nav.ProductURL(ids[0]), http.StatusFound)
}

// ProductRedirectHandler maps /products/{id} onto the canonical product URL.
func (a *app) ProductRedirectHandler(w http.ResponseWriter, r *http.Request) {
	target := nav.ProductURL(chi.URLParam(r, "id"))
	q := r.URL.Query()
	q.Del("id")
	if extra := q.Encode(); extra != "" {
		target += "&" + extra
	}
	http.Redirect(w, r, target, http.StatusMovedPermanently)
}

// ProductHandler renders the full product page.
func (a *app) ProductHandler(w http.ResponseWriter, r *http.Request) {
	lang := mw.Lang(r)
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	s, err := a.openSession(r, id, page.ParseState(r.URL.Query()))
	if err != nil {
		a.sessionError(w, r, id, err)
		return
	}

	view := a.buildProductView(r.Context(), lang, s)
	vm := handlersPkg.PageData{
		Title:       s.Product.Name + " | " + a.cfg.Storefront.Brand,
		Lang:        lang,
		Brand:       a.cfg.Storefront.Brand,
		Path:        r.URL.Path,
		CSRFToken:   mw.CSRFToken(r),
		SEO:         a.productSEO(r, view, s.Product),
		Breadcrumbs: nav.ProductBreadcrumbs(s.Product.ID, s.Product.Name),
		Product:     view,
	}
	a.views.render(w, r, http.StatusOK, vm, "page")
}

// ProductEventsHandler applies one interaction and answers with the affected regions as
// out-of-band swaps. The view state travels back in the same response.
func (a *app) ProductEventsHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, "invalid form")
		return
	}
	id := strings.TrimSpace(r.PostFormValue("id"))
	ev, err := parseEvent(r)
	if err != nil {
		mw.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if !a.controller.Handles(ev.Kind, ev.Target) {
		observability.FromContext(r.Context()).Warn("unhandled event", zap.String("event", ev.String()))
		mw.WriteError(w, r, http.StatusBadRequest, page.ErrUnhandledEvent.Error())
		return
	}

	s, err := a.openSession(r, id, page.ParseState(r.PostForm))
	if err != nil {
		a.sessionError(w, r, id, err)
		return
	}

	logger := observability.FromContext(r.Context()).With(
		zap.String("product_id", id),
		zap.String("event", ev.String()),
	)
	regions, err := a.controller.Dispatch(r.Context(), s, ev)
	status := http.StatusOK
	switch {
	case err == nil:
	case errors.Is(err, cart.ErrNoColorSelected):
		logger.Info("add to cart without a color")
		status = http.StatusUnprocessableEntity
	case errors.Is(err, page.ErrInvalidEvent), errors.Is(err, page.ErrUnhandledEvent):
		logger.Warn("rejected event", zap.Error(err))
		mw.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, storage.ErrQuotaExceeded):
		logger.Error("cart exceeds storage quota", zap.Error(err))
		mw.WriteError(w, r, http.StatusInsufficientStorage, "cart storage is full")
		return
	default:
		logger.Error("event failed", zap.Error(err))
		mw.WriteError(w, r, http.StatusInternalServerError, "event failed")
		return
	}

	view := a.buildProductView(r.Context(), mw.Lang(r), s)
	view.OOB = true
	names := make([]string, 0, len(regions)+1)
	for _, region := range regions {
		if name, ok := regionTemplates[region]; ok {
			names = append(names, name)
		}
	}
	names = append(names, "region_state")
	a.views.render(w, r, status, view, names...)
}

// AddButtonFrag renders the default add-to-cart button. The confirmation state requests it
// after a short delay.
func (a *app) AddButtonFrag(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	s, err := a.openSession(r, id, page.ParseState(r.URL.Query()))
	if err != nil {
		a.sessionError(w, r, id, err)
		return
	}
	view := a.buildProductView(r.Context(), mw.Lang(r), s)
	a.views.render(w, r, http.StatusOK, view, "region_add_button")
}

// CartPanelFrag renders the cart panel from the client's stored cart.
func (a *app) CartPanelFrag(w http.ResponseWriter, r *http.Request) {
	st := page.ParseState(r.URL.Query())
	store := cart.Load(r.Context(), mw.StorageFromContext(r.Context()), a.cartOptions...)
	view := ProductView{Lang: mw.Lang(r), Cart: buildCartView(store, st.CartOpen), State: st}
	a.views.render(w, r, http.StatusOK, view, "region_cart")
}

// CartJSONHandler returns the stored cart in its wire format.
func (a *app) CartJSONHandler(w http.ResponseWriter, r *http.Request) {
	store := cart.Load(r.Context(), mw.StorageFromContext(r.Context()), a.cartOptions...)
	b, err := json.Marshal(store)
	if err != nil {
		observability.FromContext(r.Context()).Error("encode cart", zap.Error(err))
		mw.WriteError(w, r, http.StatusInternalServerError, "encode cart")
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (a *app) openSession(r *http.Request, id string, state page.State) (*page.Session, error) {
	return page.NewSession(r.Context(), a.repo, id, mw.StorageFromContext(r.Context()), state,
		page.WithReviewsVisible(a.cfg.Storefront.ReviewsVisible),
		page.WithCartOptions(a.cartOptions...))
}

func (a *app) sessionError(w http.ResponseWriter, r *http.Request, id string, err error) {
	if errors.Is(err, catalog.ErrProductNotFound) {
		observability.FromContext(r.Context()).Warn("product not found", zap.String("product_id", id))
		if r.Method != http.MethodGet || mw.IsHTMX(r.Context()) {
			mw.WriteError(w, r, http.StatusNotFound, "product not found")
			return
		}
		a.renderNotFound(w, r, id)
		return
	}
	observability.FromContext(r.Context()).Error("load product", zap.String("product_id", id), zap.Error(err))
	mw.WriteError(w, r, http.StatusInternalServerError, "load product")
}

// renderNotFound renders the page shell without product content.
func (a *app) renderNotFound(w http.ResponseWriter, r *http.Request, id string) {
	lang := mw.Lang(r)
	title := a.bundle.T(lang, "product.not_found")
	vm := handlersPkg.PageData{
		Title:       title + " | " + a.cfg.Storefront.Brand,
		Lang:        lang,
		Brand:       a.cfg.Storefront.Brand,
		Path:        r.URL.Path,
		CSRFToken:   mw.CSRFToken(r),
		Breadcrumbs: nav.ProductBreadcrumbs(id, ""),
	}
	vm.SEO.Title = vm.Title
	vm.SEO.Robots = "noindex"
	a.views.render(w, r, http.StatusNotFound, vm, "page")
}

func parseEvent(r *http.Request) (page.Event, error) {
	ev := page.Event{
		Kind:   page.Kind(strings.TrimSpace(r.PostFormValue("kind"))),
		Target: page.Target(strings.TrimSpace(r.PostFormValue("target"))),
		Value:  strings.TrimSpace(r.PostFormValue("value")),
	}
	if ev.Kind == "" || ev.Target == "" {
		return ev, errors.New("kind and target are required")
	}
	if ev.Value == "" && (ev.Target == page.TargetColor || ev.Target == page.TargetAddToCart) {
		ev.Value = strings.TrimSpace(r.PostFormValue("color"))
	}
	if ev.Kind == page.KindSwipe {
		var err error
		if ev.StartX, err = parseCoordinate(r.PostFormValue("start")); err != nil {
			return ev, errors.New("swipe start must be a finite number")
		}
		if ev.EndX, err = parseCoordinate(r.PostFormValue("end")); err != nil {
			return ev, errors.New("swipe end must be a finite number")
		}
	}
	return ev, nil
}

func parseCoordinate(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
