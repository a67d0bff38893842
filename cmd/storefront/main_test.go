package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finitefield.org/zephyr-web/internal/cart"
	"finitefield.org/zephyr-web/internal/catalog"
	"finitefield.org/zephyr-web/internal/config"
	"finitefield.org/zephyr-web/internal/storage"
)

func testCatalog() *catalog.Static {
	old := decimal.RequireFromString("119.00")
	return catalog.NewStatic(
		catalog.Product{
			ID:          "runner",
			Name:        "Zephyr Runner",
			Price:       decimal.RequireFromString("89.90"),
			OldPrice:    &old,
			Description: "Light **trail** shoe.\nSecond line.",
			Details:     "Vibram **Megagrip** outsole.",
			Features:    []string{"Mesh upper", "Vibram sole"},
			Colors: []catalog.Color{
				{Key: "red", Name: "Red", Swatch: "#c0392b", Images: []string{"/assets/img/r1.svg", "/assets/img/r2.svg", "/assets/img/r3.svg"}},
				{Key: "black", Name: "Black", Swatch: "#111111", Images: []string{"/assets/img/b1.svg", "/assets/img/b2.svg"}},
			},
			Reviews: []catalog.Review{
				{Author: "Ana", Rating: 5, Text: "Great <b>grip</b>"},
				{Author: "Ben", Rating: 4, Text: "Comfortable"},
				{Author: "Cleo", Rating: 3, Text: "Runs small"},
				{Author: "Dan", Rating: 4, Text: "Solid"},
			},
			Similar:  []string{"trail", "ghost"},
			Payments: []string{"/assets/img/pay-visa.svg"},
		},
		catalog.Product{
			ID:      "trail",
			Name:    "Trail Max",
			Price:   decimal.RequireFromString("120"),
			Details: "Built for *mud*.",
			Colors:  []catalog.Color{{Key: "green", Name: "Green", Images: []string{"/assets/img/t1.svg"}}},
		},
		catalog.Product{ID: "empty", Name: "Sold Out", Price: decimal.RequireFromString("10")},
	)
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := config.Config{
		Server: config.ServerConfig{Addr: ":0"},
		Paths: config.PathsConfig{
			Templates: "../../templates",
			Public:    "../../public",
			Locales:   "../../locales",
		},
		Storefront: config.StorefrontConfig{Brand: "Zephyr Store", CurrencySymbol: "€", ReviewsVisible: 3},
		Dev:        true,
	}
	a, err := newApp(appDeps{
		Config:  cfg,
		Catalog: testCatalog(),
		Codec:   storage.NewCodec([]byte("test-signing-key-0123456789abcdef")),
	})
	require.NoError(t, err)
	a.cartOptions = []cart.Option{cart.WithClock(func() time.Time { return time.UnixMilli(1000) })}
	return a
}

// browser replays cookies between requests the way a real client would.
type browser struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T) *browser {
	t.Helper()
	return &browser{t: t, h: newTestApp(t).routes(), cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	b.t.Helper()
	req.Header.Set("Accept-Language", "en")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.h.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// event posts an interaction. The page is loaded first when no CSRF cookie exists yet.
func (b *browser) event(form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()
	if _, ok := b.cookies["csrf_token"]; !ok {
		require.Equal(b.t, http.StatusOK, b.get("/product?id=runner").Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/product/events", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")
	req.Header.Set("X-CSRF-Token", b.cookies["csrf_token"].Value)
	return b.do(req)
}

func (b *browser) cartLines() []map[string]any {
	b.t.Helper()
	rec := b.get("/cart.json")
	require.Equal(b.t, http.StatusOK, rec.Code)
	var lines []map[string]any
	require.NoError(b.t, json.Unmarshal(rec.Body.Bytes(), &lines))
	return lines
}

func doc(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	return d
}

func ev(kind, target, value string, extra ...string) url.Values {
	v := url.Values{"id": {"runner"}, "kind": {kind}, "target": {target}}
	if value != "" {
		v.Set("value", value)
	}
	for i := 0; i+1 < len(extra); i += 2 {
		v.Set(extra[i], extra[i+1])
	}
	return v
}

func TestHealthzOK(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", strings.TrimSpace(rec.Body.String()))
}

func TestAssetsServedWithETag(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/assets/css/product.css")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("ETag"))
}

func TestHomeRedirectsToFirstProduct(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/product?id=runner", rec.Header().Get("Location"))

	rec = b.get("/products/trail?color=green")
	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "/product?id=trail&color=green", rec.Header().Get("Location"))
}

func TestProductPageShowsCatalogFields(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/product?id=runner")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	d := doc(t, rec)

	require.Equal(t, "Zephyr Runner | Zephyr Store", d.Find("title").Text())
	require.Equal(t, "Zephyr Runner", d.Find("h1.product__name").Text())
	require.Equal(t, "89.90 €", d.Find(".product__price .price").First().Text())
	require.Equal(t, "119.00 €", d.Find(".price--old").Text())
	require.Equal(t, "Light **trail** shoe.\nSecond line.", d.Find(".product__description").Text(), "description is shown verbatim")
	require.Zero(t, d.Find(".product__description strong").Length())
	require.Equal(t, "Megagrip", d.Find(".product__details strong").Text())

	var features []string
	d.Find(".product__features li").Each(func(_ int, s *goquery.Selection) { features = append(features, s.Text()) })
	require.Equal(t, []string{"Mesh upper", "Vibram sole"}, features)

	var colors []string
	d.Find("#region-colors input[name=color]").Each(func(_ int, s *goquery.Selection) {
		colors = append(colors, s.AttrOr("value", ""))
	})
	require.Equal(t, []string{"red", "black"}, colors)
	_, checked := d.Find("#region-colors input[value=red]").Attr("checked")
	require.True(t, checked, "first color is preselected")

	require.Equal(t, 3, d.Find("#region-slider .slider__img").Length())
	require.Equal(t, "/assets/img/r1.svg", d.Find("#region-slider .slider__img.is-active").AttrOr("src", ""))

	require.Equal(t, "Great <b>grip</b>", d.Find(".review__text").First().Text(), "review text is escaped")
	require.Equal(t, "★★★★★", d.Find(".review__stars").First().Text())

	require.Equal(t, 1, d.Find(".similar__card").Length(), "unknown similar ids are skipped")
	require.Equal(t, "/product?id=trail", d.Find(".similar__card a").AttrOr("href", ""))
	require.Equal(t, "/assets/img/t1.svg", d.Find(".similar__card img").AttrOr("src", ""))
	require.Equal(t, 1, d.Find(".payments__list img").Length())

	require.Contains(t, d.Find(`meta[name=description]`).AttrOr("content", ""), "Light **trail** shoe. Second line.")
	require.Equal(t, "http://example.com/product?id=runner", d.Find(`link[rel=canonical]`).AttrOr("href", ""))
	jsonld := d.Find(`script[type="application/ld+json"]`)
	require.Equal(t, 2, jsonld.Length())
	var product map[string]any
	require.NoError(t, json.Unmarshal([]byte(jsonld.First().Text()), &product))
	require.Equal(t, "Product", product["@type"])
	require.Equal(t, "89.90", product["offers"].(map[string]any)["price"])
	require.Equal(t, "EUR", product["offers"].(map[string]any)["priceCurrency"])

	require.Equal(t, "0", d.Find(".cart__badge").Text())
	require.Equal(t, "Add to cart", strings.TrimSpace(d.Find("#region-add-button button").Text()))
}

func TestProductPageRestoresViewState(t *testing.T) {
	b := newBrowser(t)
	d := doc(t, b.get("/product?id=runner&color=black&slide=1&offset=9"))
	require.Equal(t, "/assets/img/b2.svg", d.Find(".slider__img.is-active").AttrOr("src", ""))
	require.Equal(t, "1", d.Find(`#region-state input[name=offset]`).AttrOr("value", ""))
}

func TestUnknownProductRendersNotFound(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/product?id=nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	d := doc(t, rec)
	require.Equal(t, "Product not found", d.Find("main.missing h1").Text())
	require.Zero(t, d.Find("#region-cart").Length())
	require.Equal(t, "noindex", d.Find(`meta[name=robots]`).AttrOr("content", ""))
}

func TestMetaDescriptionFallsBackToDetails(t *testing.T) {
	b := newBrowser(t)
	d := doc(t, b.get("/product?id=trail"))
	require.Equal(t, "Built for mud.", d.Find(`meta[name=description]`).AttrOr("content", ""))
	require.Empty(t, d.Find(".product__description").Text())
	require.Equal(t, "mud", d.Find(".product__details em").Text())
}

func TestProductWithoutColorsIsUnavailable(t *testing.T) {
	b := newBrowser(t)
	rec := b.get("/product?id=empty")
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)
	require.Equal(t, "This product is currently unavailable.", strings.TrimSpace(d.Find("#region-color-error").Text()))
	_, disabled := d.Find("#region-add-button button").Attr("disabled")
	require.True(t, disabled)
	require.Zero(t, d.Find("#region-slider img").Length())
}

func TestColorChangeShowsOnlyThatColor(t *testing.T) {
	b := newBrowser(t)
	rec := b.event(ev("change", "color", "", "color", "black", "slide", "2"))
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)

	slider := d.Find("#region-slider")
	require.Equal(t, "true", slider.AttrOr("hx-swap-oob", ""))
	var srcs []string
	slider.Find(".slider__img").Each(func(_ int, s *goquery.Selection) { srcs = append(srcs, s.AttrOr("src", "")) })
	require.Equal(t, []string{"/assets/img/b1.svg", "/assets/img/b2.svg"}, srcs)
	require.Equal(t, "/assets/img/b1.svg", slider.Find(".is-active").AttrOr("src", ""))

	_, checked := d.Find("#region-colors input[value=black]").Attr("checked")
	require.True(t, checked)
	require.Equal(t, 1, d.Find("#region-colors .swatch--pulse").Length())
	require.Equal(t, "0", d.Find(`#region-state input[name=slide]`).AttrOr("value", ""))
	require.Zero(t, d.Find("#region-reviews").Length(), "only affected regions are returned")
}

func TestSliderWrapsAround(t *testing.T) {
	b := newBrowser(t)

	d := doc(t, b.event(ev("click", "slide-prev", "", "slide", "0")))
	require.Equal(t, "/assets/img/r3.svg", d.Find(".slider__img.is-active").AttrOr("src", ""))
	require.Equal(t, "2", d.Find(`#region-state input[name=slide]`).AttrOr("value", ""))

	d = doc(t, b.event(ev("click", "slide-next", "", "slide", "2")))
	require.Equal(t, "/assets/img/r1.svg", d.Find(".slider__img.is-active").AttrOr("src", ""))

	d = doc(t, b.event(ev("swipe", "slider", "", "slide", "0", "start", "300", "end", "100")))
	require.Equal(t, "/assets/img/r2.svg", d.Find(".slider__img.is-active").AttrOr("src", ""))

	d = doc(t, b.event(ev("swipe", "slider", "", "slide", "0", "start", "300", "end", "280")))
	require.Zero(t, d.Find("#region-slider").Length(), "short swipes change nothing")
	require.Equal(t, "0", d.Find(`#region-state input[name=slide]`).AttrOr("value", ""))
}

func TestSwipeRejectsNonFiniteCoordinates(t *testing.T) {
	b := newBrowser(t)
	for _, pair := range [][2]string{{"NaN", "0"}, {"Inf", "Inf"}, {"0", "-Inf"}} {
		rec := b.event(ev("swipe", "slider", "", "slide", "1", "start", pair[0], "end", pair[1]))
		require.Equal(t, http.StatusBadRequest, rec.Code, "start=%s end=%s", pair[0], pair[1])
		require.NotContains(t, rec.Body.String(), "region-slider")
	}
}

func TestReviewCarouselScrolls(t *testing.T) {
	b := newBrowser(t)
	full := doc(t, b.get("/product?id=runner"))
	require.Contains(t, full.Find("#reviews-strip").AttrOr("style", ""), "--offset-px: 0px")

	d := doc(t, b.event(ev("click", "reviews-right", "")))
	reviews := d.Find("#region-reviews")
	require.Equal(t, 1, reviews.Length())
	require.Contains(t, reviews.Find("#reviews-strip").AttrOr("style", ""), "--offset-px: 320px", "same strip id so the swap settles into a transition")
	require.Equal(t, 1, reviews.Find(".reviews__arrow--left").Length())
	require.Zero(t, reviews.Find(".reviews__arrow--right").Length(), "4 reviews with 3 visible stop at offset 1")
	require.Equal(t, "1", d.Find(`#region-state input[name=offset]`).AttrOr("value", ""))
}

func TestAddSameProductAndColorTwiceMerges(t *testing.T) {
	b := newBrowser(t)
	for i := 0; i < 2; i++ {
		rec := b.event(ev("click", "add-to-cart", "", "color", "red"))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	lines := b.cartLines()
	require.Len(t, lines, 1)
	require.EqualValues(t, 2, lines[0]["quantity"])
	require.Equal(t, "red", lines[0]["color"])
	require.Equal(t, "Zephyr Runner", lines[0]["name"])
}

func TestAddShowsConfirmationAndUpdatesCart(t *testing.T) {
	b := newBrowser(t)
	d := doc(t, b.event(ev("click", "add-to-cart", "red")))
	btn := d.Find("#region-add-button button")
	require.Equal(t, "Added!", strings.TrimSpace(btn.Text()))
	require.Equal(t, "load delay:2s", btn.AttrOr("hx-trigger", ""))
	require.Equal(t, "/product/add-button?id=runner", btn.AttrOr("hx-get", ""))
	require.Equal(t, "1", d.Find("#region-cart .cart__badge").Text())
	require.Equal(t, "89.90 €", d.Find("#region-cart .cart__total strong").Text())

	rec := b.get("/product/add-button?id=runner")
	require.Equal(t, http.StatusOK, rec.Code)
	d = doc(t, rec)
	require.Equal(t, "Add to cart", strings.TrimSpace(d.Find("#region-add-button button").Text()))
	require.Empty(t, d.Find("#region-add-button").AttrOr("hx-swap-oob", ""))
}

func TestRemoveByIDRecomputesTotal(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusOK, b.event(ev("click", "add-to-cart", "red")).Code)
	require.Equal(t, http.StatusOK, b.event(ev("click", "add-to-cart", "black")).Code)
	require.Equal(t, http.StatusOK, b.event(ev("click", "add-to-cart", "black")).Code)

	lines := b.cartLines()
	require.Len(t, lines, 2)
	require.EqualValues(t, 1000, lines[0]["id"])
	require.EqualValues(t, 1001, lines[1]["id"], "colliding ids are bumped")

	rec := b.event(ev("click", "cart-remove", "1000", "open", "1"))
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)
	require.Equal(t, 1, d.Find("#region-cart .cart__line").Length())
	require.Equal(t, "1001", d.Find("#region-cart .cart__remove").AttrOr("data-id", ""))
	require.Equal(t, "179.80 €", d.Find("#region-cart .cart__total strong").Text())
	require.Equal(t, "2", d.Find("#region-cart .cart__badge").Text())

	lines = b.cartLines()
	require.Len(t, lines, 1)
	require.Equal(t, "black", lines[0]["color"])

	rec = b.event(ev("click", "cart-remove", "abc"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReloadRestoresStoredCart(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusOK, b.event(ev("click", "add-to-cart", "red")).Code)
	require.Equal(t, http.StatusOK, b.event(ev("click", "add-to-cart", "red")).Code)
	require.Equal(t, http.StatusOK, b.event(ev("click", "add-to-cart", "black")).Code)
	before := b.cartLines()

	d := doc(t, b.get("/product?id=runner"))
	var names []string
	d.Find("#region-cart .cart__line-name").Each(func(_ int, s *goquery.Selection) { names = append(names, s.Text()) })
	require.Equal(t, []string{"Zephyr Runner (red) ×2", "Zephyr Runner (black) ×1"}, names)
	require.Equal(t, "269.70 €", d.Find("#region-cart .cart__total strong").Text())
	require.Equal(t, before, b.cartLines())

	panel := doc(t, b.get("/cart?open=1"))
	require.Equal(t, 2, panel.Find(".cart__line").Length())
	_, hidden := panel.Find("#cart-panel").Attr("hidden")
	require.False(t, hidden)
}

func TestAddWithoutColorShowsInlineError(t *testing.T) {
	b := newBrowser(t)
	form := ev("click", "add-to-cart", "")
	rec := b.event(form)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	d := doc(t, rec)
	require.Equal(t, "Please choose a color.", strings.TrimSpace(d.Find("#region-color-error").Text()))
	require.Equal(t, "true", d.Find("#region-color-error").AttrOr("hx-swap-oob", ""))
	require.Zero(t, d.Find("#region-cart").Length())
	require.Empty(t, b.cartLines())

	// Choosing a color afterwards clears the message.
	d = doc(t, b.event(ev("change", "color", "red")))
	require.Empty(t, strings.TrimSpace(d.Find("#region-color-error").Text()))
}

func TestCartToggle(t *testing.T) {
	b := newBrowser(t)
	d := doc(t, b.event(ev("click", "cart-toggle", "")))
	require.True(t, d.Find("#region-cart").HasClass("is-open"))
	require.Equal(t, "1", d.Find(`#region-state input[name=open]`).AttrOr("value", ""))

	d = doc(t, b.event(ev("click", "cart-toggle", "", "open", "1")))
	require.False(t, d.Find("#region-cart").HasClass("is-open"))
}

func TestOutsideClickClosesCartAfterQueuedAdd(t *testing.T) {
	b := newBrowser(t)
	full := doc(t, b.get("/product?id=runner"))
	require.Equal(t, "this:queue all", full.Find("body").AttrOr("hx-sync", ""), "events from the page are serialized")

	// With requests queued, the toggle is sent after the add response has updated the state.
	d := doc(t, b.event(ev("click", "add-to-cart", "", "color", "red", "open", "1")))
	require.True(t, d.Find("#region-cart").HasClass("is-open"))
	open := d.Find(`#region-state input[name=open]`).AttrOr("value", "")
	require.Equal(t, "1", open)

	d = doc(t, b.event(ev("click", "cart-toggle", "", "open", open)))
	require.False(t, d.Find("#region-cart").HasClass("is-open"))
	require.Equal(t, "1", d.Find(".cart__badge").Text())
}

func TestEventErrors(t *testing.T) {
	b := newBrowser(t)

	rec := b.event(ev("click", "nowhere", ""))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	rec = b.event(ev("change", "color", "purple"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.event(ev("swipe", "slider", "", "start", "x"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = b.event(url.Values{"id": {"runner"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	form := ev("click", "slide-next", "")
	form.Set("id", "nope")
	rec = b.event(form)
	require.Equal(t, http.StatusNotFound, rec.Code)

	form = ev("click", "nowhere", "")
	form.Set("id", "nope")
	rec = b.event(form)
	require.Equal(t, http.StatusBadRequest, rec.Code, "unhandled events are rejected before the product lookup")
}

func TestEventsRequireCSRFToken(t *testing.T) {
	b := newBrowser(t)
	req := httptest.NewRequest(http.MethodPost, "/product/events", strings.NewReader(ev("click", "slide-next", "").Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := b.do(req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTamperedStorageCookieIsIgnored(t *testing.T) {
	b := newBrowser(t)
	require.Equal(t, http.StatusOK, b.event(ev("click", "add-to-cart", "red")).Code)
	stored := b.cookies["ZEPHYR_STORAGE"]
	require.NotNil(t, stored)

	stored.Value = "x" + stored.Value
	require.Empty(t, b.cartLines())
}

func TestCatalogCheckCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	rootCmd.SetArgs([]string{"catalog", "check", "../../data/catalog.yaml"})
	require.NoError(t, rootCmd.Execute())
	require.Contains(t, out.String(), "OK: 3 products")

	out.Reset()
	rootCmd.SetArgs([]string{"catalog", "check", "../../internal/catalog/testdata/catalog.yaml"})
	require.Error(t, rootCmd.Execute())
	require.Contains(t, out.String(), "empty: colors: no colors defined")
}
