package main

import (
	"context"
	"html/template"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"finitefield.org/zephyr-web/internal/cart"
	"finitefield.org/zephyr-web/internal/catalog"
	"finitefield.org/zephyr-web/internal/markup"
	"finitefield.org/zephyr-web/internal/nav"
	"finitefield.org/zephyr-web/internal/observability"
	"finitefield.org/zephyr-web/internal/page"
	"finitefield.org/zephyr-web/internal/seo"
)

// ProductView is the product page payload. Region templates read the same struct, so a full
// render and an out-of-band swap produce identical markup.
type ProductView struct {
	Lang string
	ID   string

	Name        string
	Price       decimal.Decimal
	OldPrice    *decimal.Decimal
	HasOldPrice bool
	Description string
	Details     template.HTML
	Features    []string
	Payments    []string
	Rating      decimal.Decimal
	RatingStars int
	RatingCount int

	Available  bool
	Colors     []ColorOption
	ColorError string

	Slider  SliderView
	Reviews ReviewsView
	Similar []SimilarCard

	Added bool
	Cart  CartView
	State page.State

	// OOB marks regions rendered as htmx out-of-band swaps.
	OOB bool
}

// ColorOption is one radio of the color selector.
type ColorOption struct {
	Key       string
	Name      string
	Swatch    string
	Checked   bool
	Highlight bool
}

type SliderView struct {
	Slides []Slide
	Index  int
	Len    int
	Active string
}

type Slide struct {
	Src    string
	Index  int
	Active bool
}

type ReviewsView struct {
	Cards     []ReviewCard
	Offset    int
	ShowLeft  bool
	ShowRight bool
	ScrollPx  int
	StepPx    int
}

type ReviewCard struct {
	Author string
	Rating int
	Text   string
	Photos []string
}

type SimilarCard struct {
	ID    string
	Name  string
	Image string
	URL   string
	Price decimal.Decimal
}

// CartView is the cart panel: badge, lines and total.
type CartView struct {
	Open  bool
	Count int
	Total decimal.Decimal
	Lines []CartLine
}

type CartLine struct {
	ID       string
	Name     string
	Color    string
	Quantity int
	Image    string
	Subtotal decimal.Decimal
}

func (a *app) buildProductView(ctx context.Context, lang string, s *page.Session) ProductView {
	p := s.Product
	rating, count := p.AverageRating()

	v := ProductView{
		Lang:        lang,
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		OldPrice:    p.OldPrice,
		HasOldPrice: p.HasOldPrice(),
		Description: p.Description,
		Features:    p.Features,
		Payments:    p.Payments,
		Rating:      rating,
		RatingStars: int(rating.Round(0).IntPart()),
		RatingCount: count,
		Available:   s.Available(),
		ColorError:  s.ColorError.MessageKey(),
		Added:       s.Added,
		Cart:        buildCartView(s.Cart, s.CartOpen),
		State:       s.State(),
	}

	if p.Details != "" {
		v.Details = a.markup.HTML(p.Details)
	}

	v.Colors = make([]ColorOption, 0, len(p.Colors))
	for _, c := range p.Colors {
		v.Colors = append(v.Colors, ColorOption{
			Key:       c.Key,
			Name:      c.Name,
			Swatch:    c.Swatch,
			Checked:   c.Key == s.Color,
			Highlight: c.Key == s.Highlight,
		})
	}

	v.Slider = SliderView{
		Index:  s.Slider.Index(),
		Len:    s.Slider.Len(),
		Active: s.Slider.Active(),
	}
	for i, src := range s.Slider.Images {
		v.Slider.Slides = append(v.Slider.Slides, Slide{Src: src, Index: i, Active: i == s.Slider.Index()})
	}

	v.Reviews = ReviewsView{
		Offset:    s.Reviews.Offset,
		ShowLeft:  s.Reviews.ShowLeft(),
		ShowRight: s.Reviews.ShowRight(),
		ScrollPx:  s.Reviews.ScrollPx(),
		StepPx:    s.Reviews.StepPx(),
	}
	for _, r := range p.Reviews {
		v.Reviews.Cards = append(v.Reviews.Cards, ReviewCard{
			Author: r.Author,
			Rating: r.Rating,
			Text:   r.Text,
			Photos: r.Photos,
		})
	}

	v.Similar = a.similarCards(ctx, p.Similar)
	return v
}

// similarCards resolves linked products, skipping ids the catalog does not know.
func (a *app) similarCards(ctx context.Context, ids []string) []SimilarCard {
	out := make([]SimilarCard, 0, len(ids))
	for _, id := range ids {
		p, err := a.repo.Product(ctx, id)
		if err != nil {
			observability.FromContext(ctx).Debug("skipping similar product", zap.String("similar_id", id), zap.Error(err))
			continue
		}
		out = append(out, SimilarCard{
			ID:    p.ID,
			Name:  p.Name,
			Image: p.CoverImage(),
			URL:   nav.ProductURL(p.ID),
			Price: p.Price,
		})
	}
	return out
}

func buildCartView(store *cart.Store, open bool) CartView {
	sum := store.Summary()
	v := CartView{Open: open, Count: sum.Count, Total: sum.Total, Lines: make([]CartLine, 0, store.Len())}
	for _, it := range store.Items() {
		v.Lines = append(v.Lines, CartLine{
			ID:       strconv.FormatInt(it.ID, 10),
			Name:     it.Name,
			Color:    it.Color,
			Quantity: it.Quantity,
			Image:    it.Image,
			Subtotal: it.Subtotal(),
		})
	}
	return v
}

// productSEO fills title, canonical URL, description and JSON-LD for a product page.
func (a *app) productSEO(r *http.Request, v ProductView, p catalog.Product) seo.Meta {
	brand := a.cfg.Storefront.Brand
	canonical := absoluteURL(r, nav.ProductURL(p.ID))
	desc := markup.Summary(p.Description, 160)
	if desc == "" {
		desc = a.markup.PlainText(p.Details, 160)
	}

	meta := seo.Meta{
		Title:       p.Name + " | " + brand,
		Description: desc,
		Canonical:   canonical,
		OG: seo.OpenGraph{
			Title:       p.Name,
			Description: desc,
			Image:       absoluteURL(r, p.CoverImage()),
			Type:        "product",
			URL:         canonical,
			SiteName:    brand,
		},
	}

	availability := "https://schema.org/InStock"
	if !v.Available {
		availability = "https://schema.org/OutOfStock"
	}
	images := make([]string, 0, len(v.Slider.Slides))
	for _, s := range v.Slider.Slides {
		images = append(images, absoluteURL(r, s.Src))
	}
	in := seo.ProductInput{
		Name:        p.Name,
		Description: desc,
		URL:         canonical,
		Images:      images,
		SKU:         p.ID,
		Brand:       brand,
		Offer: seo.Offer{
			Price:        p.Price.StringFixed(2),
			Currency:     currencyCode(a.cfg.Storefront.CurrencySymbol),
			URL:          canonical,
			Availability: availability,
		},
	}
	if v.RatingCount > 0 {
		in.Rating = seo.Rating{Value: v.Rating.String(), Count: v.RatingCount}
	}

	crumbs := nav.ProductBreadcrumbs(p.ID, p.Name)
	items := make([]seo.BreadcrumbItem, 0, len(crumbs))
	for _, c := range crumbs {
		name := c.Label
		if c.LabelKey != "" {
			name = a.bundle.T(v.Lang, c.LabelKey)
		}
		items = append(items, seo.BreadcrumbItem{Name: name, Item: absoluteURL(r, c.Href)})
	}

	meta.JSONLD = []string{seo.JSON(seo.Product(in)), seo.JSON(seo.BreadcrumbList(items))}
	return meta
}

func currencyCode(symbol string) string {
	switch symbol {
	case "€":
		return "EUR"
	case "$":
		return "USD"
	case "£":
		return "GBP"
	case "¥":
		return "JPY"
	}
	return symbol
}

// absoluteURL joins path onto the request's scheme and host.
func absoluteURL(r *http.Request, path string) string {
	if path == "" {
		return ""
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host + path
}
