package seo

import (
	"encoding/json"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Offer describes the price block of a Product.
type Offer struct {
	Price        string
	Currency     string
	URL          string
	Availability string
}

// Rating is an aggregate review score.
type Rating struct {
	Value string
	Count int
}

// ProductInput collects the fields used to build a Product schema.
type ProductInput struct {
	Name        string
	Description string
	URL         string
	Images      []string
	SKU         string
	Brand       string
	Offer       Offer
	Rating      Rating
}

// Product returns a schema.org Product with an Offer and, when reviews exist, an AggregateRating.
func Product(in ProductInput) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Product",
		"name":     in.Name,
	}
	if in.Description != "" {
		m["description"] = in.Description
	}
	if in.URL != "" {
		m["url"] = in.URL
	}
	if len(in.Images) > 0 {
		m["image"] = in.Images
	}
	if in.SKU != "" {
		m["sku"] = in.SKU
	}
	if in.Brand != "" {
		m["brand"] = map[string]any{"@type": "Brand", "name": in.Brand}
	}
	if in.Offer.Price != "" {
		offer := map[string]any{
			"@type":         "Offer",
			"price":         in.Offer.Price,
			"priceCurrency": in.Offer.Currency,
		}
		if in.Offer.URL != "" {
			offer["url"] = in.Offer.URL
		}
		if in.Offer.Availability != "" {
			offer["availability"] = in.Offer.Availability
		}
		m["offers"] = offer
	}
	if in.Rating.Count > 0 {
		m["aggregateRating"] = map[string]any{
			"@type":       "AggregateRating",
			"ratingValue": in.Rating.Value,
			"reviewCount": in.Rating.Count,
			"bestRating":  5,
			"worstRating": 0,
		}
	}
	return m
}

// BreadcrumbItem maps name and absolute item URL.
type BreadcrumbItem struct {
	Name string
	Item string
}

// BreadcrumbList builds schema.org BreadcrumbList.
func BreadcrumbList(items []BreadcrumbItem) map[string]any {
	el := make([]map[string]any, 0, len(items))
	for i, it := range items {
		el = append(el, map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
			"name":     it.Name,
			"item":     it.Item,
		})
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "BreadcrumbList",
		"itemListElement": el,
	}
}
