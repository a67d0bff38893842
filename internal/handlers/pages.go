package handlers

import (
	"finitefield.org/zephyr-web/internal/nav"
	"finitefield.org/zephyr-web/internal/seo"
)

// PageData is the view model for the shared layout.
type PageData struct {
	Title     string
	Lang      string
	Brand     string
	Path      string
	CSRFToken string
	SEO       seo.Meta

	Breadcrumbs []nav.Crumb

	// Product is the product page payload. Nil renders the bare shell.
	Product any
}
