package nav

import "net/url"

// Crumb represents a breadcrumb entry. If LabelKey is empty, use Label.
type Crumb struct {
	Href     string
	LabelKey string
	Label    string
	Active   bool
}

// ProductBreadcrumbs builds Home > product name for a product page.
func ProductBreadcrumbs(productID, name string) []Crumb {
	crumbs := []Crumb{{Href: "/", LabelKey: "nav.home"}}
	if name == "" {
		crumbs[0].Active = true
		return crumbs
	}
	return append(crumbs, Crumb{Href: ProductURL(productID), Label: name, Active: true})
}

// ProductURL is the canonical path of a product page.
func ProductURL(productID string) string {
	return "/product?id=" + url.QueryEscape(productID)
}
