package catalog

import "fmt"

// Problem describes a catalog entry that loads but renders degraded.
type Problem struct {
	ProductID string
	Field     string
	Message   string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: %s: %s", p.ProductID, p.Field, p.Message)
}

// Validate reports data problems without rejecting the catalog. Rendering skips the affected
// section for each of them.
func Validate(products []Product) []Problem {
	known := make(map[string]struct{}, len(products))
	for _, p := range products {
		known[p.ID] = struct{}{}
	}

	var problems []Problem
	add := func(id, field, format string, args ...any) {
		problems = append(problems, Problem{ProductID: id, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	for _, p := range products {
		if p.Name == "" {
			add(p.ID, "name", "missing name")
		}
		if p.Price.IsNegative() {
			add(p.ID, "price", "negative price %s", p.Price.StringFixed(2))
		}
		if len(p.Colors) == 0 {
			add(p.ID, "colors", "no colors defined")
		}
		for _, c := range p.Colors {
			if len(c.Images) == 0 {
				add(p.ID, "colors."+c.Key, "color has no images")
			}
		}
		for i, r := range p.Reviews {
			if r.Rating < 0 || r.Rating > 5 {
				add(p.ID, fmt.Sprintf("reviews[%d]", i), "rating %d outside 0..5", r.Rating)
			}
		}
		for _, id := range p.Similar {
			if _, ok := known[id]; !ok {
				add(p.ID, "similar", "unknown product %q", id)
			}
		}
	}
	return problems
}
