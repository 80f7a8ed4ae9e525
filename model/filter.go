package model

// Listing helpers for callers that render storefront pages. The catalog core
// returns rows regardless of their status; filtering is the caller's choice.

func ActiveCategories(in []*Category) []*Category {
	out := make([]*Category, 0, len(in))
	for _, c := range in {
		if c != nil && c.Active {
			out = append(out, c)
		}
	}
	return out
}

// ActiveProducts keeps active products whose category, when loaded, is active
// too.
func ActiveProducts(in []*Product) []*Product {
	out := make([]*Product, 0, len(in))
	for _, p := range in {
		if p == nil || !p.Active {
			continue
		}
		if p.Category != nil && !p.Category.Active {
			continue
		}
		out = append(out, p)
	}
	return out
}
