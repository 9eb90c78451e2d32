package catalog

import (
	"strings"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// Page is one page of a filtered product list.
type Page struct {
	Items      []domain.Product `json:"items"`
	Page       int              `json:"page"`
	TotalPages int              `json:"total_pages"`
	Total      int              `json:"total"`
}

// Filter keeps products whose name, brand, category, parent category or
// subcategory contains query, case-insensitively. An empty query keeps all.
func Filter(products []domain.Product, query string) []domain.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}

	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if matches(p, q) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.Product, q string) bool {
	if contains(p.Name, q) || contains(p.Brand.Name, q) || contains(p.Subcategory, q) {
		return true
	}
	for _, c := range p.Categories {
		if contains(c.Name, q) || (c.Parent != nil && contains(c.Parent.Name, q)) {
			return true
		}
	}
	return false
}

func contains(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

// Paginate returns page (1-based) of items. Out-of-range pages fall back to page 1.
func Paginate(items []domain.Product, page, size int) Page {
	if size <= 0 {
		size = domain.DefaultPageSize
	}
	total := len(items)
	pages := (total + size - 1) / size
	if page < 1 || page > pages {
		page = 1
	}

	start := (page - 1) * size
	end := min(start+size, total)
	return Page{
		Items:      items[start:end],
		Page:       page,
		TotalPages: pages,
		Total:      total,
	}
}
