package catalog

import (
	"testing"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

func TestFilter(t *testing.T) {
	clothing := domain.Category{ID: 1, Name: "Clothing"}
	products := []domain.Product{
		{ID: "1", Name: "Vintage Leather Jacket", Brand: domain.Brand{Name: "Heritage"},
			Categories: []domain.Category{{ID: 3, Name: "Jackets", Parent: &clothing}}, Subcategory: "Outerwear"},
		{ID: "2", Name: "Ergonomic Office Chair", Brand: domain.Brand{Name: "Sitwell"},
			Categories: []domain.Category{{ID: 2, Name: "Home"}}, Subcategory: "Furniture"},
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"1", "2"}},
		{"  ", []string{"1", "2"}},
		{"JACKET", []string{"1"}},
		{"sitwell", []string{"2"}},
		{"clothing", []string{"1"}},
		{"home", []string{"2"}},
		{"furn", []string{"2"}},
		{"o", []string{"1", "2"}},
		{"speaker", nil},
	}
	for _, tt := range tests {
		got := Filter(products, tt.query)
		if len(got) != len(tt.want) {
			t.Errorf("Filter(%q): got %d products, want %d", tt.query, len(got), len(tt.want))
			continue
		}
		for i := range got {
			if got[i].ID != tt.want[i] {
				t.Errorf("Filter(%q)[%d] = %s, want %s", tt.query, i, got[i].ID, tt.want[i])
			}
		}
	}
}

func TestPaginate(t *testing.T) {
	items := make([]domain.Product, 25)
	tests := []struct {
		page, size        int
		wantPage, wantLen int
		wantTotalPages    int
	}{
		{1, 10, 1, 10, 3},
		{3, 10, 3, 5, 3},
		{4, 10, 1, 10, 3},
		{0, 10, 1, 10, 3},
		{2, 0, 2, 10, 3},
	}
	for _, tt := range tests {
		p := Paginate(items, tt.page, tt.size)
		if p.Page != tt.wantPage || len(p.Items) != tt.wantLen || p.TotalPages != tt.wantTotalPages {
			t.Errorf("Paginate(page=%d,size=%d) = page %d, %d items, %d pages", tt.page, tt.size, p.Page, len(p.Items), p.TotalPages)
		}
	}

	empty := Paginate(nil, 2, 10)
	if empty.Page != 1 || empty.TotalPages != 0 || len(empty.Items) != 0 {
		t.Errorf("unexpected empty page %+v", empty)
	}
}
