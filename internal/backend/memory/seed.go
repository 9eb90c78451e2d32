package memory

import "github.com/kailas-cloud/smartsearch/internal/domain"

const placeholderImage = "https://placehold.co/400"

func seedCategories() []domain.Category {
	tree := []struct {
		id       int
		name     string
		children []string
	}{
		{1, "Clothing", []string{"T-Shirts", "Jeans", "Jackets", "Shoes", "Accessories"}},
		{2, "Home", []string{"Decor", "Kitchen", "Bedding", "Lighting", "Furniture", "Electronics"}},
	}
	out := make([]domain.Category, 0, len(tree))
	for _, t := range tree {
		c := domain.Category{ID: t.id, Name: t.name}
		for i, name := range t.children {
			c.Children = append(c.Children, domain.Category{ID: t.id*100 + i + 1, Name: name})
		}
		out = append(out, c)
	}
	return out
}

func seedBrands() []domain.Brand {
	return []domain.Brand{
		{ID: 1, Name: "Heritage"},
		{ID: 2, Name: "Bluewash"},
		{ID: 3, Name: "Posture Lab"},
		{ID: 4, Name: "Echo Living"},
	}
}

type seedProduct struct {
	id, name, description string
	price                 float64
	brand                 string
	subcategory           string
}

var seedProducts = []seedProduct{
	{"1", "Vintage Leather Jacket", "A stylish vintage leather jacket.", 10.99, "Heritage", "Jackets"},
	{"2", "Classic Denim Jeans", "Comfortable classic fit denim jeans.", 20.97, "Bluewash", "Jeans"},
	{"3", "Ergonomic Office Chair", "An ergonomic chair for long hours at the desk.", 30.5, "Posture Lab", "Furniture"},
	{"4", "Smart Home Speaker", "Voice-activated smart speaker with great sound.", 40.99, "Echo Living", "Electronics"},
}
