package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// ListProducts returns every product in insertion order.
func (b *Backend) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return cloneProducts(b.products), nil
}

// GetProduct returns one product.
func (b *Backend) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return domain.Product{}, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	i := b.productIndex(id)
	if i < 0 {
		return domain.Product{}, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return b.products[i], nil
}

// CreateProduct adds a product and returns its id.
func (b *Backend) CreateProduct(ctx context.Context, in domain.ProductInput) (string, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return "", err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.checkCategoryLocked(in); err != nil {
		return "", err
	}
	p := b.buildProduct(b.newID(), in)
	b.products = append(b.products, p)
	return p.ID, nil
}

// UpdateProduct replaces a product.
func (b *Backend) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) error {
	if err := b.wait(ctx, b.latency); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.productIndex(id)
	if i < 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if err := b.checkCategoryLocked(in); err != nil {
		return err
	}
	b.products[i] = b.buildProduct(id, in)
	return nil
}

// DeleteProduct removes a product.
func (b *Backend) DeleteProduct(ctx context.Context, id string) error {
	if err := b.wait(ctx, b.latency); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	i := b.productIndex(id)
	if i < 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	b.products = slices.Delete(b.products, i, i+1)
	return nil
}

// ListCategories returns the two-level category tree.
func (b *Backend) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.categories), nil
}

// ListBrands returns all brands.
func (b *Backend) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	if err := b.wait(ctx, b.latency); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.brands), nil
}

// ProductImages returns the images of a product.
func (b *Backend) ProductImages(ctx context.Context, id string) ([]domain.ProductImage, error) {
	p, err := b.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductImage, 0, len(p.Images))
	for _, img := range p.Images {
		out = append(out, domain.ProductImage{Image: img})
	}
	return out, nil
}

func (b *Backend) productIndex(id string) int {
	return slices.IndexFunc(b.products, func(p domain.Product) bool { return p.ID == id })
}

// checkCategoryLocked rejects category ids that are not in the tree.
func (b *Backend) checkCategoryLocked(in domain.ProductInput) error {
	if in.CategoryID > 0 {
		if _, _, ok := b.findCategory(in.CategoryID); !ok {
			return domain.NewValidationError("category_id", "unknown category")
		}
	}
	if in.SubcategoryID > 0 {
		if _, parent, ok := b.findCategory(in.SubcategoryID); !ok || parent == nil {
			return domain.NewValidationError("subcategory_id", "unknown subcategory")
		}
	}
	return nil
}

// buildProduct resolves brand and categories of in. Unknown brands are created.
// Callers hold the write lock or own b exclusively.
func (b *Backend) buildProduct(id string, in domain.ProductInput) domain.Product {
	p := domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Brand:       b.brandLocked(in.BrandName),
		Images:      slices.Clone(in.Images),
	}

	catID := in.CategoryID
	if in.SubcategoryID > 0 {
		catID = in.SubcategoryID
	}
	if c, parent, ok := b.findCategory(catID); ok {
		node := domain.Category{ID: c.ID, Name: c.Name}
		if parent != nil {
			node.Parent = &domain.Category{ID: parent.ID, Name: parent.Name}
			p.Subcategory = c.Name
		}
		p.Categories = []domain.Category{node}
	}
	return p
}

func (b *Backend) brandLocked(name string) domain.Brand {
	for _, br := range b.brands {
		if strings.EqualFold(br.Name, name) {
			return br
		}
	}
	br := domain.Brand{ID: len(b.brands) + 1, Name: name}
	b.brands = append(b.brands, br)
	return br
}

// findCategory looks id up among top-level categories and their children.
// parent is nil for a top-level category.
func (b *Backend) findCategory(id int) (domain.Category, *domain.Category, bool) {
	for i := range b.categories {
		top := &b.categories[i]
		if top.ID == id {
			return *top, nil, true
		}
		for _, child := range top.Children {
			if child.ID == id {
				return child, top, true
			}
		}
	}
	return domain.Category{}, nil, false
}

func (b *Backend) subcategoryID(name string) int {
	for _, top := range b.categories {
		for _, child := range top.Children {
			if child.Name == name {
				return child.ID
			}
		}
	}
	return 0
}
