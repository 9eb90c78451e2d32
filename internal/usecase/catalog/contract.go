package catalog

import (
	"context"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// Backend is the catalog API contract.
type Backend interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (string, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput) error
	DeleteProduct(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	ProductImages(ctx context.Context, id string) ([]domain.ProductImage, error)
}
