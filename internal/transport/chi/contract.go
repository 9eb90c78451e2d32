package chi

import (
	"context"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

// SearchBackend serves search sessions, feedback and timings.
type SearchBackend interface {
	SubmitSearch(ctx context.Context, q domain.QueryRequest) (string, error)
	FetchResults(ctx context.Context, searchID string) (domain.SearchResults, error)
	SearchRawText(ctx context.Context, searchID string) (string, error)
	SendFeedback(ctx context.Context, fb domain.Feedback) error
	RecordSearchDuration(ctx context.Context, d domain.SearchDuration) error
	SearchTimings(ctx context.Context) ([]domain.SearchTiming, error)
	EmitResults(ctx context.Context, searchID string, emit func(domain.ResultEvent) error) error
	EmitImages(ctx context.Context, emit func(domain.ImageResult) error) error
}

// CatalogBackend serves products, categories and brands.
type CatalogBackend interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	CreateProduct(ctx context.Context, in domain.ProductInput) (string, error)
	UpdateProduct(ctx context.Context, id string, in domain.ProductInput) error
	DeleteProduct(ctx context.Context, id string) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
	ProductImages(ctx context.Context, id string) ([]domain.ProductImage, error)
}

// Backend is everything the mock API serves.
type Backend interface {
	SearchBackend
	CatalogBackend
}
