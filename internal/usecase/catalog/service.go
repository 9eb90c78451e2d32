// Package catalog serves cached product listings and admin product writes.
package catalog

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/smartsearch/internal/cache"
	"github.com/kailas-cloud/smartsearch/internal/domain"
	"github.com/kailas-cloud/smartsearch/internal/mutation"
	"github.com/kailas-cloud/smartsearch/internal/usecase/access"
	"github.com/kailas-cloud/smartsearch/internal/validate"
)

// Cache keys.
var (
	ProductsKey   = cache.Key{"products"}
	CategoriesKey = cache.Key{"categories"}
	BrandsKey     = cache.Key{"brands"}
)

// ProductKey is the cache key of one product.
func ProductKey(id string) cache.Key { return cache.Key{"product", id} }

// ImagesKey is the cache key of the images of one product.
func ImagesKey(id string) cache.Key { return cache.Key{"productImages", id} }

type productUpdate struct {
	id string
	in domain.ProductInput
}

// Service reads the catalog through the request cache and writes it through
// mutation controllers that invalidate the product list on success.
type Service struct {
	backend  Backend
	cache    *cache.Store
	session  access.Session
	validate *validator.Validate
	pageSize int
	logger   *zap.Logger

	create *mutation.Controller[domain.ProductInput, string]
	update *mutation.Controller[productUpdate, struct{}]
	remove *mutation.Controller[string, struct{}]
}

// Option configures a Service.
type Option func(*options)

type options struct {
	pageSize  int
	logger    *zap.Logger
	validate  *validator.Validate
	mutations *prometheus.CounterVec
}

// WithPageSize sets the page size of Page.
func WithPageSize(n int) Option { return func(o *options) { o.pageSize = n } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(o *options) { o.logger = l } }

// WithValidator shares a validator instance.
func WithValidator(v *validator.Validate) Option { return func(o *options) { o.validate = v } }

// WithMetrics sets the mutation counter (labels "mutation", "result").
func WithMetrics(mutations *prometheus.CounterVec) Option {
	return func(o *options) { o.mutations = mutations }
}

// New creates a catalog service for the given user session.
func New(b Backend, store *cache.Store, sess access.Session, opts ...Option) *Service {
	o := options{pageSize: domain.DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.validate == nil {
		o.validate = validate.New()
	}

	s := &Service{
		backend:  b,
		cache:    store,
		session:  sess,
		validate: o.validate,
		pageSize: o.pageSize,
		logger:   o.logger,
	}
	curry := func(name string) *prometheus.CounterVec {
		if o.mutations == nil {
			return nil
		}
		return o.mutations.MustCurryWith(prometheus.Labels{"mutation": name})
	}

	s.create = mutation.New(b.CreateProduct, mutation.Config[domain.ProductInput, string]{
		Name:    "create_product",
		Logger:  o.logger,
		Metrics: curry("create_product"),
		OnSuccess: func(_ domain.ProductInput, id string) {
			s.cache.Invalidate(ProductsKey)
		},
	})
	s.update = mutation.New(func(ctx context.Context, u productUpdate) (struct{}, error) {
		return struct{}{}, b.UpdateProduct(ctx, u.id, u.in)
	}, mutation.Config[productUpdate, struct{}]{
		Name:    "update_product",
		Logger:  o.logger,
		Metrics: curry("update_product"),
		OnSuccess: func(u productUpdate, _ struct{}) {
			s.cache.Invalidate(ProductsKey)
			s.cache.Invalidate(ProductKey(u.id))
			s.cache.Invalidate(ImagesKey(u.id))
		},
	})
	s.remove = mutation.New(func(ctx context.Context, id string) (struct{}, error) {
		return struct{}{}, b.DeleteProduct(ctx, id)
	}, mutation.Config[string, struct{}]{
		Name:    "delete_product",
		Logger:  o.logger,
		Metrics: curry("delete_product"),
		OnSuccess: func(id string, _ struct{}) {
			s.cache.Invalidate(ProductsKey)
			s.cache.Remove(ProductKey(id))
			s.cache.Remove(ImagesKey(id))
		},
	})
	return s
}

// List returns all products, serving the last good list while it revalidates.
func (s *Service) List(ctx context.Context) ([]domain.Product, error) {
	products, err := cache.Query(ctx, s.cache, ProductsKey, s.backend.ListProducts)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Page filters the product list by query and returns one page of it.
func (s *Service) Page(ctx context.Context, query string, page int) (Page, error) {
	products, err := s.List(ctx)
	if err != nil {
		return Page{}, err
	}
	return Paginate(Filter(products, query), page, s.pageSize), nil
}

// Get returns one product.
func (s *Service) Get(ctx context.Context, id string) (domain.Product, error) {
	p, err := cache.Resolve(ctx, s.cache, ProductKey(id), func(ctx context.Context) (domain.Product, error) {
		return s.backend.GetProduct(ctx, id)
	})
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, nil
}

// Images returns the stored images of a product.
func (s *Service) Images(ctx context.Context, id string) ([]domain.ProductImage, error) {
	imgs, err := cache.Resolve(ctx, s.cache, ImagesKey(id), func(ctx context.Context) ([]domain.ProductImage, error) {
		return s.backend.ProductImages(ctx, id)
	})
	if err != nil {
		return nil, fmt.Errorf("product images %s: %w", id, err)
	}
	return imgs, nil
}

// Categories returns the category tree.
func (s *Service) Categories(ctx context.Context) ([]domain.Category, error) {
	c, err := cache.Query(ctx, s.cache, CategoriesKey, s.backend.ListCategories)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return c, nil
}

// Brands returns all brands.
func (s *Service) Brands(ctx context.Context) ([]domain.Brand, error) {
	b, err := cache.Query(ctx, s.cache, BrandsKey, s.backend.ListBrands)
	if err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}
	return b, nil
}

// Preload warms the product list and the categories and brands used by the
// product form, concurrently.
func (s *Service) Preload(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.List(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Categories(gctx)
		return err
	})
	g.Go(func() error {
		_, err := s.Brands(gctx)
		return err
	})
	return g.Wait()
}

// Create adds a product. Requires admin access.
func (s *Service) Create(ctx context.Context, in domain.ProductInput) (string, error) {
	if err := s.checkWrite(in); err != nil {
		return "", err
	}
	id, err := s.create.Trigger(ctx, in)
	if err != nil {
		return "", fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// Update replaces a product. Requires admin access.
func (s *Service) Update(ctx context.Context, id string, in domain.ProductInput) error {
	if err := s.checkWrite(in); err != nil {
		return err
	}
	if _, err := s.update.Trigger(ctx, productUpdate{id: id, in: in}); err != nil {
		return fmt.Errorf("update product %s: %w", id, err)
	}
	return nil
}

// Delete removes a product. Requires admin access.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := access.RequireAdmin(s.session); err != nil {
		return err
	}
	if _, err := s.remove.Trigger(ctx, id); err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	return nil
}

// CreateState returns the state of the create controller, e.g. to disable a submit button.
func (s *Service) CreateState() mutation.Snapshot[string] {
	return s.create.Snapshot()
}

func (s *Service) checkWrite(in domain.ProductInput) error {
	if err := access.RequireAdmin(s.session); err != nil {
		return err
	}
	return validate.Struct(s.validate, in)
}
