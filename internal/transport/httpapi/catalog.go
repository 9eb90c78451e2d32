package httpapi

import (
	"context"
	"net/http"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

type productIDResponse struct {
	ProductID string `json:"product_id"`
}

type imagesResponse struct {
	Images []domain.ProductImage `json:"images"`
}

// ListProducts returns every product.
func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var out []domain.Product
	if err := c.do(ctx, "list products", http.MethodGet, "/api/products", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct returns one product. A missing product is a 404 TransportError.
func (c *Client) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var out domain.Product
	if err := c.do(ctx, "get product", http.MethodGet, "/api/products/"+escape(id), nil, &out); err != nil {
		return domain.Product{}, err
	}
	return out, nil
}

// CreateProduct creates a product and returns its id.
func (c *Client) CreateProduct(ctx context.Context, in domain.ProductInput) (string, error) {
	const op = "create product"
	var out productIDResponse
	if err := c.do(ctx, op, http.MethodPost, "/api/products", in, &out); err != nil {
		return "", err
	}
	return checkID(op, out.ProductID)
}

// UpdateProduct replaces a product.
func (c *Client) UpdateProduct(ctx context.Context, id string, in domain.ProductInput) error {
	return c.do(ctx, "update product", http.MethodPut, "/api/products/"+escape(id), in, nil)
}

// DeleteProduct deletes a product.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	return c.do(ctx, "delete product", http.MethodDelete, "/api/products/"+escape(id), nil, nil)
}

// ListCategories returns the category tree.
func (c *Client) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var out []domain.Category
	if err := c.do(ctx, "list categories", http.MethodGet, "/api/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListBrands returns all brands.
func (c *Client) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	var out []domain.Brand
	if err := c.do(ctx, "list brands", http.MethodGet, "/api/brands", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductImages returns the stored images of a product.
func (c *Client) ProductImages(ctx context.Context, id string) ([]domain.ProductImage, error) {
	var out imagesResponse
	if err := c.do(ctx, "product images", http.MethodGet, "/api/products/"+escape(id)+"/images", nil, &out); err != nil {
		return nil, err
	}
	return out.Images, nil
}
