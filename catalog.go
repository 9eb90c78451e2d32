package smartsearch

import (
	"context"
	"time"
)

// Products returns one page of the product list, filtered case-insensitively
// by name, brand or category. An out-of-range page falls back to page 1.
func (c *Client) Products(ctx context.Context, filter string, page int) (ProductPage, error) {
	start := time.Now()
	p, err := c.catalog.Page(ctx, filter, page)
	c.obs.observe("products", start, err)
	return p, err
}

// Product returns one product.
func (c *Client) Product(ctx context.Context, id string) (Product, error) {
	start := time.Now()
	p, err := c.catalog.Get(ctx, id)
	c.obs.observe("product", start, err)
	return p, err
}

// ProductImages returns the stored images of a product.
func (c *Client) ProductImages(ctx context.Context, id string) ([]ProductImage, error) {
	start := time.Now()
	images, err := c.catalog.Images(ctx, id)
	c.obs.observe("product_images", start, err)
	return images, err
}

// Categories returns the two-level category tree.
func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	start := time.Now()
	cats, err := c.catalog.Categories(ctx)
	c.obs.observe("categories", start, err)
	return cats, err
}

// Brands returns all brands.
func (c *Client) Brands(ctx context.Context) ([]Brand, error) {
	start := time.Now()
	brands, err := c.catalog.Brands(ctx)
	c.obs.observe("brands", start, err)
	return brands, err
}

// PreloadCatalog warms the product, category and brand caches concurrently.
func (c *Client) PreloadCatalog(ctx context.Context) error {
	start := time.Now()
	err := c.catalog.Preload(ctx)
	c.obs.observe("preload_catalog", start, err)
	return err
}

// CreateProduct creates a product and returns its id. Requires WithAdmin.
func (c *Client) CreateProduct(ctx context.Context, in ProductInput) (string, error) {
	start := time.Now()
	id, err := c.catalog.Create(ctx, in)
	c.obs.observe("create_product", start, err)
	return id, err
}

// UpdateProduct replaces a product. Requires WithAdmin.
func (c *Client) UpdateProduct(ctx context.Context, id string, in ProductInput) error {
	start := time.Now()
	err := c.catalog.Update(ctx, id, in)
	c.obs.observe("update_product", start, err)
	return err
}

// DeleteProduct removes a product. Requires WithAdmin.
func (c *Client) DeleteProduct(ctx context.Context, id string) error {
	start := time.Now()
	err := c.catalog.Delete(ctx, id)
	c.obs.observe("delete_product", start, err)
	return err
}
