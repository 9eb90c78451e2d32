package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

type productIDResponse struct {
	ProductID string `json:"product_id"`
}

type imagesResponse struct {
	Images []domain.ProductImage `json:"images"`
}

// ListProducts handles GET /api/products.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.backend.ListProducts(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// GetProduct handles GET /api/products/{productID}.
func (s *Server) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.backend.GetProduct(r.Context(), gochi.URLParam(r, "productID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// CreateProduct handles POST /api/products.
func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !s.decode(w, r, &in) {
		return
	}
	id, err := s.backend.CreateProduct(r.Context(), in)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, productIDResponse{ProductID: id})
}

// UpdateProduct handles PUT /api/products/{productID}.
func (s *Server) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in domain.ProductInput
	if !s.decode(w, r, &in) {
		return
	}
	if err := s.backend.UpdateProduct(r.Context(), gochi.URLParam(r, "productID"), in); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteProduct handles DELETE /api/products/{productID}.
func (s *Server) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteProduct(r.Context(), gochi.URLParam(r, "productID")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProductImages handles GET /api/products/{productID}/images.
func (s *Server) ProductImages(w http.ResponseWriter, r *http.Request) {
	images, err := s.backend.ProductImages(r.Context(), gochi.URLParam(r, "productID"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if images == nil {
		images = []domain.ProductImage{}
	}
	writeJSON(w, http.StatusOK, imagesResponse{Images: images})
}

// ListCategories handles GET /api/categories.
func (s *Server) ListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.backend.ListCategories(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// ListBrands handles GET /api/brands.
func (s *Server) ListBrands(w http.ResponseWriter, r *http.Request) {
	brands, err := s.backend.ListBrands(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, brands)
}
