package validate

import (
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/smartsearch/internal/domain"
)

func TestStruct_ReportsJSONFieldName(t *testing.T) {
	v := New()
	err := Struct(v, domain.ProductInput{Name: "Chair", CategoryID: 1})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Field != "brand_name" || verr.Reason != "required" {
		t.Fatalf("unexpected error %+v", verr)
	}
}

func TestStruct_Valid(t *testing.T) {
	in := domain.ProductInput{
		Name: "Ergonomic Office Chair", BrandName: "Sitwell", CategoryID: 2,
		Price: 199.99, Images: []string{"https://example.com/chair.jpg"},
	}
	if err := Struct(New(), in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestVar_CountsRunes(t *testing.T) {
	v := New()
	if err := Var(v, "raw_text", strings.Repeat("ж", 5), "max=5"); err != nil {
		t.Fatalf("5 runes should pass: %v", err)
	}
	err := Var(v, "raw_text", strings.Repeat("ж", 6), "max=5")
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Field != "raw_text" {
		t.Fatalf("expected raw_text validation error, got %v", err)
	}
}
