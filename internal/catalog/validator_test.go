package catalog

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/models"
)

func TestValidator_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		catalog *SeedCatalog
		wantErr bool
	}{
		{
			name: "valid catalog",
			catalog: &SeedCatalog{
				Categories: []CategorySeed{{Name: "Audio"}},
				Products: []ProductSeed{
					{Name: "Headphones", Description: "Noise cancelling", Price: "250", Category: "Audio"},
				},
			},
			wantErr: false,
		},
		{
			name:    "no products",
			catalog: &SeedCatalog{},
			wantErr: true,
		},
		{
			name: "duplicate category slug",
			catalog: &SeedCatalog{
				Categories: []CategorySeed{{Name: "Home Decor"}, {Name: "home  decor"}},
				Products: []ProductSeed{
					{Name: "Lamp", Description: "Lamp", Price: "10", Category: "Home Decor"},
				},
			},
			wantErr: true,
		},
		{
			name: "unknown category",
			catalog: &SeedCatalog{
				Categories: []CategorySeed{{Name: "Audio"}},
				Products: []ProductSeed{
					{Name: "Lamp", Description: "Lamp", Price: "10", Category: "Home"},
				},
			},
			wantErr: true,
		},
		{
			name: "zero price",
			catalog: &SeedCatalog{
				Products: []ProductSeed{
					{Name: "Lamp", Description: "Lamp", Price: "0", Category: "Home"},
				},
			},
			wantErr: true,
		},
	}

	validator := NewValidator()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := validator.Validate(tc.catalog)
			if tc.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidator_ValidateProduct(t *testing.T) {
	t.Parallel()

	valid := func() *models.Product {
		return &models.Product{
			Name:        "Watch",
			Description: "A watch",
			Price:       decimal.NewFromInt(120),
			Category:    "Accessories",
			ImageURLs:   []string{"https://example.com/watch.jpg"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(p *models.Product)
		wantErr bool
	}{
		{name: "valid", mutate: func(*models.Product) {}},
		{name: "name too long", mutate: func(p *models.Product) { p.Name = strings.Repeat("a", 61) }, wantErr: true},
		{name: "name at limit", mutate: func(p *models.Product) { p.Name = strings.Repeat("a", 60) }},
		{name: "missing description", mutate: func(p *models.Product) { p.Description = " " }, wantErr: true},
		{name: "negative price", mutate: func(p *models.Product) { p.Price = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "missing category", mutate: func(p *models.Product) { p.Category = "" }, wantErr: true},
		{name: "bad image url", mutate: func(p *models.Product) { p.ImageURLs = []string{"ftp://x"} }, wantErr: true},
	}

	validator := NewValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			product := valid()
			tt.mutate(product)
			err := validator.ValidateProduct(product)
			if tt.wantErr != (err != nil) {
				t.Fatalf("ValidateProduct() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidator_ValidateCategoryName(t *testing.T) {
	t.Parallel()

	validator := NewValidator()
	if err := validator.ValidateCategoryName("  "); err == nil {
		t.Fatal("expected error for blank name")
	}
	if err := validator.ValidateCategoryName(strings.Repeat("c", 51)); err == nil {
		t.Fatal("expected error for long name")
	}
	if err := validator.ValidateCategoryName("Kitchen"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
