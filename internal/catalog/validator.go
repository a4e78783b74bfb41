package catalog

import (
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/storefrontapp/storefront/internal/models"
)

const (
	MaxProductNameLength  = 60
	MaxCategoryNameLength = 50
)

type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

func (v *Validator) Validate(catalog *SeedCatalog) error {
	if len(catalog.Products) == 0 {
		return fmt.Errorf("at least one product is required")
	}

	categoryNames := make(map[string]bool)
	slugs := make(map[string]bool)
	for i, category := range catalog.Categories {
		name := strings.TrimSpace(category.Name)
		if err := v.ValidateCategoryName(name); err != nil {
			return fmt.Errorf("category %d validation failed: %w", i, err)
		}
		if categoryNames[name] {
			return fmt.Errorf("duplicate category: %s", name)
		}
		slug := models.CategorySlug(name)
		if slugs[slug] {
			return fmt.Errorf("duplicate category slug: %s", slug)
		}
		categoryNames[name] = true
		slugs[slug] = true
	}

	for i, seed := range catalog.Products {
		price, err := decimal.NewFromString(strings.TrimSpace(seed.Price))
		if err != nil {
			return fmt.Errorf("product %d validation failed: invalid price %q", i, seed.Price)
		}
		product := &models.Product{
			Name:        strings.TrimSpace(seed.Name),
			Description: strings.TrimSpace(seed.Description),
			Price:       price,
			Category:    strings.TrimSpace(seed.Category),
			ImageURLs:   seed.Images,
		}
		if err := v.ValidateProduct(product); err != nil {
			return fmt.Errorf("product %d validation failed: %w", i, err)
		}
		if len(categoryNames) > 0 && !categoryNames[product.Category] {
			return fmt.Errorf("product %d references unknown category: %s", i, product.Category)
		}
	}

	return nil
}

func (v *Validator) ValidateProduct(product *models.Product) error {
	name := strings.TrimSpace(product.Name)
	if name == "" {
		return fmt.Errorf("product name is required")
	}
	if utf8.RuneCountInString(name) > MaxProductNameLength {
		return fmt.Errorf("product name cannot be more than %d characters", MaxProductNameLength)
	}

	if strings.TrimSpace(product.Description) == "" {
		return fmt.Errorf("product description is required")
	}

	if !product.Price.IsPositive() {
		return fmt.Errorf("product price must be positive")
	}

	if strings.TrimSpace(product.Category) == "" {
		return fmt.Errorf("product category is required")
	}

	for _, raw := range product.ImageURLs {
		parsed, err := url.Parse(raw)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("invalid image URL: %s", raw)
		}
	}

	return nil
}

func (v *Validator) ValidateCategoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("category name is required")
	}
	if utf8.RuneCountInString(name) > MaxCategoryNameLength {
		return fmt.Errorf("category name cannot be more than %d characters", MaxCategoryNameLength)
	}
	return nil
}
