// Package catalog prices orders and parses and validates seed catalogs.
package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/storefrontapp/storefront/internal/models"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type SeedCatalog struct {
	Categories []CategorySeed `yaml:"categories"`
	Products   []ProductSeed  `yaml:"products"`
}

type CategorySeed struct {
	Name string `yaml:"name"`
}

type ProductSeed struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Price       string   `yaml:"price"`
	Category    string   `yaml:"category"`
	Images      []string `yaml:"images"`
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(content []byte) (*SeedCatalog, error) {
	var catalog SeedCatalog
	if err := yaml.Unmarshal(content, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &catalog, nil
}

// ParseDefault parses the catalog bundled with the binary.
func (p *Parser) ParseDefault() (*SeedCatalog, error) {
	return p.Parse(defaultCatalog)
}

// Build converts a validated seed catalog into records ready for insertion.
func (c *SeedCatalog) Build() ([]*models.Category, []*models.Product, error) {
	categories := make([]*models.Category, 0, len(c.Categories))
	for _, seed := range c.Categories {
		name := strings.TrimSpace(seed.Name)
		categories = append(categories, &models.Category{
			Name: name,
			Slug: models.CategorySlug(name),
		})
	}

	products := make([]*models.Product, 0, len(c.Products))
	for i, seed := range c.Products {
		price, err := decimal.NewFromString(strings.TrimSpace(seed.Price))
		if err != nil {
			return nil, nil, fmt.Errorf("product %d: invalid price %q: %w", i, seed.Price, err)
		}
		images := seed.Images
		if images == nil {
			images = []string{}
		}
		products = append(products, &models.Product{
			Name:        strings.TrimSpace(seed.Name),
			Description: strings.TrimSpace(seed.Description),
			Price:       price,
			Category:    strings.TrimSpace(seed.Category),
			ImageURLs:   images,
		})
	}

	return categories, products, nil
}
