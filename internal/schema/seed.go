package schema

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/roach88/alata/internal/model"
)

//go:embed seed.yaml
var seedYAML []byte

type seedFile struct {
	Products []struct {
		Code       string  `yaml:"code"`
		Name       string  `yaml:"name"`
		Category   string  `yaml:"category"`
		Unit       string  `yaml:"unit"`
		StockLevel int     `yaml:"stock"`
		UnitPrice  float64 `yaml:"price"`
	} `yaml:"products"`
}

// SeedProducts returns the fixed initial catalog installed on first run.
func SeedProducts() ([]model.Product, error) {
	var f seedFile
	if err := yaml.Unmarshal(seedYAML, &f); err != nil {
		return nil, fmt.Errorf("parse seed catalog: %w", err)
	}
	products := make([]model.Product, 0, len(f.Products))
	for _, p := range f.Products {
		products = append(products, model.Product{
			Code:       p.Code,
			Name:       p.Name,
			Category:   p.Category,
			Unit:       p.Unit,
			StockLevel: p.StockLevel,
			UnitPrice:  p.UnitPrice,
		})
	}
	return products, nil
}

// SeedCategories derives categories from the distinct category names of
// products, numbered from 1 in first-seen order.
func SeedCategories(products []model.Product) []model.Category {
	seen := make(map[string]bool)
	var out []model.Category
	for _, p := range products {
		if p.Category == "" || seen[p.Category] {
			continue
		}
		seen[p.Category] = true
		out = append(out, model.Category{ID: int64(len(out) + 1), Name: p.Category})
	}
	return out
}
