package catalog

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	Name              string `yaml:"name"`
	Description       string `yaml:"description"`
	Price             string `yaml:"price"`
	Category          string `yaml:"category"`
	Image             string `yaml:"image"`
	InventoryQuantity int    `yaml:"inventory_quantity"`
}

// ParseSeed reads a YAML product list. Prices are strings so that values
// such as 9.99 keep their exact decimal form.
func ParseSeed(r io.Reader) ([]Product, error) {
	var file seedFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}

	products := make([]Product, 0, len(file.Products))
	for i, sp := range file.Products {
		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return nil, fmt.Errorf("%w: product #%d (%q) has invalid price %q", ErrInvalidInput, i+1, sp.Name, sp.Price)
		}
		products = append(products, Product{
			Name:              sp.Name,
			Description:       sp.Description,
			Price:             price,
			Category:          sp.Category,
			Image:             sp.Image,
			InventoryQuantity: sp.InventoryQuantity,
		})
	}
	return products, nil
}

// Seed creates every product through the service and stops at the first
// failure. It returns how many products were created.
func Seed(ctx context.Context, svc Service, products []Product) (int, error) {
	for i := range products {
		if _, err := svc.CreateProduct(ctx, &products[i]); err != nil {
			return i, fmt.Errorf("failed to seed product %q: %w", products[i].Name, err)
		}
	}
	return len(products), nil
}
