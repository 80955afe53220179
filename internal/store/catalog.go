package store

import (
	"fmt"
	"strings"
)

// Product is one catalog record. SKUs are unique case-insensitively;
// price is a non-negative amount in the shop currency. Products are
// never updated or deleted once inserted.
type Product struct {
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"`
}

// Catalog manages the full product list as one document.
type Catalog struct {
	doc  *DocumentFile
	path string
}

// NewCatalog returns a catalog store backed by the document at path.
func NewCatalog(doc *DocumentFile, path string) *Catalog {
	return &Catalog{doc: doc, path: path}
}

// Path returns the catalog document path.
func (c *Catalog) Path() string {
	return c.path
}

// List returns every product in document order. A never-written catalog
// is empty; corrupt bytes surface as a [*DecodeError], never as an empty
// list.
func (c *Catalog) List() ([]Product, error) {
	data, err := c.doc.ReadAll(c.path)
	if err != nil {
		return nil, err
	}

	return DecodeRecords[Product](c.path, data)
}

// FindBySKU returns the first product whose SKU matches sku
// case-insensitively, and whether one was found. Absence is not an
// error.
func (c *Catalog) FindBySKU(sku string) (Product, bool, error) {
	products, err := c.List()
	if err != nil {
		return Product{}, false, err
	}

	for _, p := range products {
		if strings.EqualFold(p.SKU, sku) {
			return p, true, nil
		}
	}

	return Product{}, false, nil
}

// Search returns products whose SKU or name contains term,
// case-insensitively. An empty term matches nothing.
func (c *Catalog) Search(term string) ([]Product, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return []Product{}, nil
	}

	products, err := c.List()
	if err != nil {
		return nil, err
	}

	matches := []Product{}

	for _, p := range products {
		if strings.Contains(strings.ToLower(p.SKU), term) ||
			strings.Contains(strings.ToLower(p.Name), term) {
			matches = append(matches, p)
		}
	}

	return matches, nil
}

// Insert validates p and appends it to the catalog. The SKU uniqueness
// check runs inside the same exclusive critical section as the rewrite,
// so two concurrent inserts of the same SKU cannot both pass the check;
// the loser gets [ErrSKUExists] and writes nothing.
func (c *Catalog) Insert(p Product) error {
	if err := ValidateProduct(p); err != nil {
		return err
	}

	return updateRecords(c.doc, c.path, func(products []Product) ([]Product, error) {
		for _, existing := range products {
			if strings.EqualFold(existing.SKU, p.SKU) {
				return nil, fmt.Errorf("%w: %q", ErrSKUExists, existing.SKU)
			}
		}

		return append(products, p), nil
	})
}

// ReplaceAll rewrites the whole catalog document with products.
func (c *Catalog) ReplaceAll(products []Product) error {
	data, err := EncodeRecords(products)
	if err != nil {
		return err
	}

	return c.doc.ReplaceAll(c.path, data)
}

// ValidateProduct checks required fields and numeric bounds. The store
// is the last line of defense before persistence, so it re-validates
// even though the request layer already has.
func ValidateProduct(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidProduct)
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}

	if p.Price < 0 {
		return fmt.Errorf("%w: price must be non-negative", ErrInvalidProduct)
	}

	return nil
}
