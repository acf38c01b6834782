// internal/catalog/product.go

// Package catalog defines the database's view of the product catalog and
// the storage interface the reconciliation pipeline consumes.
package catalog

import (
	"github.com/shopspring/decimal"
)

// TargetProduct is a catalog row selected for verification because its
// price or stock quantity is missing. Instances are read once per run and
// never mutated in memory; corrections flow back through Store.UpdateProduct.
type TargetProduct struct {
	ID            int64
	SKU           string
	Name          string
	Slug          string
	Price         decimal.Decimal
	StockQuantity *int
}

// PriceKnown reports whether the stored price carries a real value.
// A zero price is the storage sentinel for "unknown".
func (p TargetProduct) PriceKnown() bool {
	return p.Price.IsPositive()
}

// StockKnown reports whether the stored stock quantity carries a real value.
func (p TargetProduct) StockKnown() bool {
	return p.StockQuantity != nil && *p.StockQuantity != 0
}

// Stock returns the stored stock quantity, treating nil as zero.
func (p TargetProduct) Stock() int {
	if p.StockQuantity == nil {
		return 0
	}
	return *p.StockQuantity
}

// ProductUpdate describes a partial correction for a single catalog row.
// Nil fields are left untouched by the storage layer.
type ProductUpdate struct {
	Price         *decimal.Decimal
	StockQuantity *int
}

// IsEmpty reports whether the update would change nothing.
func (u ProductUpdate) IsEmpty() bool {
	return u.Price == nil && u.StockQuantity == nil
}
