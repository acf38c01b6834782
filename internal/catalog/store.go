// internal/catalog/store.go

package catalog

import "context"

// Store is the storage collaborator of the reconciliation pipeline.
// Implementations must keep each UpdateProduct call an independent,
// single-row statement: a later product's failure never rolls back an
// earlier product's write.
type Store interface {
	// ProductsMissingPriceOrStock returns the rows whose price or stock
	// quantity is NULL or zero, in id order.
	ProductsMissingPriceOrStock(ctx context.Context) ([]TargetProduct, error)

	// UpdateProduct applies a partial update to one row.
	UpdateProduct(ctx context.Context, id int64, update ProductUpdate) error

	// Ping verifies the connection before a run starts.
	Ping(ctx context.Context) error

	Close() error
}
