// internal/catalog/sqlstore.go

package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"github.com/shopspring/decimal"

	"github.com/valpere/CatalogSync/internal/utils"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite3"
)

const defaultProductTable = "products"

// SQLStore implements Store on top of database/sql. The same implementation
// serves PostgreSQL, MySQL and SQLite; only the driver name and placeholder
// format differ.
type SQLStore struct {
	db     *sql.DB
	sb     sq.StatementBuilderType
	table  string
	logger utils.Logger
}

var _ Store = (*SQLStore)(nil)

// OpenSQLStore opens a connection for the given driver and verifies it.
func OpenSQLStore(driver, dsn, table string) (*SQLStore, error) {
	switch driver {
	case DriverPostgres, DriverMySQL, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}
	if dsn == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	if table == "" {
		table = defaultProductTable
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", driver, err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewSQLStore(db, driver, table), nil
}

// NewSQLStore wraps an existing database handle.
func NewSQLStore(db *sql.DB, driver, table string) *SQLStore {
	builder := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	if driver == DriverPostgres {
		builder = builder.PlaceholderFormat(sq.Dollar)
	}
	if table == "" {
		table = defaultProductTable
	}

	return &SQLStore{
		db:     db,
		sb:     builder,
		table:  table,
		logger: utils.NewComponentLogger("catalog"),
	}
}

// ProductsMissingPriceOrStock selects the rows the pipeline needs to verify.
// The filter shape (NULL or zero on either column) is part of the contract
// with the rest of the back office and must not be narrowed.
func (s *SQLStore) ProductsMissingPriceOrStock(ctx context.Context) ([]TargetProduct, error) {
	query := s.sb.
		Select("id", "sku", "name", "slug", "price", "stock_quantity").
		From(s.table).
		Where(sq.Or{
			sq.Eq{"price": nil},
			sq.Eq{"price": 0},
			sq.Eq{"stock_quantity": nil},
			sq.Eq{"stock_quantity": 0},
		}).
		OrderBy("id")

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query products missing price or stock: %w", err)
	}
	defer rows.Close()

	var products []TargetProduct
	for rows.Next() {
		var (
			p     TargetProduct
			sku   sql.NullString
			name  sql.NullString
			slug  sql.NullString
			price sql.NullString
			stock sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &sku, &name, &slug, &price, &stock); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		p.SKU = sku.String
		p.Name = name.String
		p.Slug = slug.String
		if price.Valid && price.String != "" {
			d, err := decimal.NewFromString(price.String)
			if err != nil {
				s.logger.Warnf("product %d has unparseable price %q, treating as unknown", p.ID, price.String)
			} else {
				p.Price = d
			}
		}
		if stock.Valid {
			qty := int(stock.Int64)
			p.StockQuantity = &qty
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// UpdateProduct writes a partial update as a single statement. Empty updates
// are a no-op rather than an error so callers can pass diffs straight through.
func (s *SQLStore) UpdateProduct(ctx context.Context, id int64, update ProductUpdate) error {
	if update.IsEmpty() {
		return nil
	}

	query := s.sb.Update(s.table)
	if update.Price != nil {
		query = query.Set("price", update.Price.String())
	}
	if update.StockQuantity != nil {
		query = query.Set("stock_quantity", *update.StockQuantity)
	}
	query = query.Where(sq.Eq{"id": id})

	result, err := query.RunWith(s.db).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update product %d: %w", id, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update product %d: no matching row", id)
	}

	return nil
}

// Ping verifies connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
