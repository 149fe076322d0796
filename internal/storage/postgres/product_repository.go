package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

const (
	opTimeout = 5 * time.Second
)

const productColumns = `
	id, sku, name, price_minor, cost_minor,
	stock_current, stock_minimum, stock_maximum,
	active, created_at, updated_at`

type productRepository struct {
	db *sql.DB
}

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(product domain.Product) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, price_minor, cost_minor,
			stock_current, stock_minimum, stock_maximum,
			active, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
		product.ID, product.SKU, product.Name, product.PriceMinor, product.CostMinor,
		product.Stock.Current, product.Stock.Minimum, product.Stock.Maximum,
		product.Active, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrProductAlreadyExists
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

func (r *productRepository) Get(id string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getOne(ctx, `SELECT`+productColumns+` FROM products WHERE id = $1`, id)
}

func (r *productRepository) GetBySKU(sku string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getOne(ctx, `SELECT`+productColumns+` FROM products WHERE sku = $1`, sku)
}

// DecrementStockGuarded списывает остаток одним условным UPDATE: проверка
// достаточности и само списание неразделимы, гонка двух чекаутов невозможна.
func (r *productRepository) DecrementStockGuarded(id string, qty int32) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	product, err := r.scanRow(r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock_current = stock_current - $2,
		    updated_at = NOW()
		WHERE id = $1
		  AND stock_current >= $2
		RETURNING`+productColumns+`
	`, id, qty))
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, fmt.Errorf("decrement stock: %w", err)
	}

	// UPDATE не затронул строку: либо товара нет, либо остатка не хватило.
	current, getErr := r.Get(id)
	if getErr != nil {
		return domain.Product{}, getErr
	}

	return domain.Product{}, &domain.InsufficientStockError{
		SKU:       current.SKU,
		Requested: qty,
		Available: current.Stock.Current,
	}
}

func (r *productRepository) AddStock(id string, qty int32) (domain.Product, error) {
	return r.adjust(id, `
		UPDATE products
		SET stock_current = stock_current + $2,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING`+productColumns, qty)
}

func (r *productRepository) SubtractStockClamped(id string, qty int32) (domain.Product, error) {
	return r.adjust(id, `
		UPDATE products
		SET stock_current = GREATEST(stock_current - $2, 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING`+productColumns, qty)
}

func (r *productRepository) SetStock(id string, qty int32) (domain.Product, error) {
	return r.adjust(id, `
		UPDATE products
		SET stock_current = GREATEST($2, 0),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING`+productColumns, qty)
}

func (r *productRepository) adjust(id, query string, qty int32) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	product, err := r.scanRow(r.db.QueryRowContext(ctx, query, id, qty))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("adjust stock: %w", err)
	}

	return product, nil
}

func (r *productRepository) getOne(ctx context.Context, query, arg string) (domain.Product, error) {
	product, err := r.scanRow(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}

	return product, nil
}

func (r *productRepository) scanRow(row *sql.Row) (domain.Product, error) {
	var product domain.Product
	err := row.Scan(
		&product.ID, &product.SKU, &product.Name, &product.PriceMinor, &product.CostMinor,
		&product.Stock.Current, &product.Stock.Minimum, &product.Stock.Maximum,
		&product.Active, &product.CreatedAt, &product.UpdatedAt,
	)
	if err != nil {
		return domain.Product{}, err
	}

	return product, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

var _ domain.ProductRepository = (*productRepository)(nil)
