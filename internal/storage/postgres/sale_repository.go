package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopifydevguy1-ops/pos-system/internal/domain"
)

const saleColumns = `
	id, sale_number, customer_id, cashier_id,
	subtotal_minor, discount_minor, tax_minor, total_minor,
	payment_method, cash_received_minor, change_minor, card_last4, transaction_id,
	status, refunded_minor, refunded_by, refund_reason, refunded_at,
	notes, version, created_at, updated_at`

type saleRepository struct {
	db *sql.DB
}

// NewSaleRepository создаёт PostgreSQL-реализацию SaleRepository.
func NewSaleRepository(store *Store) domain.SaleRepository {
	return &saleRepository{db: store.DB()}
}

func (r *saleRepository) Create(sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var refundedAt any
	if !sale.RefundedAt.IsZero() {
		refundedAt = sale.RefundedAt
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sales (
			id, sale_number, customer_id, cashier_id,
			subtotal_minor, discount_minor, tax_minor, total_minor,
			payment_method, cash_received_minor, change_minor, card_last4, transaction_id,
			status, refunded_minor, refunded_by, refund_reason, refunded_at,
			notes, version, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22)
	`,
		sale.ID, sale.SaleNumber, sale.CustomerID, sale.CashierID,
		sale.SubtotalMinor, sale.DiscountMinor, sale.TaxMinor, sale.TotalMinor,
		string(sale.PaymentMethod),
		sale.PaymentDetails.CashReceivedMinor, sale.PaymentDetails.ChangeMinor,
		sale.PaymentDetails.CardLast4, sale.PaymentDetails.TransactionID,
		string(sale.Status), sale.RefundedMinor, sale.RefundedBy, sale.RefundReason, refundedAt,
		sale.Notes, sale.Version, sale.CreatedAt, sale.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Единственный UNIQUE помимо PK — номер чека.
			return domain.ErrSaleNumberCollision
		}
		return fmt.Errorf("insert sale: %w", err)
	}

	for _, item := range sale.Items {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO sale_items (
				id, sale_id, product_id, sku, qty,
				unit_price_minor, discount_minor, tax_minor, line_total_minor, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`,
			item.ID, sale.ID, item.ProductID, item.SKU, item.Qty,
			item.UnitPriceMinor, item.DiscountMinor, item.TaxMinor, item.LineTotalMinor, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert sale item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create sale: %w", err)
	}

	return nil
}

func (r *saleRepository) Get(id string) (domain.Sale, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getOne(ctx, `SELECT`+saleColumns+` FROM sales WHERE id = $1`, id)
}

func (r *saleRepository) GetByNumber(saleNumber string) (domain.Sale, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.getOne(ctx, `SELECT`+saleColumns+` FROM sales WHERE sale_number = $1`, saleNumber)
}

// Save применяет только мутабельные поля чека: статус и refund-атрибуты.
// Позиции после проведения неизменны и не перезаписываются.
func (r *saleRepository) Save(sale domain.Sale) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var refundedAt any
	if !sale.RefundedAt.IsZero() {
		refundedAt = sale.RefundedAt
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE sales
		SET status = $1,
		    refunded_minor = $2,
		    refunded_by = $3,
		    refund_reason = $4,
		    refunded_at = $5,
		    notes = $6,
		    version = version + 1,
		    updated_at = $7
		WHERE id = $8
		  AND version = $9
	`,
		string(sale.Status), sale.RefundedMinor, sale.RefundedBy, sale.RefundReason, refundedAt,
		sale.Notes, sale.UpdatedAt, sale.ID, sale.Version,
	)
	if err != nil {
		return fmt.Errorf("update sale: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		exists, err := r.saleExists(ctx, sale.ID)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrSaleNotFound
		}
		return domain.ErrSaleVersionConflict
	}

	return nil
}

func (r *saleRepository) getOne(ctx context.Context, query, arg string) (domain.Sale, error) {
	var (
		sale       domain.Sale
		method     string
		status     string
		refundedAt sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&sale.ID, &sale.SaleNumber, &sale.CustomerID, &sale.CashierID,
		&sale.SubtotalMinor, &sale.DiscountMinor, &sale.TaxMinor, &sale.TotalMinor,
		&method,
		&sale.PaymentDetails.CashReceivedMinor, &sale.PaymentDetails.ChangeMinor,
		&sale.PaymentDetails.CardLast4, &sale.PaymentDetails.TransactionID,
		&status, &sale.RefundedMinor, &sale.RefundedBy, &sale.RefundReason, &refundedAt,
		&sale.Notes, &sale.Version, &sale.CreatedAt, &sale.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Sale{}, domain.ErrSaleNotFound
		}
		return domain.Sale{}, fmt.Errorf("select sale: %w", err)
	}

	sale.PaymentMethod = domain.PaymentMethod(method)
	sale.Status = domain.SaleStatus(status)
	if refundedAt.Valid {
		sale.RefundedAt = refundedAt.Time.UTC()
	}

	items, err := r.loadItems(ctx, sale.ID)
	if err != nil {
		return domain.Sale{}, err
	}
	sale.Items = items

	return sale, nil
}

func (r *saleRepository) loadItems(ctx context.Context, saleID string) ([]domain.SaleItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, product_id, sku, qty,
		       unit_price_minor, discount_minor, tax_minor, line_total_minor, created_at
		FROM sale_items
		WHERE sale_id = $1
		ORDER BY created_at ASC, id ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.SaleItem, 0)
	for rows.Next() {
		var item domain.SaleItem
		if err := rows.Scan(
			&item.ID, &item.ProductID, &item.SKU, &item.Qty,
			&item.UnitPriceMinor, &item.DiscountMinor, &item.TaxMinor, &item.LineTotalMinor, &item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sale items: %w", err)
	}

	return items, nil
}

func (r *saleRepository) saleExists(ctx context.Context, saleID string) (bool, error) {
	var id string
	err := r.db.QueryRowContext(ctx, `SELECT id FROM sales WHERE id = $1`, saleID).Scan(&id)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return false, fmt.Errorf("check sale exists: %w", err)
}

var _ domain.SaleRepository = (*saleRepository)(nil)
