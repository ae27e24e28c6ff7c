package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

const productSelect = `id, title, niche, suggested_price, status, created_at`

type ProductRepository struct {
	pgBase
}

func (r *ProductRepository) Create(ctx context.Context, p *model.Product) error {
	prepareProduct(p)
	if err := p.Validate(); err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
        INSERT INTO products (id, title, niche, suggested_price, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := r.DB.ExecContext(ctx, query, p.ID, p.Title, p.Niche, p.SuggestedPrice, p.Status, p.CreatedAt)
	return classify("insert product", err)
}

func (r *ProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + productSelect + ` FROM products WHERE id=$1`
	p, err := scanProduct(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("product", id)
		}
		return nil, classify("get product", err)
	}
	return p, nil
}

func (r *ProductRepository) List(ctx context.Context, q Query) ([]*model.Product, error) {
	if err := q.validate("products", productColumns); err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := applyQuery(psql.Select(productSelect).From("products"), q).ToSql()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindValidation, err, "build product query")
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list products", err)
	}
	defer rows.Close()

	products := []*model.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, classify("scan product", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list products", err)
	}
	return products, nil
}

func (r *ProductRepository) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("products", productColumns, filters); err != nil {
		return 0, err
	}
	return r.count(ctx, "count products", "products", filters)
}

func (r *ProductRepository) UpdateStatus(ctx context.Context, id string, from, to model.ProductStatus) (*model.Product, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `UPDATE products SET status=$1 WHERE id=$2 AND status=$3 RETURNING ` + productSelect
	p, err := scanProduct(r.DB.QueryRowContext(ctx, query, to, id, from))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("update product status", err)
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, appErrors.NewInvalidTransition("product", id, string(current.Status), string(to))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*model.Product, error) {
	var p model.Product
	if err := row.Scan(&p.ID, &p.Title, &p.Niche, &p.SuggestedPrice, &p.Status, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func prepareProduct(p *model.Product) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = model.ProductDraft
	}
}

var _ ProductRepositoryInterface = (*ProductRepository)(nil)
