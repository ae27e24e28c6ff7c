package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

const listingSelect = `id, product_id, platform, status, url, failure_reason, sales, revenue, created_at, updated_at`

const (
	transitionListingSQL = `UPDATE listings SET status=$1, url=$2, failure_reason=$3, updated_at=$4 WHERE id=$5 AND status=$6 RETURNING ` + listingSelect
	recordSaleSQL        = `UPDATE listings SET sales = sales + 1, revenue = revenue + $1, updated_at=$2 WHERE id=$3 AND status='published' RETURNING ` + listingSelect
	insertTransactionSQL = `INSERT INTO transactions (id, listing_id, product_id, amount, status, event_key, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	recentWithProductSQL = `
        SELECT l.id, l.product_id, l.platform, l.status, l.url, l.failure_reason, l.sales, l.revenue::text, l.created_at, l.updated_at,
               p.title, p.niche, p.suggested_price::text
        FROM listings l
        LEFT JOIN products p ON p.id = l.product_id
        ORDER BY l.created_at DESC, l.id DESC
        LIMIT $1
    `
)

type ListingRepository struct {
	pgBase
}

func (r *ListingRepository) Create(ctx context.Context, l *model.Listing) error {
	prepareListing(l)
	if err := l.Validate(); err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
        INSERT INTO listings (id, product_id, platform, status, url, failure_reason, sales, revenue, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := r.DB.ExecContext(ctx, query,
		l.ID, l.ProductID, l.Platform, l.Status, l.URL, l.FailureReason, l.Sales, l.Revenue, l.CreatedAt)
	return classify("insert listing", err)
}

func (r *ListingRepository) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + listingSelect + ` FROM listings WHERE id=$1`
	l, err := scanListing(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("listing", id)
		}
		return nil, classify("get listing", err)
	}
	return l, nil
}

func (r *ListingRepository) List(ctx context.Context, q Query) ([]*model.Listing, error) {
	if err := q.validate("listings", listingColumns); err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := applyQuery(psql.Select(listingSelect).From("listings"), q).ToSql()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindValidation, err, "build listing query")
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list listings", err)
	}
	defer rows.Close()

	listings := []*model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, classify("scan listing", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list listings", err)
	}
	return listings, nil
}

func (r *ListingRepository) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("listings", listingColumns, filters); err != nil {
		return 0, err
	}
	return r.count(ctx, "count listings", "listings", filters)
}

func (r *ListingRepository) Transition(ctx context.Context, id string, from model.ListingStatus, t model.ListingTransition) (*model.Listing, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	l, err := scanListing(r.DB.QueryRowContext(ctx, transitionListingSQL,
		t.To, t.URL, t.FailureReason, time.Now().UTC(), id, from))
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, classify("transition listing", err)
	}
	return nil, r.explainMiss(ctx, id, string(t.To))
}

func (r *ListingRepository) RecordSale(ctx context.Context, id string, amount decimal.Decimal) (*model.Listing, error) {
	return r.RecordSaleOnce(ctx, id, amount, "")
}

// RecordSaleOnce relies on the unique event_key: a replayed key fails the
// transaction insert, which rolls back the increment as well.
func (r *ListingRepository) RecordSaleOnce(ctx context.Context, id string, amount decimal.Decimal, key string) (*model.Listing, error) {
	if amount.IsNegative() {
		return nil, appErrors.New(appErrors.KindInvalidAmount, "sale amount %s must not be negative", amount)
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin sale", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	l, err := scanListing(tx.QueryRowContext(ctx, recordSaleSQL, amount, now, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			tx.Rollback()
			return nil, r.explainMiss(ctx, id, "sale")
		}
		return nil, classify("record sale", err)
	}

	eventKey := sql.NullString{String: key, Valid: key != ""}
	_, err = tx.ExecContext(ctx, insertTransactionSQL,
		uuid.NewString(), l.ID, l.ProductID, amount, model.TransactionCompleted, eventKey, now)
	if err != nil {
		if key != "" && isUniqueViolation(err) {
			tx.Rollback()
			return r.GetByID(ctx, id)
		}
		return nil, classify("insert transaction", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, classify("commit sale", err)
	}
	return l, nil
}

// explainMiss tells NotFound apart from a status mismatch after a
// conditional update touched no rows.
func (r *ListingRepository) explainMiss(ctx context.Context, id, to string) error {
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return appErrors.NewInvalidTransition("listing", id, string(current.Status), to)
}

func (r *ListingRepository) ListRecentWithProduct(ctx context.Context, limit int) ([]model.ListingWithProduct, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.DB.QueryContext(ctx, recentWithProductSQL, limit)
	if err != nil {
		return nil, classify("list recent listings", err)
	}
	defer rows.Close()

	out := []model.ListingWithProduct{}
	for rows.Next() {
		var (
			item                         model.ListingWithProduct
			revenue, title, niche, price sql.NullString
		)
		err := rows.Scan(
			&item.ID, &item.ProductID, &item.Platform, &item.Status, &item.URL, &item.FailureReason,
			&item.Sales, &revenue, &item.CreatedAt, &item.UpdatedAt,
			&title, &niche, &price,
		)
		if err != nil {
			return nil, classify("scan recent listing", err)
		}
		item.Revenue = model.ParseMoney(revenue.String)
		item.ProductTitle = title.String
		item.ProductNiche = niche.String
		item.SuggestedPrice = model.ParseMoney(price.String)
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list recent listings", err)
	}
	return out, nil
}

func scanListing(row rowScanner) (*model.Listing, error) {
	var l model.Listing
	err := row.Scan(&l.ID, &l.ProductID, &l.Platform, &l.Status, &l.URL, &l.FailureReason,
		&l.Sales, &l.Revenue, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func prepareListing(l *model.Listing) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if l.Status == "" {
		l.Status = model.ListingPending
	}
	l.Platform = model.NormalizePlatform(l.Platform)
}

var _ ListingRepositoryInterface = (*ListingRepository)(nil)
