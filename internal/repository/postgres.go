package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// pgBase is shared by the Postgres repositories: one connection handle
// and the per-query deadline.
type pgBase struct {
	DB      *sql.DB
	Timeout time.Duration
}

func (b pgBase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, b.Timeout)
}

// NewPostgresStore wires every repository to the same connection handle.
func NewPostgresStore(db *sql.DB, queryTimeout time.Duration) *Store {
	base := pgBase{DB: db, Timeout: queryTimeout}
	return &Store{
		Products:     &ProductRepository{pgBase: base},
		Listings:     &ListingRepository{pgBase: base},
		Leads:        &LeadRepository{pgBase: base},
		Campaigns:    &CampaignRepository{pgBase: base},
		Transactions: &TransactionRepository{pgBase: base},
	}
}

// classify maps driver errors onto the error taxonomy. Missing tables and
// integrity violations are schema rejections; everything else that is not
// already categorised is a transport failure.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *appErrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case pqErr.Code == "42P01" || pqErr.Code == "42703":
			return appErrors.Wrap(appErrors.KindConstraintViolation, err, "schema rejected %s", op)
		case pqErr.Code.Class() == "23":
			return appErrors.Wrap(appErrors.KindConstraintViolation, err, "constraint rejected %s", op)
		case pqErr.Code.Class() == "22":
			return appErrors.Wrap(appErrors.KindValidation, err, "invalid data in %s", op)
		}
	}
	return appErrors.StorageUnavailable(op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// applyQuery adds filters, ordering and limit to a select.
func applyQuery(b sq.SelectBuilder, q Query) sq.SelectBuilder {
	b = b.Where(whereFilters(q.Filters))
	field, desc := q.orderBy()
	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	b = b.OrderBy(field+dir, "id"+dir)
	if q.Limit > 0 {
		b = b.Limit(uint64(q.Limit))
	}
	return b
}

func whereFilters(filters []Filter) sq.And {
	and := sq.And{}
	for _, f := range filters {
		switch f.Op {
		case OpEq, OpIn:
			and = append(and, sq.Eq{f.Field: f.Value})
		case OpGte:
			and = append(and, sq.GtOrEq{f.Field: f.Value})
		case OpLte:
			and = append(and, sq.LtOrEq{f.Field: f.Value})
		}
	}
	return and
}

func (b pgBase) count(ctx context.Context, op, table string, filters []Filter) (int, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	query, args, err := psql.Select("COUNT(*)").From(table).Where(whereFilters(filters)).ToSql()
	if err != nil {
		return 0, appErrors.Wrap(appErrors.KindValidation, err, "build %s", op)
	}
	var n int
	if err := b.DB.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(op, err)
	}
	return n, nil
}
