package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

const leadSelect = `id, type, detail, source, amount, description, created_at`

type LeadRepository struct {
	pgBase
}

func (r *LeadRepository) Create(ctx context.Context, l *model.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := l.Validate(); err != nil {
		return err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var amount decimal.NullDecimal
	if l.Amount != nil {
		amount = decimal.NullDecimal{Decimal: *l.Amount, Valid: true}
	}
	var description sql.NullString
	if l.Description != nil {
		description = sql.NullString{String: *l.Description, Valid: true}
	}

	query := `
        INSERT INTO leads (id, type, detail, source, amount, description, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := r.DB.ExecContext(ctx, query, l.ID, l.Type, l.Detail, l.Source, amount, description, l.CreatedAt)
	return classify("insert lead", err)
}

func (r *LeadRepository) List(ctx context.Context, q Query) ([]*model.Lead, error) {
	if err := q.validate("leads", leadColumns); err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := applyQuery(psql.Select(leadSelect).From("leads"), q).ToSql()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindValidation, err, "build lead query")
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list leads", err)
	}
	defer rows.Close()

	leads := []*model.Lead{}
	for rows.Next() {
		var (
			l           model.Lead
			amount      decimal.NullDecimal
			description sql.NullString
		)
		if err := rows.Scan(&l.ID, &l.Type, &l.Detail, &l.Source, &amount, &description, &l.CreatedAt); err != nil {
			return nil, classify("scan lead", err)
		}
		if amount.Valid {
			a := amount.Decimal
			l.Amount = &a
		}
		if description.Valid {
			d := description.String
			l.Description = &d
		}
		leads = append(leads, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list leads", err)
	}
	return leads, nil
}

func (r *LeadRepository) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("leads", leadColumns, filters); err != nil {
		return 0, err
	}
	return r.count(ctx, "count leads", "leads", filters)
}

// CountByTypeBetween counts leads per type created in [since, until].
func (r *LeadRepository) CountByTypeBetween(ctx context.Context, since, until time.Time) (map[model.LeadType]int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.DB.QueryContext(ctx, countByTypeBetweenSQL, since, until)
	if err != nil {
		return nil, classify("count leads by type", err)
	}
	defer rows.Close()

	counts := map[model.LeadType]int{}
	for rows.Next() {
		var (
			t model.LeadType
			n int
		)
		if err := rows.Scan(&t, &n); err != nil {
			return nil, classify("scan lead count", err)
		}
		counts[t] = n
	}
	if err := rows.Err(); err != nil {
		return nil, classify("count leads by type", err)
	}
	return counts, nil
}

const countByTypeBetweenSQL = `SELECT type, COUNT(*) FROM leads WHERE created_at >= $1 AND created_at <= $2 GROUP BY type`

var _ LeadRepositoryInterface = (*LeadRepository)(nil)
