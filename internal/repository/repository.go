package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

type Op string

const (
	OpEq  Op = "eq"
	OpGte Op = "gte"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

// Filter is a single equality/range predicate on a column.
type Filter struct {
	Field string
	Op    Op
	Value any
}

func Eq(field string, v any) Filter      { return Filter{Field: field, Op: OpEq, Value: v} }
func Gte(field string, v any) Filter     { return Filter{Field: field, Op: OpGte, Value: v} }
func Lte(field string, v any) Filter     { return Filter{Field: field, Op: OpLte, Value: v} }
func In(field string, v []string) Filter { return Filter{Field: field, Op: OpIn, Value: v} }
func Since(t time.Time) Filter           { return Gte("created_at", t) }
func Recent(limit int, f ...Filter) Query {
	return Query{Filters: f, OrderBy: "created_at", Desc: true, Limit: limit}
}

// Query lists records. Zero Limit means no limit; empty OrderBy means
// created_at descending.
type Query struct {
	Filters []Filter
	OrderBy string
	Desc    bool
	Limit   int
}

func (q Query) orderBy() (string, bool) {
	if q.OrderBy == "" {
		return "created_at", true
	}
	return q.OrderBy, q.Desc
}

// validate rejects unknown columns and operators before any store access.
func (q Query) validate(entity string, columns map[string]bool) error {
	if err := validateFilters(entity, columns, q.Filters); err != nil {
		return err
	}
	if field, _ := q.orderBy(); !columns[field] {
		return appErrors.New(appErrors.KindValidation, "cannot order %s by %q", entity, field)
	}
	if q.Limit < 0 {
		return appErrors.New(appErrors.KindValidation, "limit must not be negative")
	}
	return nil
}

func validateFilters(entity string, columns map[string]bool, filters []Filter) error {
	for _, f := range filters {
		if !columns[f.Field] {
			return appErrors.New(appErrors.KindValidation, "cannot filter %s by %q", entity, f.Field)
		}
		switch f.Op {
		case OpEq, OpGte, OpLte:
		case OpIn:
			if _, ok := f.Value.([]string); !ok {
				return appErrors.New(appErrors.KindValidation, "%s filter on %q needs a string list", f.Op, f.Field)
			}
		default:
			return appErrors.New(appErrors.KindValidation, "unknown filter operator %q", f.Op)
		}
	}
	return nil
}

var (
	productColumns     = columnSet("id", "title", "niche", "suggested_price", "status", "created_at")
	listingColumns     = columnSet("id", "product_id", "platform", "status", "url", "sales", "revenue", "created_at", "updated_at")
	leadColumns        = columnSet("id", "type", "source", "created_at")
	campaignColumns    = columnSet("id", "product_id", "created_at")
	transactionColumns = columnSet("id", "listing_id", "product_id", "status", "event_key", "created_at")
)

func columnSet(cols ...string) map[string]bool {
	m := make(map[string]bool, len(cols))
	for _, c := range cols {
		m[c] = true
	}
	return m
}

type ProductRepositoryInterface interface {
	Create(ctx context.Context, p *model.Product) error
	GetByID(ctx context.Context, id string) (*model.Product, error)
	List(ctx context.Context, q Query) ([]*model.Product, error)
	Count(ctx context.Context, filters ...Filter) (int, error)
	// UpdateStatus moves a product from one status to another; it fails
	// with InvalidTransition when the stored status is not from.
	UpdateStatus(ctx context.Context, id string, from, to model.ProductStatus) (*model.Product, error)
}

type ListingRepositoryInterface interface {
	Create(ctx context.Context, l *model.Listing) error
	GetByID(ctx context.Context, id string) (*model.Listing, error)
	List(ctx context.Context, q Query) ([]*model.Listing, error)
	Count(ctx context.Context, filters ...Filter) (int, error)
	// Transition applies t only while the listing is still in from. The
	// record is left untouched otherwise.
	Transition(ctx context.Context, id string, from model.ListingStatus, t model.ListingTransition) (*model.Listing, error)
	// RecordSale atomically adds one sale and amount to a published
	// listing and writes the completed transaction.
	RecordSale(ctx context.Context, id string, amount decimal.Decimal) (*model.Listing, error)
	// RecordSaleOnce is RecordSale keyed by the producer's event id. A key
	// that was already applied leaves the listing untouched and returns it.
	RecordSaleOnce(ctx context.Context, id string, amount decimal.Decimal, key string) (*model.Listing, error)
	ListRecentWithProduct(ctx context.Context, limit int) ([]model.ListingWithProduct, error)
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, l *model.Lead) error
	List(ctx context.Context, q Query) ([]*model.Lead, error)
	Count(ctx context.Context, filters ...Filter) (int, error)
	CountByTypeBetween(ctx context.Context, since, until time.Time) (map[model.LeadType]int, error)
}

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, q Query) ([]*model.Campaign, error)
}

type TransactionRepositoryInterface interface {
	Count(ctx context.Context, filters ...Filter) (int, error)
}

// Store bundles the repositories of one backing store.
type Store struct {
	Products     ProductRepositoryInterface
	Listings     ListingRepositoryInterface
	Leads        LeadRepositoryInterface
	Campaigns    CampaignRepositoryInterface
	Transactions TransactionRepositoryInterface
}
