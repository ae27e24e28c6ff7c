package service

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
)

const (
	DefaultFeedConcurrency = 8
	DefaultReportLimit     = 20
	MaxReportLimit         = 500
)

// ProductWithListings is a product with some of its listings attached.
// ListingsUnavailable marks a product whose listings could not be read.
type ProductWithListings struct {
	model.Product
	Listings            []*model.Listing `json:"listings"`
	ListingsUnavailable bool             `json:"listings_unavailable,omitempty"`
}

type DashboardSnapshot struct {
	Products         []ProductWithListings `json:"products"`
	OpportunityCount int                   `json:"opportunity_count"`
	ListingCount     int                   `json:"listing_count"`
}

type BasicStats struct {
	TotalListedProducts int `json:"total_listed_products"`
	TotalCompletedSales int `json:"total_completed_sales"`
}

type ReportSummary struct {
	TotalPosts   int             `json:"total_posts"`
	Published    int             `json:"published"`
	Failed       int             `json:"failed"`
	Pending      int             `json:"pending"`
	TotalSales   int64           `json:"total_sales"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
}

// PostingActivityReport covers only the fetched window of recent listings.
type PostingActivityReport struct {
	Limit     int                                   `json:"limit"`
	Platforms map[string][]model.ListingWithProduct `json:"platforms"`
	Summary   ReportSummary                         `json:"summary"`
}

// AggregationService computes read-side rollups on every call. Nothing is
// cached.
type AggregationService struct {
	Store              *repository.Store
	Logger             *zap.Logger
	FeedConcurrency    int
	DefaultReportLimit int
	MaxReportLimit     int
}

func NewAggregationService(store *repository.Store, logger *zap.Logger) *AggregationService {
	return &AggregationService{
		Store:              store,
		Logger:             orNop(logger),
		FeedConcurrency:    DefaultFeedConcurrency,
		DefaultReportLimit: DefaultReportLimit,
		MaxReportLimit:     MaxReportLimit,
	}
}

// DashboardSnapshot returns every product, newest first, with all of its
// listings regardless of status.
func (s *AggregationService) DashboardSnapshot(ctx context.Context) (*DashboardSnapshot, error) {
	products, err := s.Store.Products.List(ctx, repository.Recent(0))
	if err != nil {
		return nil, err
	}

	snap := &DashboardSnapshot{Products: make([]ProductWithListings, len(products))}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
		snap.Products[i] = ProductWithListings{Product: *p, Listings: []*model.Listing{}}
	}

	var listings []*model.Listing
	g, gctx := errgroup.WithContext(ctx)
	if len(ids) > 0 {
		g.Go(func() error {
			var err error
			listings, err = s.Store.Listings.List(gctx, repository.Recent(0, repository.In("product_id", ids)))
			return err
		})
	}
	g.Go(func() error {
		var err error
		snap.OpportunityCount, err = s.Store.Leads.Count(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		snap.ListingCount, err = s.Store.Listings.Count(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.Logger.Error("dashboard snapshot failed", zap.Error(err))
		return nil, err
	}

	index := make(map[string]int, len(products))
	for i, p := range products {
		index[p.ID] = i
	}
	for _, l := range listings {
		if i, ok := index[l.ProductID]; ok {
			snap.Products[i].Listings = append(snap.Products[i].Listings, l)
		}
	}
	return snap, nil
}

// PublicProductFeed returns listed products with only their published
// listings. Each product's listings are read independently; a failed read
// leaves that product with no listings instead of failing the feed.
func (s *AggregationService) PublicProductFeed(ctx context.Context) ([]ProductWithListings, error) {
	products, err := s.Store.Products.List(ctx, repository.Recent(0, repository.Eq("status", string(model.ProductListed))))
	if err != nil {
		return nil, err
	}

	feed := make([]ProductWithListings, len(products))
	limit := s.FeedConcurrency
	if limit <= 0 {
		limit = DefaultFeedConcurrency
	}

	var g errgroup.Group
	g.SetLimit(limit)
	for i, p := range products {
		i, p := i, p
		feed[i] =ProductWithListings{Product: *p, Listings: []*model.Listing{}}
		g.Go(func() error {
			listings, err := s.Store.Listings.List(ctx, repository.Recent(0,
				repository.Eq("product_id", p.ID),
				repository.Eq("status", string(model.ListingPublished)),
			))
			if err != nil {
				s.Logger.Warn("feed listings unavailable", zap.String("product_id", p.ID), zap.Error(err))
				feed[i].ListingsUnavailable = true
				return nil
			}
			feed[i].Listings = listings
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, appErrors.StorageUnavailable("public product feed", err)
	}
	return feed, nil
}

// BasicStats counts listed products and completed sales. Both counts must
// succeed; a failed count is never reported as zero.
func (s *AggregationService) BasicStats(ctx context.Context) (*BasicStats, error) {
	var stats BasicStats
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats.TotalListedProducts, err = s.Store.Products.Count(gctx, repository.Eq("status", string(model.ProductListed)))
		return err
	})
	g.Go(func() error {
		var err error
		stats.TotalCompletedSales, err = s.Store.Transactions.Count(gctx, repository.Eq("status", string(model.TransactionCompleted)))
		return err
	})
	if err := g.Wait(); err != nil {
		s.Logger.Error("basic stats failed", zap.Error(err))
		return nil, err
	}
	return &stats, nil
}

// PostingActivityReport groups the most recent listings by platform
// bucket and totals them.
func (s *AggregationService) PostingActivityReport(ctx context.Context, limit int) (*PostingActivityReport, error) {
	limit = s.reportLimit(limit)
	recent, err := s.Store.Listings.ListRecentWithProduct(ctx, limit)
	if err != nil {
		return nil, err
	}

	report := &PostingActivityReport{
		Limit:     limit,
		Platforms: map[string][]model.ListingWithProduct{},
		Summary:   ReportSummary{TotalRevenue: decimal.Zero},
	}
	for _, item := range recent {
		bucket := model.PlatformBucket(item.Platform)
		report.Platforms[bucket] = append(report.Platforms[bucket], item)

		sum := &report.Summary
		sum.TotalPosts++
		switch item.Status {
		case model.ListingPublished:
			sum.Published++
		case model.ListingFailed:
			sum.Failed++
		default:
			sum.Pending++
		}
		sum.TotalSales += item.Sales
		sum.TotalRevenue = sum.TotalRevenue.Add(item.Revenue)
	}
	return report, nil
}

func (s *AggregationService) reportLimit(limit int) int {
	def, ceiling := s.DefaultReportLimit, s.MaxReportLimit
	if def <= 0 {
		def = DefaultReportLimit
	}
	if ceiling <= 0 {
		ceiling = MaxReportLimit
	}
	if limit <= 0 {
		return def
	}
	if limit > ceiling {
		return ceiling
	}
	return limit
}
