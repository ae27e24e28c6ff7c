package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
)

func TestBasicStatsEmptyStore(t *testing.T) {
	f := newFixture(t)
	stats, err := f.agg.BasicStats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalListedProducts)
	assert.Zero(t, stats.TotalCompletedSales)
}

func TestBasicStatsPropagatesCountFailure(t *testing.T) {
	f := newFixture(t)
	f.product(t, "Listed", model.ProductListed)
	f.mem.SetFault(func(op string, _ []repository.Filter) error {
		if op == "count transactions" {
			return errors.New("connection refused")
		}
		return nil
	})

	stats, err := f.agg.BasicStats(context.Background())
	assert.Nil(t, stats)
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
}

func TestBasicStatsCountsListedOnly(t *testing.T) {
	f := newFixture(t)
	f.product(t, "Listed A", model.ProductListed)
	f.product(t, "Listed B", model.ProductListed)
	f.product(t, "Draft", model.ProductDraft)
	f.product(t, "Retired", model.ProductRetired)

	stats, err := f.agg.BasicStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalListedProducts)
}

func TestPublicProductFeedFiltersProductsAndListings(t *testing.T) {
	f := newFixture(t)
	listed := f.product(t, "Listed", model.ProductListed)
	draft := f.product(t, "Draft", model.ProductDraft)

	f.listing(t, listed.ID, "pinterest", model.ListingPublished, time.Time{})
	f.listing(t, listed.ID, "reddit", model.ListingFailed, time.Time{})
	f.listing(t, listed.ID, "youtube", model.ListingPending, time.Time{})
	f.listing(t, draft.ID, "pinterest", model.ListingPublished, time.Time{})

	feed, err := f.agg.PublicProductFeed(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, listed.ID, feed[0].ID)
	require.Len(t, feed[0].Listings, 1)
	assert.Equal(t, model.ListingPublished, feed[0].Listings[0].Status)
	assert.False(t, feed[0].ListingsUnavailable)
}

func TestPublicProductFeedDegradesOneProduct(t *testing.T) {
	f := newFixture(t)
	good := f.product(t, "Good", model.ProductListed)
	bad := f.product(t, "Bad", model.ProductListed)
	f.listing(t, good.ID, "pinterest", model.ListingPublished, time.Time{})
	f.listing(t, bad.ID, "pinterest", model.ListingPublished, time.Time{})

	f.mem.SetFault(func(op string, filters []repository.Filter) error {
		if op != "list listings" {
			return nil
		}
		for _, flt := range filters {
			if flt.Field == "product_id" && flt.Value == bad.ID {
				return errors.New("timeout")
			}
		}
		return nil
	})

	feed, err := f.agg.PublicProductFeed(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 2)

	byID := map[string]int{}
	for i, item := range feed {
		byID[item.ID] = i
	}
	assert.Len(t, feed[byID[good.ID]].Listings, 1)
	assert.Empty(t, feed[byID[bad.ID]].Listings)
	assert.NotNil(t, feed[byID[bad.ID]].Listings)
	assert.True(t, feed[byID[bad.ID]].ListingsUnavailable)
}

func TestPublicProductFeedFailsWhenProductsFail(t *testing.T) {
	f := newFixture(t)
	f.product(t, "Listed", model.ProductListed)
	f.mem.SetFault(func(op string, _ []repository.Filter) error {
		if op == "list products" {
			return errors.New("connection reset")
		}
		return nil
	})

	feed, err := f.agg.PublicProductFeed(context.Background())
	assert.Nil(t, feed)
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
}

func TestPublicProductFeedBoundedFanOut(t *testing.T) {
	f := newFixture(t)
	f.agg.FeedConcurrency = 2
	for i := 0; i < 7; i++ {
		p := f.product(t, "P", model.ProductListed)
		f.listing(t, p.ID, "reddit", model.ListingPublished, time.Time{})
	}

	feed, err := f.agg.PublicProductFeed(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 7)
	for _, item := range feed {
		assert.Len(t, item.Listings, 1)
	}
}

func TestDashboardSnapshot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	older := f.product(t, "Older", model.ProductListed)
	newer := f.product(t, "Newer", model.ProductDraft)

	f.listing(t, older.ID, "pinterest", model.ListingPublished, time.Time{})
	f.listing(t, older.ID, "reddit", model.ListingFailed, time.Time{})
	f.listing(t, newer.ID, "youtube", model.ListingPending, time.Time{})
	_, err := f.funnel.RecordLead(ctx, "demo", "call", "email")
	require.NoError(t, err)

	snap, err := f.agg.DashboardSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Products, 2)
	assert.Equal(t, 1, snap.OpportunityCount)
	assert.Equal(t, 3, snap.ListingCount)

	attached := map[string]int{}
	for _, p := range snap.Products {
		attached[p.ID] = len(p.Listings)
	}
	assert.Equal(t, 2, attached[older.ID])
	assert.Equal(t, 1, attached[newer.ID])
	assert.False(t, snap.Products[0].CreatedAt.Before(snap.Products[1].CreatedAt))
}

func TestDashboardSnapshotEmpty(t *testing.T) {
	f := newFixture(t)
	snap, err := f.agg.DashboardSnapshot(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, snap.Products)
	assert.Empty(t, snap.Products)
	assert.Zero(t, snap.ListingCount)
}

func TestDashboardSnapshotPropagatesFailure(t *testing.T) {
	f := newFixture(t)
	f.product(t, "Listed", model.ProductListed)
	f.mem.SetFault(func(op string, _ []repository.Filter) error {
		if op == "count leads" {
			return errors.New("broken pipe")
		}
		return nil
	})

	_, err := f.agg.DashboardSnapshot(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
}

func TestPostingActivityReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Course", model.ProductListed)
	base := time.Now().UTC().Add(-time.Hour)

	for i, amount := range []int64{10, 20, 30} {
		l := f.listing(t, p.ID, "pinterest", model.ListingPublished, base.Add(time.Duration(i)*time.Minute))
		_, err := f.listings.RecordSale(ctx, l.ID, decimal.NewFromInt(amount))
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		f.listing(t, p.ID, "reddit", model.ListingFailed, base.Add(time.Duration(10+i)*time.Minute))
	}

	report, err := f.agg.PostingActivityReport(ctx, 20)
	require.NoError(t, err)
	assert.Len(t, report.Platforms["pinterest"], 3)
	assert.Len(t, report.Platforms["reddit"], 2)
	assert.Equal(t, 5, report.Summary.TotalPosts)
	assert.Equal(t, 3, report.Summary.Published)
	assert.Equal(t, 2, report.Summary.Failed)
	assert.Zero(t, report.Summary.Pending)
	assert.EqualValues(t, 3, report.Summary.TotalSales)
	assert.True(t, report.Summary.TotalRevenue.Equal(decimal.NewFromInt(60)), report.Summary.TotalRevenue.String())
	assert.Equal(t, "Course", report.Platforms["pinterest"][0].ProductTitle)
}

func TestPostingActivityReportWindowAndBuckets(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Course", model.ProductListed)
	base := time.Now().UTC().Add(-time.Hour)

	f.listing(t, p.ID, "mastodon", model.ListingPending, base)
	f.listing(t, p.ID, "", model.ListingPending, base.Add(time.Minute))
	f.listing(t, p.ID, "YouTube", model.ListingPublished, base.Add(2*time.Minute))

	report, err := f.agg.PostingActivityReport(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Limit)
	assert.Equal(t, 2, report.Summary.TotalPosts)
	assert.Len(t, report.Platforms["youtube"], 1)
	assert.Len(t, report.Platforms["other"], 1)

	all, err := f.agg.PostingActivityReport(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 20, all.Limit)
	assert.Len(t, all.Platforms["other"], 2)
	assert.Equal(t, 2, all.Summary.Pending)

	capped, err := f.agg.PostingActivityReport(ctx, 10000)
	require.NoError(t, err)
	assert.Equal(t, 500, capped.Limit)
}

func TestPostingActivityReportEmpty(t *testing.T) {
	f := newFixture(t)
	report, err := f.agg.PostingActivityReport(context.Background(), 20)
	require.NoError(t, err)
	assert.Zero(t, report.Summary.TotalPosts)
	assert.True(t, report.Summary.TotalRevenue.IsZero())
	assert.Empty(t, report.Platforms)
}
