package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
)

func seedProduct(t *testing.T, store *repository.Store, title string, status model.ProductStatus) *model.Product {
	t.Helper()
	p := &model.Product{Title: title, Niche: "ai", SuggestedPrice: decimal.NewFromInt(29), Status: status}
	require.NoError(t, store.Products.Create(context.Background(), p))
	return p
}

func TestMemoryCreateAssignsIdentity(t *testing.T) {
	store := repository.NewMemoryStore().Store()
	p := seedProduct(t, store, "Prompt Pack", "")

	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, model.ProductDraft, p.Status)

	got, err := store.Products.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Prompt Pack", got.Title)
}

func TestMemoryCreateRejectsMissingFields(t *testing.T) {
	store := repository.NewMemoryStore().Store()

	err := store.Products.Create(context.Background(), &model.Product{})
	assert.ErrorIs(t, err, appErrors.ErrConstraintViolation)

	err = store.Listings.Create(context.Background(), &model.Listing{ProductID: "missing", Platform: "reddit"})
	assert.ErrorIs(t, err, appErrors.ErrConstraintViolation)
}

func TestMemoryGetMissing(t *testing.T) {
	store := repository.NewMemoryStore().Store()
	_, err := store.Listings.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMemoryListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore().Store()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, status := range []model.ProductStatus{model.ProductListed, model.ProductDraft, model.ProductListed} {
		p := &model.Product{Title: "p", Status: status, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, store.Products.Create(ctx, p))
	}

	listed, err := store.Products.List(ctx, repository.Recent(0, repository.Eq("status", "listed")))
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.True(t, listed[0].CreatedAt.After(listed[1].CreatedAt))

	since, err := store.Products.Count(ctx, repository.Since(base.Add(time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, 2, since)

	limited, err := store.Products.List(ctx, repository.Recent(1))
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestMemoryListRejectsUnknownField(t *testing.T) {
	store := repository.NewMemoryStore().Store()
	_, err := store.Listings.List(context.Background(), repository.Recent(5, repository.Eq("colour", "red")))
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestMemoryTransitionOnlyFromExpectedStatus(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore().Store()
	p := seedProduct(t, store, "Course", model.ProductListed)
	l := &model.Listing{ProductID: p.ID, Platform: "Pinterest"}
	require.NoError(t, store.Listings.Create(ctx, l))
	assert.Equal(t, "pinterest", l.Platform)

	published, err := store.Listings.Transition(ctx, l.ID, model.ListingPending,
		model.ListingTransition{To: model.ListingPublished, URL: "https://pin.it/x"})
	require.NoError(t, err)
	assert.Equal(t, model.ListingPublished, published.Status)
	assert.NotNil(t, published.UpdatedAt)

	_, err = store.Listings.Transition(ctx, l.ID, model.ListingPending,
		model.ListingTransition{To: model.ListingFailed, FailureReason: "late"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	got, err := store.Listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ListingPublished, got.Status)
	assert.Empty(t, got.FailureReason)
}

func TestMemoryConcurrentSalesDoNotLoseUpdates(t *testing.T) {
	ctx := context.Background()
	mem := repository.NewMemoryStore()
	store := mem.Store()
	p := seedProduct(t, store, "Template", model.ProductListed)
	l := &model.Listing{ProductID: p.ID, Platform: "reddit", Status: model.ListingPublished}
	require.NoError(t, store.Listings.Create(ctx, l))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Listings.RecordSale(ctx, l.ID, decimal.NewFromInt(5))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 10, got.Sales)
	assert.True(t, got.Revenue.Equal(decimal.NewFromInt(50)), got.Revenue.String())

	completed, err := store.Transactions.Count(ctx, repository.Eq("status", "completed"))
	require.NoError(t, err)
	assert.Equal(t, 10, completed)
}

func TestMemoryRecordSaleRequiresPublished(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore().Store()
	p := seedProduct(t, store, "Template", model.ProductListed)
	l := &model.Listing{ProductID: p.ID, Platform: "reddit"}
	require.NoError(t, store.Listings.Create(ctx, l))

	_, err := store.Listings.RecordSale(ctx, l.ID, decimal.NewFromInt(5))
	assert.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	_, err = store.Listings.RecordSale(ctx, "missing", decimal.NewFromInt(5))
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestMemoryRecordSaleRejectsNegativeAmount(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore().Store()
	p := seedProduct(t, store, "Template", model.ProductListed)
	l := &model.Listing{ProductID: p.ID, Platform: "reddit", Status: model.ListingPublished}
	require.NoError(t, store.Listings.Create(ctx, l))

	_, err := store.Listings.RecordSale(ctx, l.ID, decimal.NewFromInt(-5))
	assert.ErrorIs(t, err, appErrors.ErrInvalidAmount)

	got, err := store.Listings.GetByID(ctx, l.ID)
	require.NoError(t, err)
	assert.Zero(t, got.Sales)
	assert.True(t, got.Revenue.IsZero())

	n, err := store.Transactions.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryRecentWithProduct(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore().Store()
	p := seedProduct(t, store, "Ebook", model.ProductListed)
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		l := &model.Listing{ProductID: p.ID, Platform: "youtube", CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.Listings.Create(ctx, l))
	}

	recent, err := store.Listings.ListRecentWithProduct(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "Ebook", recent[0].ProductTitle)
	assert.True(t, recent[0].CreatedAt.After(recent[1].CreatedAt))
	assert.True(t, recent[0].SuggestedPrice.Equal(decimal.NewFromInt(29)))
}

func TestMemoryCountByTypeBetween(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore().Store()
	now := time.Now().UTC()
	amount := decimal.NewFromInt(10)

	leads := []*model.Lead{
		{Type: model.LeadDemo, Detail: "a", Source: "email", CreatedAt: now.Add(-time.Hour)},
		{Type: model.LeadDemo, Detail: "b", Source: "email", CreatedAt: now.Add(-48 * time.Hour)},
		{Type: model.LeadSale, Detail: "10", Source: "unknown", Amount: &amount, CreatedAt: now.Add(-2 * time.Hour)},
		{Type: model.LeadTrial, Detail: "c", Source: "email", CreatedAt: now.Add(time.Hour)},
	}
	for _, l := range leads {
		require.NoError(t, store.Leads.Create(ctx, l))
	}

	counts, err := store.Leads.CountByTypeBetween(ctx, now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[model.LeadDemo])
	assert.Equal(t, 1, counts[model.LeadSale])
	assert.Zero(t, counts[model.LeadTrial])
}

func TestMemoryFaultIsStorageUnavailable(t *testing.T) {
	mem := repository.NewMemoryStore()
	mem.SetFault(func(op string, _ []repository.Filter) error {
		if op == "count products" {
			return errors.New("connection reset")
		}
		return nil
	})
	store := mem.Store()

	_, err := store.Products.Count(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)

	n, err := store.Listings.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repository.NewMemoryStore().Store().Leads.Count(ctx)
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
}

func TestMemoryCampaignCopiesResults(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore().Store()
	p := seedProduct(t, store, "Kit", model.ProductListed)

	c := &model.Campaign{
		ProductID:    p.ID,
		ChannelsUsed: []string{"reddit", "linkedin"},
		Results:      map[string]model.ChannelOutcome{"reddit": {Success: true, Subreddit: "r/sideproject"}},
	}
	require.NoError(t, store.Campaigns.Create(ctx, c))
	c.Results["reddit"] = model.ChannelOutcome{}

	got, err := store.Campaigns.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "r/sideproject", got.Results["reddit"].Subreddit)

	list, err := store.Campaigns.List(ctx, repository.Recent(10, repository.Eq("product_id", p.ID)))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
