package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
	"github.com/unclebandit/channel-ledger/internal/service"
)

type fixture struct {
	mem       *repository.MemoryStore
	store     *repository.Store
	products  *service.ProductService
	listings  *service.ListingService
	funnel    *service.FunnelService
	campaigns *service.CampaignService
	agg       *service.AggregationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mem := repository.NewMemoryStore()
	store := mem.Store()
	return &fixture{
		mem:       mem,
		store:     store,
		products:  service.NewProductService(store, logger),
		listings:  service.NewListingService(store, logger),
		funnel:    service.NewFunnelService(store, logger, 0),
		campaigns: service.NewCampaignService(store, logger),
		agg:       service.NewAggregationService(store, logger),
	}
}

func (f *fixture) product(t *testing.T, title string, status model.ProductStatus) *model.Product {
	t.Helper()
	p, err := f.products.CreateProduct(context.Background(), title, "ai tools", decimal.NewFromInt(49))
	require.NoError(t, err)
	if status != model.ProductDraft {
		p, err = f.products.SetProductStatus(context.Background(), p.ID, status)
		require.NoError(t, err)
	}
	return p
}

// listing stores a listing directly in the given status. A zero at means
// now.
func (f *fixture) listing(t *testing.T, productID, platform string, status model.ListingStatus, at time.Time) *model.Listing {
	t.Helper()
	l := &model.Listing{ProductID: productID, Platform: platform, Status: status, CreatedAt: at}
	require.NoError(t, f.store.Listings.Create(context.Background(), l))
	return l
}
