package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
)

// ListingService owns the listing lifecycle:
//
//	pending -> published (accepts repeated sales)
//	pending -> failed
//
// Both targets are terminal. A failed listing is retried by creating a new
// listing, never by editing the old one.
type ListingService struct {
	Store  *repository.Store
	Logger *zap.Logger
}

func NewListingService(store *repository.Store, logger *zap.Logger) *ListingService {
	return &ListingService{Store: store, Logger: orNop(logger)}
}

func (s *ListingService) CreateListing(ctx context.Context, productID, platform string) (*model.Listing, error) {
	if productID == "" {
		return nil, appErrors.ConstraintViolation("listing product_id is required")
	}
	if _, err := s.Store.Products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.NewUnknownProduct(productID)
		}
		return nil, err
	}

	l := &model.Listing{
		ProductID: productID,
		Platform:  platform,
		Status:    model.ListingPending,
		Revenue:   decimal.Zero,
	}
	if err := s.Store.Listings.Create(ctx, l); err != nil {
		return nil, err
	}
	s.Logger.Info("listing created",
		zap.String("listing_id", l.ID),
		zap.String("product_id", productID),
		zap.String("platform", l.Platform))
	return l, nil
}

func (s *ListingService) GetListing(ctx context.Context, id string) (*model.Listing, error) {
	return s.Store.Listings.GetByID(ctx, id)
}

func (s *ListingService) MarkPublished(ctx context.Context, id, url string) (*model.Listing, error) {
	return s.leavePending(ctx, id, model.ListingTransition{To: model.ListingPublished, URL: url})
}

func (s *ListingService) MarkFailed(ctx context.Context, id, reason string) (*model.Listing, error) {
	return s.leavePending(ctx, id, model.ListingTransition{To: model.ListingFailed, FailureReason: reason})
}

func (s *ListingService) leavePending(ctx context.Context, id string, t model.ListingTransition) (*model.Listing, error) {
	l, err := s.Store.Listings.Transition(ctx, id, model.ListingPending, t)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("listing transitioned", zap.String("listing_id", id), zap.String("status", string(l.Status)))
	return l, nil
}

// RecordSale adds one sale of amount to a published listing. Concurrent
// calls on the same listing are all counted.
func (s *ListingService) RecordSale(ctx context.Context, id string, amount decimal.Decimal) (*model.Listing, error) {
	return s.RecordSaleOnce(ctx, id, amount, "")
}

// RecordSaleOnce is RecordSale for sales that may be delivered more than
// once. A key seen before returns the listing without counting again.
func (s *ListingService) RecordSaleOnce(ctx context.Context, id string, amount decimal.Decimal, key string) (*model.Listing, error) {
	if amount.IsNegative() {
		return nil, appErrors.New(appErrors.KindInvalidAmount, "sale amount %s must not be negative", amount)
	}
	l, err := s.Store.Listings.RecordSaleOnce(ctx, id, amount, key)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("sale recorded",
		zap.String("listing_id", id),
		zap.String("key", key),
		zap.String("amount", amount.String()),
		zap.Int64("sales", l.Sales))
	return l, nil
}

// Republish starts a new pending attempt for a failed listing's product
// and platform. The failed listing is kept as history.
func (s *ListingService) Republish(ctx context.Context, id string) (*model.Listing, error) {
	prev, err := s.Store.Listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if prev.Status != model.ListingFailed {
		return nil, appErrors.NewInvalidTransition("listing", id, string(prev.Status), "republish")
	}
	return s.CreateListing(ctx, prev.ProductID, prev.Platform)
}
