// internal/service/campaign_service.go
package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
)

type CampaignService struct {
	Store  *repository.Store
	Logger *zap.Logger
}

func NewCampaignService(store *repository.Store, logger *zap.Logger) *CampaignService {
	return &CampaignService{Store: store, Logger: orNop(logger)}
}

// RecordCampaign stores the summary of one distribution attempt. Channel
// names and result keys are normalised the same way listing platforms are.
func (s *CampaignService) RecordCampaign(ctx context.Context, productID string, channels []string, results map[string]model.ChannelOutcome) (*model.Campaign, error) {
	if productID == "" {
		return nil, appErrors.ConstraintViolation("campaign product_id is required")
	}
	if _, err := s.Store.Products.GetByID(ctx, productID); err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return nil, appErrors.NewUnknownProduct(productID)
		}
		return nil, err
	}

	c := &model.Campaign{
		ProductID:    productID,
		ChannelsUsed: make([]string, 0, len(channels)),
		Results:      make(map[string]model.ChannelOutcome, len(results)),
	}
	for _, ch := range channels {
		c.ChannelsUsed = append(c.ChannelsUsed, model.NormalizePlatform(ch))
	}
	for platform, outcome := range results {
		c.Results[model.NormalizePlatform(platform)] = outcome
	}

	if err := s.Store.Campaigns.Create(ctx, c); err != nil {
		return nil, err
	}
	s.Logger.Info("campaign recorded",
		zap.String("campaign_id", c.ID),
		zap.String("product_id", productID),
		zap.Strings("channels", c.ChannelsUsed))
	return c, nil
}

func (s *CampaignService) GetCampaign(ctx context.Context, id string) (*model.Campaign, error) {
	return s.Store.Campaigns.GetByID(ctx, id)
}

// ListCampaigns returns a product's campaigns, newest first.
func (s *CampaignService) ListCampaigns(ctx context.Context, productID string, limit int) ([]*model.Campaign, error) {
	if _, err := s.Store.Products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	return s.Store.Campaigns.List(ctx, repository.Recent(limit, repository.Eq("product_id", productID)))
}
