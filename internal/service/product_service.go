package service

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
)

type ProductService struct {
	Store  *repository.Store
	Logger *zap.Logger
}

func NewProductService(store *repository.Store, logger *zap.Logger) *ProductService {
	return &ProductService{Store: store, Logger: orNop(logger)}
}

// CreateProduct stores a new product in draft.
func (s *ProductService) CreateProduct(ctx context.Context, title, niche string, price decimal.Decimal) (*model.Product, error) {
	p := &model.Product{
		Title:          strings.TrimSpace(title),
		Niche:          strings.TrimSpace(niche),
		SuggestedPrice: price,
		Status:         model.ProductDraft,
	}
	if err := s.Store.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	s.Logger.Info("product created", zap.String("product_id", p.ID), zap.String("title", p.Title))
	return p, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id string) (*model.Product, error) {
	return s.Store.Products.GetByID(ctx, id)
}

// SetProductStatus moves a product along draft -> listed -> retired.
// A draft product may also be retired directly.
func (s *ProductService) SetProductStatus(ctx context.Context, id string, to model.ProductStatus) (*model.Product, error) {
	if !to.Valid() {
		return nil, appErrors.New(appErrors.KindValidation, "product status %q must be one of draft, listed, retired", to)
	}
	current, err := s.Store.Products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransition(to) {
		return nil, appErrors.NewInvalidTransition("product", id, string(current.Status), string(to))
	}
	updated, err := s.Store.Products.UpdateStatus(ctx, id, current.Status, to)
	if err != nil {
		return nil, err
	}
	s.Logger.Info("product status changed",
		zap.String("product_id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(to)))
	return updated, nil
}

func orNop(logger *zap.Logger) *zap.Logger {
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
