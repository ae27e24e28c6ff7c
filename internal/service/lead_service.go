package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/repository"
)

const (
	DefaultFunnelWindow = 7 * 24 * time.Hour
	defaultListLimit    = 20
)

// FunnelService records leads and answers windowed funnel questions.
type FunnelService struct {
	Store         *repository.Store
	Logger        *zap.Logger
	DefaultWindow time.Duration

	now func() time.Time
}

func NewFunnelService(store *repository.Store, logger *zap.Logger, defaultWindow time.Duration) *FunnelService {
	if defaultWindow <= 0 {
		defaultWindow = DefaultFunnelWindow
	}
	return &FunnelService{
		Store:         store,
		Logger:        orNop(logger),
		DefaultWindow: defaultWindow,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// RecordLead validates and stores a lead. For sale leads detail is the
// amount and source is stored as the description.
func (s *FunnelService) RecordLead(ctx context.Context, leadType, detail, source string) (*model.Lead, error) {
	input, err := model.ParseLead(leadType, detail, source)
	if err != nil {
		return nil, err
	}
	lead := input.Record()
	if err := s.Store.Leads.Create(ctx, lead); err != nil {
		return nil, err
	}
	s.Logger.Info("lead recorded",
		zap.String("lead_id", lead.ID),
		zap.String("type", string(lead.Type)),
		zap.String("source", lead.Source))
	return lead, nil
}

// FunnelWindowCounts counts leads per type created in [now-window, now]. Every type is present in the result, zero when there were none.
func (s *FunnelService) FunnelWindowCounts(ctx context.Context, window time.Duration) (map[model.LeadType]int, error) {
	if window <= 0 {
		window = s.DefaultWindow
	}
	now := s.now()

	counts, err := s.Store.Leads.CountByTypeBetween(ctx, now.Add(-window), now)
	if err != nil {
		return nil, err
	}
	out := make(map[model.LeadType]int, len(model.LeadTypes))
	for _, t := range model.LeadTypes {
		out[t] = counts[t]
	}
	return out, nil
}

// ListLeads returns the most recent leads, optionally of one type.
func (s *FunnelService) ListLeads(ctx context.Context, leadType string, limit int) ([]*model.Lead, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var filters []repository.Filter
	if leadType = strings.ToLower(strings.TrimSpace(leadType)); leadType != "" {
		if !model.LeadType(leadType).Valid() {
			return nil, appErrors.New(appErrors.KindValidation, "lead type %q must be one of demo, trial, sale", leadType)
		}
		filters = append(filters, repository.Eq("type", leadType))
	}
	return s.Store.Leads.List(ctx, repository.Recent(limit, filters...))
}
