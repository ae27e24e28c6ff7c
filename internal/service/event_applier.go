package service

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

type EventType string

const (
	EventListingCreated   EventType = "listing.created"
	EventListingPublished EventType = "listing.published"
	EventListingFailed    EventType = "listing.failed"
	EventListingSale      EventType = "listing.sale"
	EventLeadRecorded     EventType = "lead.recorded"
	EventCampaignRecorded EventType = "campaign.recorded"
)

// Event is what publishing workers and lead tools put on the queue.
// Only the fields of the given type are read. Sale events must carry an ID
// so a redelivered sale is counted once.
type Event struct {
	ID        string                          `json:"id,omitempty"`
	Type      EventType                       `json:"type"`
	ProductID string                          `json:"product_id,omitempty"`
	ListingID string                          `json:"listing_id,omitempty"`
	Platform  string                          `json:"platform,omitempty"`
	URL       string                          `json:"url,omitempty"`
	Reason    string                          `json:"reason,omitempty"`
	Amount    string                          `json:"amount,omitempty"`
	LeadType  string                          `json:"lead_type,omitempty"`
	Detail    string                          `json:"detail,omitempty"`
	Source    string                          `json:"source,omitempty"`
	Channels  []string                        `json:"channels,omitempty"`
	Results   map[string]model.ChannelOutcome `json:"results,omitempty"`
}

// EventApplier writes queued events through the services.
type EventApplier struct {
	Listings  *ListingService
	Funnel    *FunnelService
	Campaigns *CampaignService
	Logger    *zap.Logger
}

func NewEventApplier(listings *ListingService, funnel *FunnelService, campaigns *CampaignService, logger *zap.Logger) *EventApplier {
	return &EventApplier{Listings: listings, Funnel: funnel, Campaigns: campaigns, Logger: orNop(logger)}
}

// Handle decodes one queue message and applies it. Malformed bodies are
// validation errors.
func (a *EventApplier) Handle(ctx context.Context, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return appErrors.Wrap(appErrors.KindValidation, err, "decode event")
	}
	return a.Apply(ctx, ev)
}

func (a *EventApplier) Apply(ctx context.Context, ev Event) error {
	var err error
	switch ev.Type {
	case EventListingCreated:
		_, err = a.Listings.CreateListing(ctx, ev.ProductID, ev.Platform)
	case EventListingPublished:
		_, err = a.Listings.MarkPublished(ctx, ev.ListingID, ev.URL)
	case EventListingFailed:
		_, err = a.Listings.MarkFailed(ctx, ev.ListingID, ev.Reason)
	case EventListingSale:
		var amount decimal.Decimal
		amount, err = ParseAmount(ev.Amount)
		if err == nil && ev.ID == "" {
			err = appErrors.New(appErrors.KindValidation, "sale event for listing %s has no id", ev.ListingID)
		}
		if err == nil {
			_, err = a.Listings.RecordSaleOnce(ctx, ev.ListingID, amount, ev.ID)
		}
	case EventLeadRecorded:
		_, err = a.Funnel.RecordLead(ctx, ev.LeadType, ev.Detail, ev.Source)
	case EventCampaignRecorded:
		_, err = a.Campaigns.RecordCampaign(ctx, ev.ProductID, ev.Channels, ev.Results)
	default:
		err = appErrors.New(appErrors.KindValidation, "unknown event type %q", ev.Type)
	}
	if err != nil {
		a.Logger.Warn("event not applied",
			zap.String("type", string(ev.Type)),
			zap.String("kind", string(appErrors.KindOf(err))),
			zap.Error(err))
		return err
	}
	a.Logger.Debug("event applied", zap.String("type", string(ev.Type)))
	return nil
}

// ParseAmount reads a sale amount sent as text.
func ParseAmount(s string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, appErrors.Wrap(appErrors.KindInvalidAmount, err, "sale amount %q is not a decimal", s)
	}
	if amount.IsNegative() {
		return decimal.Zero, appErrors.New(appErrors.KindInvalidAmount, "sale amount %s must not be negative", s)
	}
	return amount, nil
}
