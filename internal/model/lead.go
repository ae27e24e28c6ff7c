// internal/model/lead.go
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
)

type LeadType string

const (
	LeadDemo  LeadType = "demo"
	LeadTrial LeadType = "trial"
	LeadSale  LeadType = "sale"
)

// LeadTypes lists the funnel stages in order.
var LeadTypes = []LeadType{LeadDemo, LeadTrial, LeadSale}

const UnknownSource = "unknown"

func (t LeadType) Valid() bool {
	switch t {
	case LeadDemo, LeadTrial, LeadSale:
		return true
	}
	return false
}

// Lead is the stored row. Amount and Description are set only for sale
// leads. Leads are immutable once recorded.
type Lead struct {
	ID          string           `db:"id" json:"id"`
	Type        LeadType         `db:"type" json:"type"`
	Detail      string           `db:"detail" json:"detail"`
	Source      string           `db:"source" json:"source"`
	Amount      *decimal.Decimal `db:"amount" json:"amount,omitempty"`
	Description *string          `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"created_at"`
}

func (l *Lead) Validate() error {
	if !l.Type.Valid() {
		return errInvalidValue("lead", "type", string(l.Type))
	}
	if strings.TrimSpace(l.Detail) == "" {
		return errRequired("lead", "detail")
	}
	if l.Type == LeadSale && l.Amount == nil {
		return errRequired("lead", "amount")
	}
	if l.Amount != nil && l.Amount.IsNegative() {
		return errNegative("lead", "amount")
	}
	return nil
}

// LeadInput is one of DemoLead, TrialLead or SaleLead.
type LeadInput interface {
	LeadType() LeadType
	Record() *Lead
}

type DemoLead struct {
	Detail string
	Source string
}

type TrialLead struct {
	Detail string
	Source string
}

type SaleLead struct {
	Amount      decimal.Decimal
	Description string
	// raw keeps the detail text the amount was parsed from.
	raw string
}

func (DemoLead) LeadType() LeadType  { return LeadDemo }
func (TrialLead) LeadType() LeadType { return LeadTrial }
func (SaleLead) LeadType() LeadType  { return LeadSale }

func (d DemoLead) Record() *Lead {
	return &Lead{Type: LeadDemo, Detail: d.Detail, Source: sourceOrUnknown(d.Source)}
}

func (t TrialLead) Record() *Lead {
	return &Lead{Type: LeadTrial, Detail: t.Detail, Source: sourceOrUnknown(t.Source)}
}

func (s SaleLead) Record() *Lead {
	amount := s.Amount
	description := s.Description
	detail := s.raw
	if detail == "" {
		detail = amount.String()
	}
	return &Lead{
		Type:        LeadSale,
		Detail:      detail,
		Source:      UnknownSource,
		Amount:      &amount,
		Description: &description,
	}
}

// ParseLead turns the (type, detail, source) triple callers send into a
// tagged variant. For sale leads detail carries the amount and source
// carries the description.
func ParseLead(leadType, detail, source string) (LeadInput, error) {
	t := LeadType(strings.ToLower(strings.TrimSpace(leadType)))
	if !t.Valid() {
		return nil, appErrors.New(appErrors.KindValidation, "lead type %q must be one of demo, trial, sale", leadType)
	}
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return nil, appErrors.New(appErrors.KindMissingDetail, "lead detail is required")
	}
	source = strings.TrimSpace(source)

	switch t {
	case LeadDemo:
		return DemoLead{Detail: detail, Source: source}, nil
	case LeadTrial:
		return TrialLead{Detail: detail, Source: source}, nil
	default:
		amount, err := decimal.NewFromString(detail)
		if err != nil {
			return nil, appErrors.Wrap(appErrors.KindInvalidAmount, err, "sale amount %q is not a decimal", detail)
		}
		if amount.IsNegative() {
			return nil, appErrors.New(appErrors.KindInvalidAmount, "sale amount %s must not be negative", detail)
		}
		return SaleLead{Amount: amount, Description: source, raw: detail}, nil
	}
}

func sourceOrUnknown(s string) string {
	if s == "" {
		return UnknownSource
	}
	return s
}
