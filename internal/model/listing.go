// internal/model/listing.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type ListingStatus string

const (
	ListingPending   ListingStatus = "pending"
	ListingPublished ListingStatus = "published"
	ListingFailed    ListingStatus = "failed"
)

// Listing is one attempt to publish a product on one platform.
// ProductID is a back-reference kept for audit, not ownership.
type Listing struct {
	ID            string          `db:"id" json:"id"`
	ProductID     string          `db:"product_id" json:"product_id"`
	Platform      string          `db:"platform" json:"platform"`
	Status        ListingStatus   `db:"status" json:"status"`
	URL           string          `db:"url" json:"url,omitempty"`
	FailureReason string          `db:"failure_reason" json:"failure_reason,omitempty"`
	Sales         int64           `db:"sales" json:"sales"`
	Revenue       decimal.Decimal `db:"revenue" json:"revenue"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}

func (l *Listing) Validate() error {
	if l.ProductID == "" {
		return errRequired("listing", "product_id")
	}
	if l.Platform == "" {
		return errRequired("listing", "platform")
	}
	if !l.Status.Valid() {
		return errInvalidValue("listing", "status", string(l.Status))
	}
	if l.Sales < 0 {
		return errNegative("listing", "sales")
	}
	if l.Revenue.IsNegative() {
		return errNegative("listing", "revenue")
	}
	return nil
}

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingPending, ListingPublished, ListingFailed:
		return true
	}
	return false
}

// CanTransition: pending -> published | failed. Both targets are terminal.
func (s ListingStatus) CanTransition(next ListingStatus) bool {
	return s == ListingPending && (next == ListingPublished || next == ListingFailed)
}

// ListingTransition is the patch applied when a listing leaves pending.
type ListingTransition struct {
	To            ListingStatus
	URL           string
	FailureReason string
}

// ListingWithProduct is a listing joined with its parent product's
// descriptive fields. Product fields are empty when the parent is gone.
type ListingWithProduct struct {
	Listing
	ProductTitle   string          `json:"product_title"`
	ProductNiche   string          `json:"product_niche"`
	SuggestedPrice decimal.Decimal `json:"suggested_price"`
}
