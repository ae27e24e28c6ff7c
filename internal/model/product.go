// internal/model/product.go
package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type ProductStatus string

const (
	ProductDraft   ProductStatus = "draft"
	ProductListed  ProductStatus = "listed"
	ProductRetired ProductStatus = "retired"
)

type Product struct {
	ID             string          `db:"id" json:"id"`
	Title          string          `db:"title" json:"title"`
	Niche          string          `db:"niche" json:"niche"`
	SuggestedPrice decimal.Decimal `db:"suggested_price" json:"suggested_price"`
	Status         ProductStatus   `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// Validate checks the fields the products table requires.
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Title) == "" {
		return errRequired("product", "title")
	}
	if p.SuggestedPrice.IsNegative() {
		return errNegative("product", "suggested_price")
	}
	if !p.Status.Valid() {
		return errInvalidValue("product", "status", string(p.Status))
	}
	return nil
}

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductDraft, ProductListed, ProductRetired:
		return true
	}
	return false
}

// CanTransition reports whether a product may move from s to next.
func (s ProductStatus) CanTransition(next ProductStatus) bool {
	switch s {
	case ProductDraft:
		return next == ProductListed || next == ProductRetired
	case ProductListed:
		return next == ProductRetired
	}
	return false
}
