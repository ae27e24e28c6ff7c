// internal/model/transaction.go
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "completed"
	TransactionRefunded  TransactionStatus = "refunded"
)

// Transaction is one sale completion, written alongside the listing's
// sales/revenue increment. EventKey, when set, is the producer's id for the
// sale and is applied at most once.
type Transaction struct {
	ID        string            `db:"id" json:"id"`
	ListingID string            `db:"listing_id" json:"listing_id"`
	ProductID string            `db:"product_id" json:"product_id"`
	Amount    decimal.Decimal   `db:"amount" json:"amount"`
	Status    TransactionStatus `db:"status" json:"status"`
	EventKey  string            `db:"event_key" json:"event_key,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
