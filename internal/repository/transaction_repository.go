package repository

import "context"

// TransactionRepository is read-only here; rows are written by
// ListingRepository.RecordSale in the same database transaction.
type TransactionRepository struct {
	pgBase
}

func (r *TransactionRepository) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("transactions", transactionColumns, filters); err != nil {
		return 0, err
	}
	return r.count(ctx, "count transactions", "transactions", filters)
}

var _ TransactionRepositoryInterface = (*TransactionRepository)(nil)
