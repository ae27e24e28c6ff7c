package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

// FaultFunc lets tests make a memory-store operation fail. It receives the
// operation name (e.g. "count products") and the filters involved.
type FaultFunc func(op string, filters []Filter) error

// MemoryStore keeps every entity in process behind one lock. It honours
// the same contract as the Postgres store, including atomic sales.
type MemoryStore struct {
	mu           sync.RWMutex
	products     map[string]*model.Product
	listings     map[string]*model.Listing
	leads        map[string]*model.Lead
	campaigns    map[string]*model.Campaign
	transactions map[string]*model.Transaction
	saleKeys     map[string]string
	fault        FaultFunc
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     map[string]*model.Product{},
		listings:     map[string]*model.Listing{},
		leads:        map[string]*model.Lead{},
		campaigns:    map[string]*model.Campaign{},
		transactions: map[string]*model.Transaction{},
		saleKeys:     map[string]string{},
	}
}

// Store exposes the memory store through the repository interfaces.
func (m *MemoryStore) Store() *Store {
	return &Store{
		Products:     &memProducts{m},
		Listings:     &memListings{m},
		Leads:        &memLeads{m},
		Campaigns:    &memCampaigns{m},
		Transactions: &memTransactions{m},
	}
}

func (m *MemoryStore) SetFault(f FaultFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = f
}

// check must be called with m.mu held.
func (m *MemoryStore) check(ctx context.Context, op string, filters []Filter) error {
	if err := ctx.Err(); err != nil {
		return appErrors.StorageUnavailable(op, err)
	}
	if m.fault != nil {
		if err := m.fault(op, filters); err != nil {
			return classify(op, err)
		}
	}
	return nil
}

// ---------------- products ----------------

type memProducts struct{ m *MemoryStore }

func (r *memProducts) Create(ctx context.Context, p *model.Product) error {
	prepareProduct(p)
	if err := p.Validate(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(ctx, "insert product", nil); err != nil {
		return err
	}
	if _, ok := r.m.products[p.ID]; ok {
		return appErrors.ConstraintViolation("product %s already exists", p.ID)
	}
	cp := *p
	r.m.products[p.ID] = &cp
	return nil
}

func (r *memProducts) GetByID(ctx context.Context, id string) (*model.Product, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "get product", nil); err != nil {
		return nil, err
	}
	p, ok := r.m.products[id]
	if !ok {
		return nil, appErrors.NewNotFound("product", id)
	}
	cp := *p
	return &cp, nil
}

func (r *memProducts) List(ctx context.Context, q Query) ([]*model.Product, error) {
	if err := q.validate("products", productColumns); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "list products", q.Filters); err != nil {
		return nil, err
	}
	out := []*model.Product{}
	for _, p := range r.m.products {
		if matchAll(q.Filters, func(f string) any { return productField(p, f) }) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sortRecords(out, q, func(p *model.Product, f string) any { return productField(p, f) }, func(p *model.Product) string { return p.ID })
	return limit(out, q.Limit), nil
}

func (r *memProducts) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("products", productColumns, filters); err != nil {
		return 0, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "count products", filters); err != nil {
		return 0, err
	}
	n := 0
	for _, p := range r.m.products {
		if matchAll(filters, func(f string) any { return productField(p, f) }) {
			n++
		}
	}
	return n, nil
}

func (r *memProducts) UpdateStatus(ctx context.Context, id string, from, to model.ProductStatus) (*model.Product, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(ctx, "update product status", nil); err != nil {
		return nil, err
	}
	p, ok := r.m.products[id]
	if !ok {
		return nil, appErrors.NewNotFound("product", id)
	}
	if p.Status != from {
		return nil, appErrors.NewInvalidTransition("product", id, string(p.Status), string(to))
	}
	p.Status = to
	cp := *p
	return &cp, nil
}

func productField(p *model.Product, field string) any {
	switch field {
	case "id":
		return p.ID
	case "title":
		return p.Title
	case "niche":
		return p.Niche
	case "suggested_price":
		return p.SuggestedPrice
	case "status":
		return string(p.Status)
	case "created_at":
		return p.CreatedAt
	}
	return nil
}

// ---------------- listings ----------------

type memListings struct{ m *MemoryStore }

func (r *memListings) Create(ctx context.Context, l *model.Listing) error {
	prepareListing(l)
	if err := l.Validate(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(ctx, "insert listing", nil); err != nil {
		return err
	}
	if _, ok := r.m.listings[l.ID]; ok {
		return appErrors.ConstraintViolation("listing %s already exists", l.ID)
	}
	if _, ok := r.m.products[l.ProductID]; !ok {
		return appErrors.ConstraintViolation("listing references missing product %s", l.ProductID)
	}
	cp := *l
	r.m.listings[l.ID] = &cp
	return nil
}

func (r *memListings) GetByID(ctx context.Context, id string) (*model.Listing, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "get listing", nil); err != nil {
		return nil, err
	}
	l, ok := r.m.listings[id]
	if !ok {
		return nil, appErrors.NewNotFound("listing", id)
	}
	cp := *l
	return &cp, nil
}

func (r *memListings) List(ctx context.Context, q Query) ([]*model.Listing, error) {
	if err := q.validate("listings", listingColumns); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "list listings", q.Filters); err != nil {
		return nil, err
	}
	out := []*model.Listing{}
	for _, l := range r.m.listings {
		if matchAll(q.Filters, func(f string) any { return listingField(l, f) }) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortRecords(out, q, func(l *model.Listing, f string) any { return listingField(l, f) }, func(l *model.Listing) string { return l.ID })
	return limit(out, q.Limit), nil
}

func (r *memListings) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("listings", listingColumns, filters); err != nil {
		return 0, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "count listings", filters); err != nil {
		return 0, err
	}
	n := 0
	for _, l := range r.m.listings {
		if matchAll(filters, func(f string) any { return listingField(l, f) }) {
			n++
		}
	}
	return n, nil
}

func (r *memListings) Transition(ctx context.Context, id string, from model.ListingStatus, t model.ListingTransition) (*model.Listing, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(ctx, "transition listing", nil); err != nil {
		return nil, err
	}
	l, ok := r.m.listings[id]
	if !ok {
		return nil, appErrors.NewNotFound("listing", id)
	}
	if l.Status != from {
		return nil, appErrors.NewInvalidTransition("listing", id, string(l.Status), string(t.To))
	}
	now := time.Now().UTC()
	l.Status = t.To
	l.URL = t.URL
	l.FailureReason = t.FailureReason
	l.UpdatedAt = &now
	cp := *l
	return &cp, nil
}

func (r *memListings) RecordSale(ctx context.Context, id string, amount decimal.Decimal) (*model.Listing, error) {
	return r.RecordSaleOnce(ctx, id, amount, "")
}

func (r *memListings) RecordSaleOnce(ctx context.Context, id string, amount decimal.Decimal, key string) (*model.Listing, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(ctx, "record sale", nil); err != nil {
		return nil, err
	}
	if amount.IsNegative() {
		return nil, appErrors.New(appErrors.KindInvalidAmount, "sale amount %s must not be negative", amount)
	}
	l, ok := r.m.listings[id]
	if !ok {
		return nil, appErrors.NewNotFound("listing", id)
	}
	if _, seen := r.m.saleKeys[key]; key != "" && seen {
		cp := *l
		return &cp, nil
	}
	if l.Status != model.ListingPublished {
		return nil, appErrors.NewInvalidTransition("listing", id, string(l.Status), "sale")
	}
	now := time.Now().UTC()
	l.Sales++
	l.Revenue = l.Revenue.Add(amount)
	l.UpdatedAt = &now

	tx := &model.Transaction{
		ID:        uuid.NewString(),
		ListingID: l.ID,
		ProductID: l.ProductID,
		Amount:    amount,
		Status:    model.TransactionCompleted,
		EventKey:  key,
		CreatedAt: now,
	}
	r.m.transactions[tx.ID] = tx
	if key != "" {
		r.m.saleKeys[key] = tx.ID
	}

	cp := *l
	return &cp, nil
}

func (r *memListings) ListRecentWithProduct(ctx context.Context, n int) ([]model.ListingWithProduct, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "list recent listings", nil); err != nil {
		return nil, err
	}
	recent := make([]*model.Listing, 0, len(r.m.listings))
	for _, l := range r.m.listings {
		recent = append(recent, l)
	}
	sortRecords(recent, Query{}, func(l *model.Listing, f string) any { return listingField(l, f) }, func(l *model.Listing) string { return l.ID })
	recent = limit(recent, n)

	out := make([]model.ListingWithProduct, 0, len(recent))
	for _, l := range recent {
		item := model.ListingWithProduct{Listing: *l}
		if p, ok := r.m.products[l.ProductID]; ok {
			item.ProductTitle = p.Title
			item.ProductNiche = p.Niche
			item.SuggestedPrice = p.SuggestedPrice
		}
		out = append(out, item)
	}
	return out, nil
}

func listingField(l *model.Listing, field string) any {
	switch field {
	case "id":
		return l.ID
	case "product_id":
		return l.ProductID
	case "platform":
		return l.Platform
	case "status":
		return string(l.Status)
	case "url":
		return l.URL
	case "sales":
		return l.Sales
	case "revenue":
		return l.Revenue
	case "created_at":
		return l.CreatedAt
	case "updated_at":
		if l.UpdatedAt == nil {
			return time.Time{}
		}
		return *l.UpdatedAt
	}
	return nil
}

// ---------------- leads ----------------

type memLeads struct{ m *MemoryStore }

func (r *memLeads) Create(ctx context.Context, l *model.Lead) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	if err := l.Validate(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(ctx, "insert lead", nil); err != nil {
		return err
	}
	cp := *l
	r.m.leads[l.ID] = &cp
	return nil
}

func (r *memLeads) List(ctx context.Context, q Query) ([]*model.Lead, error) {
	if err := q.validate("leads", leadColumns); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "list leads", q.Filters); err != nil {
		return nil, err
	}
	out := []*model.Lead{}
	for _, l := range r.m.leads {
		if matchAll(q.Filters, func(f string) any { return leadField(l, f) }) {
			cp := *l
			out = append(out, &cp)
		}
	}
	sortRecords(out, q, func(l *model.Lead, f string) any { return leadField(l, f) }, func(l *model.Lead) string { return l.ID })
	return limit(out, q.Limit), nil
}

func (r *memLeads) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("leads", leadColumns, filters); err != nil {
		return 0, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "count leads", filters); err != nil {
		return 0, err
	}
	n := 0
	for _, l := range r.m.leads {
		if matchAll(filters, func(f string) any { return leadField(l, f) }) {
			n++
		}
	}
	return n, nil
}

func (r *memLeads) CountByTypeBetween(ctx context.Context, since, until time.Time) (map[model.LeadType]int, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "count leads by type", []Filter{Since(since), Lte("created_at", until)}); err != nil {
		return nil, err
	}
	counts := map[model.LeadType]int{}
	for _, l := range r.m.leads {
		if !l.CreatedAt.Before(since) && !l.CreatedAt.After(until) {
			counts[l.Type]++
		}
	}
	return counts, nil
}

func leadField(l *model.Lead, field string) any {
	switch field {
	case "id":
		return l.ID
	case "type":
		return string(l.Type)
	case "source":
		return l.Source
	case "created_at":
		return l.CreatedAt
	}
	return nil
}

// ---------------- campaigns ----------------

type memCampaigns struct{ m *MemoryStore }

func (r *memCampaigns) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if c.Results == nil {
		c.Results = map[string]model.ChannelOutcome{}
	}
	if err := c.Validate(); err != nil {
		return err
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.check(ctx, "insert campaign", nil); err != nil {
		return err
	}
	if _, ok := r.m.products[c.ProductID]; !ok {
		return appErrors.ConstraintViolation("campaign references missing product %s", c.ProductID)
	}
	r.m.campaigns[c.ID] = copyCampaign(c)
	return nil
}

func (r *memCampaigns) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "get campaign", nil); err != nil {
		return nil, err
	}
	c, ok := r.m.campaigns[id]
	if !ok {
		return nil, appErrors.NewNotFound("campaign", id)
	}
	return copyCampaign(c), nil
}

func (r *memCampaigns) List(ctx context.Context, q Query) ([]*model.Campaign, error) {
	if err := q.validate("campaigns", campaignColumns); err != nil {
		return nil, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "list campaigns", q.Filters); err != nil {
		return nil, err
	}
	out := []*model.Campaign{}
	for _, c := range r.m.campaigns {
		if matchAll(q.Filters, func(f string) any { return campaignField(c, f) }) {
			out = append(out, copyCampaign(c))
		}
	}
	sortRecords(out, q, func(c *model.Campaign, f string) any { return campaignField(c, f) }, func(c *model.Campaign) string { return c.ID })
	return limit(out, q.Limit), nil
}

func campaignField(c *model.Campaign, field string) any {
	switch field {
	case "id":
		return c.ID
	case "product_id":
		return c.ProductID
	case "created_at":
		return c.CreatedAt
	}
	return nil
}

func copyCampaign(c *model.Campaign) *model.Campaign {
	cp := *c
	cp.ChannelsUsed = append([]string(nil), c.ChannelsUsed...)
	cp.Results = make(map[string]model.ChannelOutcome, len(c.Results))
	for k, v := range c.Results {
		cp.Results[k] = v
	}
	return &cp
}

// ---------------- transactions ----------------

type memTransactions struct{ m *MemoryStore }

func (r *memTransactions) Count(ctx context.Context, filters ...Filter) (int, error) {
	if err := validateFilters("transactions", transactionColumns, filters); err != nil {
		return 0, err
	}
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	if err := r.m.check(ctx, "count transactions", filters); err != nil {
		return 0, err
	}
	n := 0
	for _, tx := range r.m.transactions {
		if matchAll(filters, func(f string) any { return transactionField(tx, f) }) {
			n++
		}
	}
	return n, nil
}

func transactionField(tx *model.Transaction, field string) any {
	switch field {
	case "id":
		return tx.ID
	case "listing_id":
		return tx.ListingID
	case "product_id":
		return tx.ProductID
	case "status":
		return string(tx.Status)
	case "event_key":
		return tx.EventKey
	case "created_at":
		return tx.CreatedAt
	}
	return nil
}

// ---------------- matching helpers ----------------

func matchAll(filters []Filter, field func(string) any) bool {
	for _, f := range filters {
		if !match(field(f.Field), f) {
			return false
		}
	}
	return true
}

func match(v any, f Filter) bool {
	switch f.Op {
	case OpEq:
		return compareValues(v, f.Value) == 0
	case OpIn:
		for _, s := range f.Value.([]string) {
			if compareValues(v, s) == 0 {
				return true
			}
		}
		return false
	case OpGte:
		return compareValues(v, f.Value) >= 0
	case OpLte:
		return compareValues(v, f.Value) <= 0
	}
	return false
}

func compareValues(a, b any) int {
	switch av := a.(type) {
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case decimal.Decimal:
		if bv, ok := b.(decimal.Decimal); ok {
			return av.Cmp(bv)
		}
		return av.Cmp(model.ParseMoney(fmt.Sprint(b)))
	case int64:
		if bv, ok := toInt64(b); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	}
	return 0, false
}

func sortRecords[T any](items []T, q Query, field func(T, string) any, id func(T) string) {
	name, desc := q.orderBy()
	sort.SliceStable(items, func(i, j int) bool {
		c := compareValues(field(items[i], name), field(items[j], name))
		if c == 0 {
			c = strings.Compare(id(items[i]), id(items[j]))
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}

var (
	_ ProductRepositoryInterface     = (*memProducts)(nil)
	_ ListingRepositoryInterface     = (*memListings)(nil)
	_ LeadRepositoryInterface        = (*memLeads)(nil)
	_ CampaignRepositoryInterface    = (*memCampaigns)(nil)
	_ TransactionRepositoryInterface = (*memTransactions)(nil)
)
