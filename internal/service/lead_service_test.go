package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

func TestRecordSaleLead(t *testing.T) {
	f := newFixture(t)
	lead, err := f.funnel.RecordLead(context.Background(), "sale", "500", "AI Ops Team - Monthly subscription")
	require.NoError(t, err)

	assert.Equal(t, model.LeadSale, lead.Type)
	require.NotNil(t, lead.Amount)
	assert.True(t, lead.Amount.Equal(decimal.NewFromInt(500)))
	require.NotNil(t, lead.Description)
	assert.Equal(t, "AI Ops Team - Monthly subscription", *lead.Description)
	assert.NotEmpty(t, lead.ID)
}

func TestRecordLeadDefaultsSource(t *testing.T) {
	f := newFixture(t)
	lead, err := f.funnel.RecordLead(context.Background(), "trial", "signed up from landing page", "")
	require.NoError(t, err)
	assert.Equal(t, model.UnknownSource, lead.Source)
	assert.Nil(t, lead.Amount)
}

func TestRecordLeadValidation(t *testing.T) {
	cases := []struct {
		name                     string
		leadType, detail, source string
		want                     error
	}{
		{"missing detail", "demo", "", "email", appErrors.ErrMissingDetail},
		{"bad amount", "sale", "lots", "", appErrors.ErrInvalidAmount},
		{"negative amount", "sale", "-3", "", appErrors.ErrInvalidAmount},
		{"unknown type", "webinar", "x", "", appErrors.ErrValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.funnel.RecordLead(context.Background(), c.leadType, c.detail, c.source)
			assert.ErrorIs(t, err, c.want)

			n, err := f.store.Leads.Count(context.Background())
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestFunnelWindowCounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := time.Now().UTC()

	old := &model.Lead{Type: model.LeadDemo, Detail: "old", Source: "email", CreatedAt: now.Add(-30 * 24 * time.Hour)}
	require.NoError(t, f.store.Leads.Create(ctx, old))
	_, err := f.funnel.RecordLead(ctx, "demo", "booked call", "email")
	require.NoError(t, err)
	_, err = f.funnel.RecordLead(ctx, "sale", "99", "starter plan")
	require.NoError(t, err)

	counts, err := f.funnel.FunnelWindowCounts(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, map[model.LeadType]int{model.LeadDemo: 1, model.LeadTrial: 0, model.LeadSale: 1}, counts)

	all, err := f.funnel.FunnelWindowCounts(ctx, 60*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 2, all[model.LeadDemo])

	def, err := f.funnel.FunnelWindowCounts(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, counts, def)
}

func TestFunnelWindowCountsIgnoresFutureLeads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	future := &model.Lead{Type: model.LeadTrial, Detail: "scheduled", Source: "email", CreatedAt: time.Now().UTC().Add(48 * time.Hour)}
	require.NoError(t, f.store.Leads.Create(ctx, future))

	counts, err := f.funnel.FunnelWindowCounts(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, counts[model.LeadTrial])
}

func TestFunnelWindowCountsStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	counts, err := f.funnel.FunnelWindowCounts(ctx, time.Hour)
	assert.Nil(t, counts)
	assert.ErrorIs(t, err, appErrors.ErrStorageUnavailable)
}

func TestListLeads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for _, detail := range []string{"a", "b", "c"} {
		_, err := f.funnel.RecordLead(ctx, "demo", detail, "email")
		require.NoError(t, err)
	}
	_, err := f.funnel.RecordLead(ctx, "trial", "t", "email")
	require.NoError(t, err)

	demos, err := f.funnel.ListLeads(ctx, "demo", 2)
	require.NoError(t, err)
	assert.Len(t, demos, 2)
	for _, l := range demos {
		assert.Equal(t, model.LeadDemo, l.Type)
	}

	all, err := f.funnel.ListLeads(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	_, err = f.funnel.ListLeads(ctx, "webinar", 0)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
