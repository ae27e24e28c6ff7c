package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

func TestRecordCampaign(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Kit", model.ProductListed)

	c, err := f.campaigns.RecordCampaign(ctx, p.ID, []string{"Reddit", "linkedin"}, map[string]model.ChannelOutcome{
		"reddit":   {Success: true, Subreddit: "r/SideProject", URL: "https://reddit.com/r/x"},
		"LinkedIn": {Success: false, Manual: true, Error: "needs review"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"reddit", "linkedin"}, c.ChannelsUsed)
	assert.True(t, c.Results["linkedin"].Manual)

	got, err := f.campaigns.GetCampaign(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "r/SideProject", got.Results["reddit"].Subreddit)

	list, err := f.campaigns.ListCampaigns(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRecordCampaignValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p := f.product(t, "Kit", model.ProductListed)

	_, err := f.campaigns.RecordCampaign(ctx, "missing", []string{"reddit"}, nil)
	assert.ErrorIs(t, err, appErrors.ErrUnknownProduct)

	_, err = f.campaigns.RecordCampaign(ctx, p.ID, nil, nil)
	assert.ErrorIs(t, err, appErrors.ErrConstraintViolation)

	_, err = f.campaigns.RecordCampaign(ctx, p.ID, []string{"reddit"}, map[string]model.ChannelOutcome{
		"youtube": {Success: true},
	})
	assert.ErrorIs(t, err, appErrors.ErrConstraintViolation)
}

func TestGetCampaignMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.campaigns.GetCampaign(context.Background(), "nope")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	_, err = f.campaigns.ListCampaigns(context.Background(), "nope", 5)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}
