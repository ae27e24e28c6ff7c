package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/model"
)

const campaignSelect = `id, product_id, channels_used, results, created_at`

type CampaignRepository struct {
	pgBase
}

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
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
	results, err := json.Marshal(c.Results)
	if err != nil {
		return appErrors.Wrap(appErrors.KindValidation, err, "encode campaign results")
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `
        INSERT INTO campaigns (id, product_id, channels_used, results, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `
	_, err = r.DB.ExecContext(ctx, query, c.ID, c.ProductID, pq.StringArray(c.ChannelsUsed), results, c.CreatedAt)
	return classify("insert campaign", err)
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + campaignSelect + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("campaign", id)
		}
		return nil, classify("get campaign", err)
	}
	return c, nil
}

func (r *CampaignRepository) List(ctx context.Context, q Query) ([]*model.Campaign, error) {
	if err := q.validate("campaigns", campaignColumns); err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query, args, err := applyQuery(psql.Select(campaignSelect).From("campaigns"), q).ToSql()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindValidation, err, "build campaign query")
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list campaigns", err)
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, classify("scan campaign", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list campaigns", err)
	}
	return campaigns, nil
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var (
		c        model.Campaign
		channels pq.StringArray
		results  []byte
	)
	if err := row.Scan(&c.ID, &c.ProductID, &channels, &results, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ChannelsUsed = []string(channels)
	c.Results = map[string]model.ChannelOutcome{}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &c.Results); err != nil {
			return nil, appErrors.Wrap(appErrors.KindConstraintViolation, err, "campaign %s has malformed results", c.ID)
		}
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
