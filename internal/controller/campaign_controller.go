// internal/controller/campaign_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/service"
)

type CampaignController struct {
	Campaigns *service.CampaignService
}

func (c *CampaignController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID    string                          `json:"product_id"`
		ChannelsUsed []string                        `json:"channels_used"`
		Results      map[string]model.ChannelOutcome `json:"results"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	campaign, err := c.Campaigns.RecordCampaign(r.Context(), body.ProductID, body.ChannelsUsed, body.Results)
	writeResult(w, http.StatusCreated, campaign, err)
}

func (c *CampaignController) Get(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.Campaigns.GetCampaign(r.Context(), chi.URLParam(r, "id"))
	writeResult(w, http.StatusOK, campaign, err)
}
