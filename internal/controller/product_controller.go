// internal/controller/product_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/unclebandit/channel-ledger/internal/model"
	"github.com/unclebandit/channel-ledger/internal/service"
)

type ProductController struct {
	Products  *service.ProductService
	Campaigns *service.CampaignService
}

func (c *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title          string          `json:"title"`
		Niche          string          `json:"niche"`
		SuggestedPrice decimal.Decimal `json:"suggested_price"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	p, err := c.Products.CreateProduct(r.Context(), body.Title, body.Niche, body.SuggestedPrice)
	writeResult(w, http.StatusCreated, p, err)
}

func (c *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	p, err := c.Products.GetProduct(r.Context(), chi.URLParam(r, "id"))
	writeResult(w, http.StatusOK, p, err)
}

func (c *ProductController) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status model.ProductStatus `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	p, err := c.Products.SetProductStatus(r.Context(), chi.URLParam(r, "id"), body.Status)
	writeResult(w, http.StatusOK, p, err)
}

func (c *ProductController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	list, err := c.Campaigns.ListCampaigns(r.Context(), chi.URLParam(r, "id"), limit)
	writeResult(w, http.StatusOK, list, err)
}
