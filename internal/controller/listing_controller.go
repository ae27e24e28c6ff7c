// internal/controller/listing_controller.go
package controller

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/channel-ledger/internal/service"
)

type ListingController struct {
	Listings *service.ListingService
}

func (c *ListingController) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProductID string `json:"product_id"`
		Platform  string `json:"platform"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	l, err := c.Listings.CreateListing(r.Context(), body.ProductID, body.Platform)
	writeResult(w, http.StatusCreated, l, err)
}

func (c *ListingController) Get(w http.ResponseWriter, r *http.Request) {
	l, err := c.Listings.GetListing(r.Context(), chi.URLParam(r, "id"))
	writeResult(w, http.StatusOK, l, err)
}

func (c *ListingController) Publish(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	l, err := c.Listings.MarkPublished(r.Context(), chi.URLParam(r, "id"), body.URL)
	writeResult(w, http.StatusOK, l, err)
}

func (c *ListingController) Fail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	l, err := c.Listings.MarkFailed(r.Context(), chi.URLParam(r, "id"), body.Reason)
	writeResult(w, http.StatusOK, l, err)
}

// Sale accepts the amount as a JSON number or string.
func (c *ListingController) Sale(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Amount json.RawMessage `json:"amount"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	amount, err := service.ParseAmount(rawText(body.Amount))
	if err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	l, err := c.Listings.RecordSale(r.Context(), chi.URLParam(r, "id"), amount)
	writeResult(w, http.StatusOK, l, err)
}

func (c *ListingController) Republish(w http.ResponseWriter, r *http.Request) {
	l, err := c.Listings.Republish(r.Context(), chi.URLParam(r, "id"))
	writeResult(w, http.StatusCreated, l, err)
}
