// internal/controller/router.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Controllers struct {
	Read      *ReadController
	Products  *ProductController
	Listings  *ListingController
	Leads     *LeadController
	Campaigns *CampaignController
	Health    http.HandlerFunc
}

// NewRouter mounts every route on a chi router behind the given
// middleware.
func NewRouter(c Controllers, middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares...)

	r.Get("/health", c.Health)

	r.Get("/dashboard", c.Read.Dashboard)
	r.Get("/feed", c.Read.Feed)
	r.Get("/stats", c.Read.Stats)
	r.Get("/reports/posting-activity", c.Read.PostingActivity)
	r.Get("/funnel", c.Read.Funnel)

	r.Route("/products", func(r chi.Router) {
		r.Post("/", c.Products.Create)
		r.Get("/{id}", c.Products.Get)
		r.Patch("/{id}/status", c.Products.SetStatus)
		r.Get("/{id}/campaigns", c.Products.ListCampaigns)
	})

	r.Route("/listings", func(r chi.Router) {
		r.Post("/", c.Listings.Create)
		r.Get("/{id}", c.Listings.Get)
		r.Post("/{id}/publish", c.Listings.Publish)
		r.Post("/{id}/fail", c.Listings.Fail)
		r.Post("/{id}/sales", c.Listings.Sale)
		r.Post("/{id}/republish", c.Listings.Republish)
	})

	r.Post("/leads", c.Leads.Record)
	r.Get("/leads", c.Leads.List)

	r.Post("/campaigns", c.Campaigns.Create)
	r.Get("/campaigns/{id}", c.Campaigns.Get)

	return r
}
