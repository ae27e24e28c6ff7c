// internal/controller/read_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/channel-ledger/internal/facade"
)

// ReadController serves the dashboard views.
type ReadController struct {
	Facade *facade.Facade
}

func (c *ReadController) Dashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.Facade.Dashboard(r.Context()))
}

func (c *ReadController) Feed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.Facade.Feed(r.Context()))
}

func (c *ReadController) Stats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.Facade.Stats(r.Context()))
}

func (c *ReadController) PostingActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeJSON(w, facade.Failure(err))
		return
	}
	writeJSON(w, c.Facade.PostingActivity(r.Context(), limit))
}

func (c *ReadController) Funnel(w http.ResponseWriter, r *http.Request) {
	days, err := intParam(r, "days")
	if err != nil {
		writeJSON(w, facade.Failure(err))
		return
	}
	writeJSON(w, c.Facade.FunnelCounts(r.Context(), days))
}
