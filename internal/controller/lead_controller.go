// internal/controller/lead_controller.go
package controller

import (
	"net/http"

	"github.com/unclebandit/channel-ledger/internal/service"
)

type LeadController struct {
	Funnel *service.FunnelService
}

// Record takes the same (type, detail, source) triple as the lead tools:
// for sale leads detail is the amount and source the description.
func (c *LeadController) Record(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Type   string `json:"type"`
		Detail string `json:"detail"`
		Source string `json:"source"`
	}
	if err := decode(r, &body); err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	lead, err := c.Funnel.RecordLead(r.Context(), body.Type, body.Detail, body.Source)
	writeResult(w, http.StatusCreated, lead, err)
}

func (c *LeadController) List(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit")
	if err != nil {
		writeResult(w, 0, nil, err)
		return
	}
	leads, err := c.Funnel.ListLeads(r.Context(), r.URL.Query().Get("type"), limit)
	writeResult(w, http.StatusOK, leads, err)
}
