package handler

import (
	"net/http"

	"github.com/unclebandit/channel-ledger/internal/facade"
)

// Health runs the façade probes and reports 200 or 503.
func Health(f *facade.Facade) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, f.Health(r.Context()))
	}
}
