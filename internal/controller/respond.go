// internal/controller/respond.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	appErrors "github.com/unclebandit/channel-ledger/internal/errors"
	"github.com/unclebandit/channel-ledger/internal/facade"
)

func writeJSON(w http.ResponseWriter, resp facade.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)
	json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		writeJSON(w, facade.Failure(err))
		return
	}
	resp := facade.Success(data)
	resp.Status = status
	writeJSON(w, resp)
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return appErrors.Wrap(appErrors.KindValidation, err, "invalid body")
	}
	return nil
}

// intParam reads an optional integer query parameter; missing means 0.
func intParam(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.New(appErrors.KindValidation, "%s must be an integer", name)
	}
	return n, nil
}

// rawText turns a JSON string or number into its text.
func rawText(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if unquoted, err := strconv.Unquote(s); err == nil {
		return unquoted
	}
	return s
}
