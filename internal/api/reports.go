package api

import (
	"net/http"

	"github.com/flowbit/flowbit/internal/analytics"
)

type intentResponse struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	SQL      string   `json:"sql"`
	Default  bool     `json:"default"`
}

func handleListIntents(deps Dependencies, w http.ResponseWriter, _ *http.Request) {
	templates := deps.Resolver.Catalog().Templates()
	items := make([]intentResponse, 0, len(templates))
	for _, template := range templates {
		keywords := template.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		items = append(items, intentResponse{
			Name:     template.Name,
			Keywords: keywords,
			SQL:      template.SQL,
			Default:  template.IsDefault(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"intents": items})
}

func handleStats(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Reports == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "REPORTS_NOT_CONFIGURED", "reports are not configured", false, nil)
		return
	}
	stats, err := deps.Reports.Stats(r.Context())
	if err != nil {
		writeQueryError(r.Context(), w, deps.Logger, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func handleTopVendors(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Reports == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "REPORTS_NOT_CONFIGURED", "reports are not configured", false, nil)
		return
	}
	vendors, err := deps.Reports.TopVendors(r.Context())
	if err != nil {
		writeQueryError(r.Context(), w, deps.Logger, "top_vendors", err)
		return
	}
	if vendors == nil {
		vendors = []analytics.VendorSpend{}
	}
	writeJSON(w, http.StatusOK, vendors)
}
