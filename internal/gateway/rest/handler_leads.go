package rest

import (
	"bytes"
	"net/http"

	"github.com/leadflow/leadflow/internal/core/gridfilter"
	"github.com/leadflow/leadflow/internal/core/leads"
	"github.com/leadflow/leadflow/internal/export"
	"github.com/leadflow/leadflow/pkg/model"
)

// listQuery holds the raw listing parameters. Paging values stay strings so
// malformed input falls back to defaults instead of failing the request.
type listQuery struct {
	Page        string `schema:"page"`
	Limit       string `schema:"limit"`
	Filters     string `schema:"filters"`
	FilterModel string `schema:"filterModel"`
}

type listResponse struct {
	Success    bool          `json:"success"`
	Data       []*model.Lead `json:"data"`
	Page       int           `json:"page"`
	Limit      int           `json:"limit"`
	Total      int64         `json:"total"`
	TotalPages int64         `json:"totalPages"`
}

type leadResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    *model.Lead `json:"data"`
}

type messageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *Handler) parseListQuery(r *http.Request) (listQuery, error) {
	var q listQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		return q, model.ErrInvalidFilters
	}
	return q, nil
}

// filterSet merges the translated grid model under the explicit filters and
// validates the result.
func (h *Handler) filterSet(q listQuery) (model.FilterSet, error) {
	raw, err := model.ParseFilters(q.Filters)
	if err != nil {
		return nil, err
	}
	if q.FilterModel != "" {
		grid, err := gridfilter.ParseModel(q.FilterModel)
		if err != nil {
			return nil, err
		}
		raw = raw.Merge(gridfilter.Translate(grid))
	}
	return raw.Decode(h.loc)
}

func (h *Handler) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseListQuery(r)
	if err != nil {
		writeLeadError(w, err, "Server error fetching leads")
		return
	}
	filters, err := h.filterSet(q)
	if err != nil {
		writeLeadError(w, err, "Server error fetching leads")
		return
	}

	page, limit := leads.NormalizePaging(q.Page, q.Limit, h.leadsCfg.DefaultLimit, h.leadsCfg.MaxLimit)
	result, err := h.leads.List(r.Context(), leads.ListParams{Page: page, Limit: limit, Filters: filters})
	if err != nil {
		writeLeadError(w, err, "Server error fetching leads")
		return
	}

	data := result.Leads
	if data == nil {
		data = []*model.Lead{}
	}
	writeJSON(w, http.StatusOK, listResponse{
		Success:    true,
		Data:       data,
		Page:       result.Page,
		Limit:      result.Limit,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

func (h *Handler) handleExportLeads(w http.ResponseWriter, r *http.Request) {
	q, err := h.parseListQuery(r)
	if err != nil {
		writeLeadError(w, err, "Server error exporting leads")
		return
	}
	filters, err := h.filterSet(q)
	if err != nil {
		writeLeadError(w, err, "Server error exporting leads")
		return
	}

	rows, err := h.leads.Export(r.Context(), filters)
	if err != nil {
		writeLeadError(w, err, "Server error exporting leads")
		return
	}

	// Rendered in memory so a failure can still produce a JSON error.
	var buf bytes.Buffer
	if err := export.WriteLeads(&buf, rows, h.loc); err != nil {
		writeInternalError(w, err, "Server error exporting leads")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileName(h.now())+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := h.leads.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeLeadError(w, err, "Server error fetching lead")
		return
	}
	writeJSON(w, http.StatusOK, leadResponse{Success: true, Data: lead})
}

func (h *Handler) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var in model.LeadInput
	if !decodeJSON(w, r, &in) {
		return
	}

	lead, err := h.leads.Create(r.Context(), in)
	if err != nil {
		writeLeadError(w, err, "Server error creating lead")
		return
	}
	writeJSON(w, http.StatusCreated, leadResponse{Success: true, Message: "Lead created successfully", Data: lead})
}

func (h *Handler) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var in model.LeadInput
	if !decodeJSON(w, r, &in) {
		return
	}

	lead, err := h.leads.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeLeadError(w, err, "Server error updating lead")
		return
	}
	writeJSON(w, http.StatusOK, leadResponse{Success: true, Message: "Lead updated successfully", Data: lead})
}

func (h *Handler) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := h.leads.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeLeadError(w, err, "Server error deleting lead")
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Lead deleted successfully"})
}
