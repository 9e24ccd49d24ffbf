package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/delonixservices/crm/internal/app"
	"github.com/delonixservices/crm/internal/domain"
	"github.com/delonixservices/crm/internal/render"
)

const maxBody = 1 << 20

const maxUpload = 16 << 20

type Handlers struct {
	Catalog     *app.CatalogService
	Itineraries *app.ItineraryService
	Proposals   *app.ProposalService
	Leads       *app.LeadService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Get("/v1/destinations/search", h.searchDestinations)
	s.mux.Get("/v1/catalog/hotels", h.listHotels)
	s.mux.Get("/v1/catalog/activities", h.listActivities)

	s.mux.Post("/v1/itineraries/days", h.planDays)
	s.mux.Post("/v1/itineraries", h.submitItinerary)

	s.mux.Get("/v1/proposals", h.listProposals)
	s.mux.Put("/v1/proposals/{id}", h.updateProposal)
	s.mux.Get("/v1/proposals/{id}/view", h.viewProposal)
	s.mux.Get("/v1/proposals/{id}/pdf", h.downloadPDF)
	s.mux.Post("/v1/proposals/{id}/email", h.emailProposal)
	s.mux.Get("/v1/proposals/{id}/documents", h.listDocuments)

	s.mux.Get("/v1/leads", h.listLeads)
	s.mux.Post("/v1/leads", h.createLead)
	s.mux.Put("/v1/leads/{id}", h.updateLead)
	s.mux.Get("/v1/leads/{id}/messages", h.listMessages)
	s.mux.Post("/v1/leads/{id}/messages", h.postMessage)
	s.mux.Post("/v1/leads/import", h.importLeads)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps service errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidDateRange),
		errors.Is(err, domain.ErrInvalidDay):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrGeneration):
		log.Error().Err(err).Str("path", r.URL.Path).Msg("document generation failed")
		writeProblem(w, http.StatusInternalServerError, "Document Generation Failed", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeProblem(w, http.StatusGatewayTimeout, "Timeout", err.Error())
	default:
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("upstream failure")
		writeProblem(w, http.StatusBadGateway, "Upstream Failure", err.Error())
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCacheable answers with 304 when the client already holds this version.
func writeCacheable(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", err.Error())
		return false
	}
	return true
}

func (h *Handlers) searchDestinations(w http.ResponseWriter, r *http.Request) {
	out, err := h.Catalog.SearchCities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) listHotels(w http.ResponseWriter, r *http.Request) {
	cities := r.URL.Query()["city"]
	if len(cities) == 0 {
		writeProblem(w, http.StatusBadRequest, "Missing city", "at least one city parameter is required")
		return
	}
	out, err := h.Catalog.HotelsByCity(r.Context(), cities)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) listActivities(w http.ResponseWriter, r *http.Request) {
	cities := r.URL.Query()["city"]
	if len(cities) == 0 {
		writeProblem(w, http.StatusBadRequest, "Missing city", "at least one city parameter is required")
		return
	}
	out, err := h.Catalog.Activities(r.Context(), cities)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

type daysRequest struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

func (h *Handlers) planDays(w http.ResponseWriter, r *http.Request) {
	var req daysRequest
	if !decodeBody(w, r, &req) {
		return
	}
	d := app.NewDraft()
	if err := d.SetDates(&req.StartDate, &req.EndDate); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": len(d.Activities), "activities": d.Activities})
}

func (h *Handlers) submitItinerary(w http.ResponseWriter, r *http.Request) {
	var c app.Changes
	if !decodeBody(w, r, &c) {
		return
	}
	id, err := h.Itineraries.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/proposals/"+id+"/view")
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (h *Handlers) listProposals(w http.ResponseWriter, r *http.Request) {
	out, err := h.Proposals.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) updateProposal(w http.ResponseWriter, r *http.Request) {
	var c app.Changes
	if !decodeBody(w, r, &c) {
		return
	}
	p, err := h.Itineraries.Update(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handlers) viewProposal(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Proposals.View(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := render.WriteHTML(w, doc); err != nil {
		log.Error().Err(err).Msg("render proposal view failed")
	}
}

func (h *Handlers) downloadPDF(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Proposals.PDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Bytes)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Bytes); err != nil {
		log.Error().Err(err).Msg("failed to write pdf body")
	}
}

func (h *Handlers) emailProposal(w http.ResponseWriter, r *http.Request) {
	var req app.EmailRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.Proposals.Email(r.Context(), chi.URLParam(r, "id"), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": domain.DispatchSent})
}

func (h *Handlers) listDocuments(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}
	out, err := h.Proposals.Documents(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) listLeads(w http.ResponseWriter, r *http.Request) {
	out, err := h.Leads.List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) createLead(w http.ResponseWriter, r *http.Request) {
	var l domain.Lead
	if !decodeBody(w, r, &l) {
		return
	}
	out, err := h.Leads.Create(r.Context(), l)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/leads/"+out.ID)
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) listMessages(w http.ResponseWriter, r *http.Request) {
	out, err := h.Leads.Messages(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCacheable(w, r, out)
}

func (h *Handlers) postMessage(w http.ResponseWriter, r *http.Request) {
	var m domain.LeadMessage
	if !decodeBody(w, r, &m) {
		return
	}
	out, err := h.Leads.PostMessage(r.Context(), chi.URLParam(r, "id"), m)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *Handlers) updateLead(w http.ResponseWriter, r *http.Request) {
	var changes map[string]string
	if !decodeBody(w, r, &changes) {
		return
	}
	l, err := h.Leads.Update(r.Context(), chi.URLParam(r, "id"), changes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handlers) importLeads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Missing file", err.Error())
		return
	}
	defer f.Close()
	out, err := h.Leads.Import(r.Context(), hdr.Filename, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
