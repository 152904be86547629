/*
handlers.go - HTTP API handlers for the leave management service

PURPOSE:
  Exposes the leave engine via REST. Handles HTTP request/response and
  JSON serialization, delegates every rule to the domain packages.

ENDPOINTS:
  Agents:
    GET    /api/agents                    List (optional ?q= search)
    POST   /api/agents                    Create (optional initial soldes)
    GET    /api/agents/{id}               Get
    PUT    /api/agents/{id}               Update
    DELETE /api/agents/{id}               Delete (cascades)
    GET    /api/agents/{id}/balances      Yearly balances + active total
    POST   /api/agents/{id}/balances/credit  Grant days to a year
    GET    /api/agents/{id}/conges        Leave history

  Leaves:
    POST   /api/conges                    Create (deducts annual leave)
    PUT    /api/conges/{id}               Modify (restore + re-deduct)
    POST   /api/conges/{id}/cancel        Cancel (restore, keep record)
    DELETE /api/conges/{id}               Delete (restore if active)
    GET    /api/conges/{id}/decision      Decision document (PDF)
    GET    /api/conges/sans-certificat    Sick leaves missing a certificate

  Holidays:    GET/POST /api/holidays, DELETE /api/holidays/{id}
  Dashboard:   GET /api/dashboard/on-leave?date=
  Admin:       POST /api/admin/expire, POST /api/admin/merge
  Transfer:    GET /api/export/{agents,conges}.csv, POST /api/import/agents

ERROR HANDLING:
  Domain sentinels map to HTTP status:
  - 400: invalid dates, negative amounts, unparseable input
  - 404: agent / leave / holiday not found
  - 409: insufficient balance, duplicate PPR, record not active,
         crediting a retired year
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/sigrh/conges/conges"
	"github.com/sigrh/conges/docgen"
	"github.com/sigrh/conges/ledger"
	"github.com/sigrh/conges/transfer"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Manager *conges.Manager
	Ledger  *ledger.Ledger
	Store   conges.Store
	Docs    *docgen.Generator

	RetentionYears int

	log zerolog.Logger
}

// NewHandler wires the handler with its collaborators.
func NewHandler(manager *conges.Manager, l *ledger.Ledger, store conges.Store,
	docs *docgen.Generator, retentionYears int, log zerolog.Logger) *Handler {
	return &Handler{
		Manager:        manager,
		Ledger:         l,
		Store:          store,
		Docs:           docs,
		RetentionYears: retentionYears,
		log:            log,
	}
}

// =============================================================================
// AGENT HANDLERS
// =============================================================================

// ListAgents returns all agents, filtered by the q search term.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Store.ListAgents(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeDomainError(w, "Failed to list agents", err)
		return
	}
	dtos := make([]AgentDTO, len(agents))
	for i, a := range agents {
		dtos[i] = toAgentDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAgent returns one agent.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.Store.Agent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentDTO(*agent))
}

// CreateAgent creates an agent, optionally with initial yearly balances.
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req SaveAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	agent := conges.Agent{Nom: req.Nom, Prenom: req.Prenom, PPR: req.PPR, Grade: req.Grade}
	if err := h.Manager.SaveAgent(r.Context(), &agent, req.Soldes); err != nil {
		writeDomainError(w, "Failed to create agent", err)
		return
	}
	writeJSON(w, http.StatusCreated, toAgentDTO(agent))
}

// UpdateAgent updates an existing agent in place.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	existing, err := h.Store.Agent(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	var req SaveAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	agent := conges.Agent{ID: existing.ID, Nom: req.Nom, Prenom: req.Prenom, PPR: req.PPR, Grade: req.Grade}
	if err := h.Manager.SaveAgent(ctx, &agent, req.Soldes); err != nil {
		writeDomainError(w, "Failed to update agent", err)
		return
	}
	writeJSON(w, http.StatusOK, toAgentDTO(agent))
}

// DeleteAgent removes an agent and everything attached to it.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.DeleteAgent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete agent", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetBalances lists the agent's yearly rows plus the spendable total.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.Store.Agent(ctx, id); err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	rows, err := h.Store.Balances(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to get balances", err)
		return
	}
	total, err := h.Ledger.TotalActiveBalance(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to total balances", err)
		return
	}
	writeJSON(w, http.StatusOK, BalancesResponse{
		Balances:    balanceDTOs(rows),
		TotalActive: total,
	})
}

// CreditBalance grants days to one fiscal year of the agent.
func (h *Handler) CreditBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.Store.Agent(ctx, id); err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	var req CreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Ledger.CreditYear(ctx, id, req.Year, req.Days); err != nil {
		writeDomainError(w, "Failed to credit balance", err)
		return
	}
	h.log.Info().Str("agent", id).Int("year", req.Year).
		Str("days", req.Days.String()).Msg("balance credited")
	w.WriteHeader(http.StatusNoContent)
}

// ListAgentLeaves returns the agent's leave history with return dates.
func (h *Handler) ListAgentLeaves(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if _, err := h.Store.Agent(ctx, id); err != nil {
		writeDomainError(w, "Failed to get agent", err)
		return
	}
	records, err := h.Store.LeavesForAgent(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to list leaves", err)
		return
	}
	writeJSON(w, http.StatusOK, h.leaveDTOs(r, records))
}

// =============================================================================
// LEAVE HANDLERS
// =============================================================================

// CreateLeave books a leave; annual leave deducts from the ledger.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	input, err := h.parseLeaveRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave request", err)
		return
	}
	rec, err := h.Manager.CreateLeave(r.Context(), input)
	if err != nil {
		writeDomainError(w, "Failed to create leave", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(*rec, h.Manager.ReturnDate(r.Context(), rec.End)))
}

// UpdateLeave replaces a leave's fields, re-running the deduction.
func (h *Handler) UpdateLeave(w http.ResponseWriter, r *http.Request) {
	input, err := h.parseLeaveRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid leave request", err)
		return
	}
	rec, err := h.Manager.ModifyLeave(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		writeDomainError(w, "Failed to modify leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*rec, h.Manager.ReturnDate(r.Context(), rec.End)))
}

// CancelLeave voids a leave and restores its days.
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.CancelLeave(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to cancel leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteLeave removes a leave permanently.
func (h *Handler) DeleteLeave(w http.ResponseWriter, r *http.Request) {
	if err := h.Manager.DeleteLeave(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete leave", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Decision streams the leave decision as a PDF.
func (h *Handler) Decision(w http.ResponseWriter, r *http.Request) {
	fields, err := h.Manager.DecisionContext(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, "Failed to build decision", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="decision_%s.pdf"`, fields["ppr"]))
	if err := h.Docs.Render(w, fields); err != nil {
		// headers are gone; log and give up on this response
		h.log.Error().Err(err).Msg("decision render failed mid-stream")
	}
}

// MissingCertificates lists active sick leaves without a certificate.
func (h *Handler) MissingCertificates(w http.ResponseWriter, r *http.Request) {
	records, err := h.Manager.MissingCertificates(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list missing certificates", err)
		return
	}
	writeJSON(w, http.StatusOK, h.leaveDTOs(r, records))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the custom holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeDomainError(w, "Failed to list holidays", err)
		return
	}
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{ID: hol.ID, Date: hol.Date.Format(wireDateFormat), Label: hol.Label}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a custom holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req CreateHolidayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := time.Parse(wireDateFormat, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if req.Label == "" {
		writeError(w, http.StatusBadRequest, "Label is required", nil)
		return
	}
	id, err := h.Store.AddHoliday(r.Context(), date, req.Label)
	if err != nil {
		writeDomainError(w, "Failed to add holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, HolidayDTO{ID: id, Date: req.Date, Label: req.Label})
}

// DeleteHoliday removes a custom holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// DASHBOARD AND ADMIN
// =============================================================================

// OnLeave lists agents out on the given date (default today) with their
// return-to-work dates.
func (h *Handler) OnLeave(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		var err error
		if date, err = time.Parse(wireDateFormat, raw); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
	}
	out, err := h.Manager.AgentsOnLeaveAsOf(r.Context(), date)
	if err != nil {
		writeDomainError(w, "Failed to list agents on leave", err)
		return
	}
	dtos := make([]OnLeaveDTO, len(out))
	for i, o := range out {
		dtos[i] = toOnLeaveDTO(o)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CloseExercise rolls the fiscal year and expires balances that fall out
// of the retention window.
func (h *Handler) CloseExercise(w http.ResponseWriter, r *http.Request) {
	var req CloseExerciseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.NewYear < 2000 || req.NewYear > 2200 {
		writeError(w, http.StatusBadRequest, "Implausible year", nil)
		return
	}
	if err := h.Manager.CloseExercise(r.Context(), req.NewYear); err != nil {
		writeDomainError(w, "Failed to close exercise", err)
		return
	}
	h.log.Info().Int("year", req.NewYear).Msg("exercise closed")
	w.WriteHeader(http.StatusNoContent)
}

// MergeExpired folds expired rows into one summary row per agent.
func (h *Handler) MergeExpired(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	agents, err := h.Store.ListAgents(ctx, "")
	if err != nil {
		writeDomainError(w, "Failed to list agents", err)
		return
	}
	for _, a := range agents {
		if err := h.Ledger.MergeExpired(ctx, a.ID); err != nil {
			writeDomainError(w, "Failed to merge expired balances", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, MergeResponse{Agents: len(agents)})
}

// =============================================================================
// TRANSFER HANDLERS
// =============================================================================

// ExportAgentsCSV streams the agent roster with balance columns.
func (h *Handler) ExportAgentsCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agents.csv"`)
	year := h.Manager.FiscalYear(ctx)
	if err := transfer.ExportAgents(ctx, h.Store, year, h.RetentionYears, w); err != nil {
		h.log.Error().Err(err).Msg("agent export failed mid-stream")
	}
}

// ExportLeavesCSV streams every leave record.
func (h *Handler) ExportLeavesCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="conges.csv"`)
	if err := transfer.ExportLeaves(r.Context(), h.Store, w); err != nil {
		h.log.Error().Err(err).Msg("leave export failed mid-stream")
	}
}

// ImportAgentsCSV ingests an agent CSV; any bad line rejects the file.
func (h *Handler) ImportAgentsCSV(w http.ResponseWriter, r *http.Request) {
	report, err := transfer.ImportAgents(r.Context(), h.Store, r.Body)
	if err != nil {
		writeDomainError(w, "Failed to import agents", err)
		return
	}
	if len(report.Errors) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, report)
		return
	}
	h.log.Info().Int("agents", report.Imported).Msg("agents imported")
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) parseLeaveRequest(r *http.Request) (conges.LeaveInput, error) {
	var req LeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return conges.LeaveInput{}, err
	}
	leaveType, err := conges.ParseLeaveType(req.Type)
	if err != nil {
		return conges.LeaveInput{}, err
	}
	start, err := time.Parse(wireDateFormat, req.Start)
	if err != nil {
		return conges.LeaveInput{}, fmt.Errorf("date_debut: %w", err)
	}
	end, err := time.Parse(wireDateFormat, req.End)
	if err != nil {
		return conges.LeaveInput{}, fmt.Errorf("date_fin: %w", err)
	}
	return conges.LeaveInput{
		AgentID:         req.AgentID,
		Type:            leaveType,
		Start:           start,
		End:             end,
		Justification:   req.Justification,
		InterimID:       req.InterimID,
		CertificatePath: req.CertificatePath,
		Days:            req.Jours,
	}, nil
}

// leaveDTOs decorates records with their return-to-work dates.
func (h *Handler) leaveDTOs(r *http.Request, records []conges.LeaveRecord) []LeaveDTO {
	dtos := make([]LeaveDTO, len(records))
	for i, rec := range records {
		dtos[i] = toLeaveDTO(rec, h.Manager.ReturnDate(r.Context(), rec.End))
	}
	return dtos
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain sentinels to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, conges.ErrAgentNotFound),
		errors.Is(err, conges.ErrLeaveNotFound),
		errors.Is(err, conges.ErrHolidayNotFound):
		status = http.StatusNotFound
	case errors.Is(err, conges.ErrInvalidDateRange),
		errors.Is(err, conges.ErrInterimIsSelf),
		errors.Is(err, ledger.ErrInvalidAllocation),
		errors.Is(err, ledger.ErrNegativeCredit):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrYearRetired),
		errors.Is(err, conges.ErrDuplicatePPR),
		errors.Is(err, conges.ErrLeaveNotActive):
		status = http.StatusConflict
	}
	writeError(w, status, message, err)
}
