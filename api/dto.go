/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication, decoupling the
  domain model from the external contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DATES:
  Request and response dates use ISO (2006-01-02). Dates meant for
  printed documents (date_reprise in decision PDFs) stay DD/MM/YYYY and
  never travel through these types.

AMOUNTS:
  Day counts are decimal strings in JSON ("1.5"), never floats.

SEE ALSO:
  - handlers.go: Uses these types
  - server.go: Route definitions
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sigrh/conges/conges"
	"github.com/sigrh/conges/ledger"
)

const wireDateFormat = "2006-01-02"

// =============================================================================
// AGENTS
// =============================================================================

// AgentDTO represents an agent in API responses.
type AgentDTO struct {
	ID     string `json:"id"`
	Nom    string `json:"nom"`
	Prenom string `json:"prenom"`
	PPR    string `json:"ppr"`
	Grade  string `json:"grade"`
}

func toAgentDTO(a conges.Agent) AgentDTO {
	return AgentDTO{ID: a.ID, Nom: a.Nom, Prenom: a.Prenom, PPR: a.PPR, Grade: a.Grade}
}

// SaveAgentRequest creates or updates an agent. Soldes, when present,
// overwrites the balance of each listed year (import semantics).
type SaveAgentRequest struct {
	Nom    string                  `json:"nom"`
	Prenom string                  `json:"prenom"`
	PPR    string                  `json:"ppr"`
	Grade  string                  `json:"grade"`
	Soldes map[int]decimal.Decimal `json:"soldes,omitempty"`
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO is one (year, remaining) row of an agent's ledger.
type BalanceDTO struct {
	Year      int             `json:"year"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    string          `json:"status"`
}

// BalancesResponse lists the rows plus the spendable total.
type BalancesResponse struct {
	Balances    []BalanceDTO    `json:"balances"`
	TotalActive decimal.Decimal `json:"total_actif"`
}

// CreditRequest grants days to one fiscal year.
type CreditRequest struct {
	Year int             `json:"year"`
	Days decimal.Decimal `json:"days"`
}

// =============================================================================
// LEAVES
// =============================================================================

// LeaveDTO represents a leave record in API responses.
type LeaveDTO struct {
	ID              string                  `json:"id"`
	AgentID         string                  `json:"agent_id"`
	Type            string                  `json:"type"`
	Start           string                  `json:"date_debut"`
	End             string                  `json:"date_fin"`
	Days            decimal.Decimal         `json:"jours"`
	Status          string                  `json:"statut"`
	Justification   string                  `json:"justification,omitempty"`
	InterimID       string                  `json:"interim_id,omitempty"`
	CertificatePath string                  `json:"certificat,omitempty"`
	Allocation      map[int]decimal.Decimal `json:"imputation,omitempty"`
	ReturnDate      string                  `json:"date_reprise,omitempty"`
}

func toLeaveDTO(r conges.LeaveRecord, returnDate time.Time) LeaveDTO {
	dto := LeaveDTO{
		ID:              r.ID,
		AgentID:         r.AgentID,
		Type:            r.Type.Code(),
		Start:           r.Start.Format(wireDateFormat),
		End:             r.End.Format(wireDateFormat),
		Days:            r.Days,
		Status:          string(r.Status),
		Justification:   r.Justification,
		InterimID:       r.InterimID,
		CertificatePath: r.CertificatePath,
	}
	if !r.Allocation.IsZero() {
		dto.Allocation = map[int]decimal.Decimal(r.Allocation)
	}
	if !returnDate.IsZero() {
		dto.ReturnDate = returnDate.Format(wireDateFormat)
	}
	return dto
}

// LeaveRequest creates or replaces a leave. Jours overrides the computed
// day count for exceptional leave only.
type LeaveRequest struct {
	AgentID         string           `json:"agent_id"`
	Type            string           `json:"type"`
	Start           string           `json:"date_debut"`
	End             string           `json:"date_fin"`
	Justification   string           `json:"justification"`
	InterimID       string           `json:"interim_id"`
	CertificatePath string           `json:"certificat"`
	Jours           *decimal.Decimal `json:"jours,omitempty"`
}

// =============================================================================
// HOLIDAYS AND DASHBOARD
// =============================================================================

// HolidayDTO is a custom non-working day.
type HolidayDTO struct {
	ID    string `json:"id"`
	Date  string `json:"date"`
	Label string `json:"label"`
}

// CreateHolidayRequest adds a custom holiday.
type CreateHolidayRequest struct {
	Date  string `json:"date"`
	Label string `json:"label"`
}

// OnLeaveDTO is one dashboard row: who is out and when they are back.
type OnLeaveDTO struct {
	Agent      AgentDTO `json:"agent"`
	Type       string   `json:"type"`
	End        string   `json:"date_fin"`
	ReturnDate string   `json:"date_reprise"`
}

func toOnLeaveDTO(o conges.OnLeave) OnLeaveDTO {
	return OnLeaveDTO{
		Agent:      toAgentDTO(o.Agent),
		Type:       o.Type.Code(),
		End:        o.End.Format(wireDateFormat),
		ReturnDate: o.ReturnDate.Format(wireDateFormat),
	}
}

// =============================================================================
// ADMIN
// =============================================================================

// CloseExerciseRequest rolls the fiscal year forward.
type CloseExerciseRequest struct {
	NewYear int `json:"new_year"`
}

// MergeResponse reports how many agents had rows folded.
type MergeResponse struct {
	Agents int `json:"agents"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func balanceDTOs(rows []ledger.YearlyBalance) []BalanceDTO {
	out := make([]BalanceDTO, len(rows))
	for i, b := range rows {
		out[i] = BalanceDTO{Year: b.Year, Remaining: b.Remaining, Status: string(b.Status)}
	}
	return out
}
