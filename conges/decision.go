package conges

import (
	"context"
	"time"

	"github.com/sigrh/conges/calendar"
)

// Dates in generated documents use the French convention.
const displayDateFormat = "02/01/2006"

// FormatDate renders a date as DD/MM/YYYY, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(displayDateFormat)
}

// DecisionContext builds the plain key->string substitution map the
// document generator consumes: agent identity, leave bounds, day count,
// the per-year deduction breakdown and the return-to-work date.
func (m *Manager) DecisionContext(ctx context.Context, leaveID string) (map[string]string, error) {
	rec, err := m.store.Leave(ctx, leaveID)
	if err != nil {
		return nil, err
	}
	agent, err := m.store.Agent(ctx, rec.AgentID)
	if err != nil {
		return nil, err
	}

	holidays := m.cal.HolidaySetForPeriod(ctx, rec.End.Year(), rec.End.Year())
	reprise := calendar.NextWorkingDay(rec.End, holidays)

	return map[string]string{
		"nom_complet":     agent.FullName(),
		"grade":           agent.Grade,
		"ppr":             agent.PPR,
		"type_conge":      rec.Type.Label(),
		"date_debut":      FormatDate(rec.Start),
		"date_fin":        FormatDate(rec.End),
		"date_reprise":    FormatDate(reprise),
		"jours_pris":      rec.Days.String(),
		"details_solde":   rec.Allocation.Breakdown(),
		"date_aujourdhui": FormatDate(m.now()),
	}, nil
}
