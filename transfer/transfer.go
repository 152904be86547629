// Package transfer moves agents and leave records in and out of the
// system as CSV, the exchange format the service uses with its HR
// spreadsheets. Imports are all-or-nothing: a file with any bad line
// changes nothing and comes back with a per-line error report.
package transfer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sigrh/conges/conges"
	"github.com/sigrh/conges/ledger"
)

const soldeColumnPrefix = "solde_"

// LineError pinpoints a rejected import line.
type LineError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// ImportReport summarizes an import run. Errors non-empty means the file
// was rejected wholesale and Imported is zero.
type ImportReport struct {
	Imported int         `json:"imported"`
	Errors   []LineError `json:"errors,omitempty"`
}

// =============================================================================
// EXPORT
// =============================================================================

// ExportAgents writes one line per agent with the balance columns for
// the retention window ending at fiscalYear, plus the active total.
func ExportAgents(ctx context.Context, store conges.Store, fiscalYear, retentionYears int, w io.Writer) error {
	agents, err := store.ListAgents(ctx, "")
	if err != nil {
		return err
	}

	years := make([]int, 0, retentionYears)
	for y := fiscalYear - retentionYears + 1; y <= fiscalYear; y++ {
		years = append(years, y)
	}

	cw := csv.NewWriter(w)
	header := []string{"nom", "prenom", "ppr", "grade"}
	for _, y := range years {
		header = append(header, fmt.Sprintf("%s%d", soldeColumnPrefix, y))
	}
	header = append(header, "total_actif")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, a := range agents {
		balances, err := store.Balances(ctx, a.ID)
		if err != nil {
			return err
		}
		byYear := make(map[int]ledger.YearlyBalance, len(balances))
		total := decimal.Zero
		for _, b := range balances {
			if b.Status == ledger.StatusActive {
				byYear[b.Year] = b
				total = total.Add(b.Remaining)
			}
		}

		row := []string{a.Nom, a.Prenom, a.PPR, a.Grade}
		for _, y := range years {
			row = append(row, byYear[y].Remaining.String())
		}
		row = append(row, total.String())
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write agent row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportLeaves writes every leave record with its agent identity.
func ExportLeaves(ctx context.Context, store conges.Store, w io.Writer) error {
	records, err := store.AllLeaves(ctx)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	header := []string{"ppr", "nom", "prenom", "type", "date_debut", "date_fin", "jours", "statut", "justification"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range records {
		agent, err := store.Agent(ctx, r.AgentID)
		if err != nil {
			return err
		}
		row := []string{
			agent.PPR, agent.Nom, agent.Prenom,
			r.Type.Code(),
			conges.FormatDate(r.Start), conges.FormatDate(r.End),
			r.Days.String(), string(r.Status), r.Justification,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write leave row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// =============================================================================
// IMPORT
// =============================================================================

type importedAgent struct {
	agent  conges.Agent
	soldes map[int]decimal.Decimal
}

// ImportAgents reads an agent CSV (nom, prenom, ppr, grade plus any
// number of solde_YYYY columns) and persists every line in a single
// transaction. Existing agents are matched by PPR and updated. Any
// malformed line rejects the whole file; the report lists every problem
// found, not just the first.
func ImportAgents(ctx context.Context, store conges.Store, r io.Reader) (*ImportReport, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols, soldeYears, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	report := &ImportReport{}
	var parsed []importedAgent
	seenPPR := make(map[string]int)

	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			report.Errors = append(report.Errors, LineError{Line: line, Message: err.Error()})
			continue
		}

		entry, errs := parseAgentLine(record, cols, soldeYears)
		for _, msg := range errs {
			report.Errors = append(report.Errors, LineError{Line: line, Message: msg})
		}
		if len(errs) > 0 {
			continue
		}
		if prev, dup := seenPPR[entry.agent.PPR]; dup {
			report.Errors = append(report.Errors, LineError{
				Line:    line,
				Message: fmt.Sprintf("PPR %s déjà présent ligne %d", entry.agent.PPR, prev),
			})
			continue
		}
		seenPPR[entry.agent.PPR] = line
		parsed = append(parsed, entry)
	}

	if len(report.Errors) > 0 {
		return report, nil
	}

	err = store.WithTx(ctx, func(tx conges.Store) error {
		for i := range parsed {
			entry := &parsed[i]
			existing, err := tx.AgentByPPR(ctx, entry.agent.PPR)
			switch {
			case err == nil:
				entry.agent.ID = existing.ID
			case !errors.Is(err, conges.ErrAgentNotFound):
				return err
			}
			if err := tx.SaveAgent(ctx, &entry.agent); err != nil {
				return err
			}
			for year, amount := range entry.soldes {
				if err := ledger.SetYearIn(ctx, tx, entry.agent.ID, year, amount); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	report.Imported = len(parsed)
	return report, nil
}

// mapHeader resolves column positions. The four identity columns are
// mandatory; every solde_YYYY column found is imported.
func mapHeader(header []string) (map[string]int, map[int]int, error) {
	cols := make(map[string]int, len(header))
	soldeYears := make(map[int]int)
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(name))
		if year, ok := strings.CutPrefix(name, soldeColumnPrefix); ok {
			y, err := strconv.Atoi(year)
			if err != nil {
				return nil, nil, fmt.Errorf("colonne solde invalide %q", header[i])
			}
			soldeYears[y] = i
			continue
		}
		cols[name] = i
	}
	for _, required := range []string{"nom", "prenom", "ppr", "grade"} {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("colonne obligatoire manquante: %s", required)
		}
	}
	return cols, soldeYears, nil
}

func parseAgentLine(record []string, cols map[string]int, soldeYears map[int]int) (importedAgent, []string) {
	field := func(name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	entry := importedAgent{
		agent: conges.Agent{
			Nom:    field("nom"),
			Prenom: field("prenom"),
			PPR:    field("ppr"),
			Grade:  field("grade"),
		},
		soldes: make(map[int]decimal.Decimal, len(soldeYears)),
	}

	var errs []string
	if entry.agent.Nom == "" {
		errs = append(errs, "nom vide")
	}
	if entry.agent.PPR == "" {
		errs = append(errs, "ppr vide")
	}

	for year, i := range soldeYears {
		if i >= len(record) || strings.TrimSpace(record[i]) == "" {
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(record[i]))
		if err != nil {
			errs = append(errs, fmt.Sprintf("solde %d illisible: %q", year, record[i]))
			continue
		}
		if amount.IsNegative() {
			errs = append(errs, fmt.Sprintf("solde %d négatif", year))
			continue
		}
		entry.soldes[year] = amount
	}
	return entry, errs
}
