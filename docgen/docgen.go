// Package docgen renders leave decision documents as PDF files from the
// substitution context built by the manager. Layout follows the paper
// decisions the service issues: header, agent identity, leave bounds and
// the per-year balance breakdown, then a signature block.
package docgen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/rs/zerolog"
)

type Generator struct {
	outDir string
	log    zerolog.Logger
}

func NewGenerator(outDir string, log zerolog.Logger) *Generator {
	return &Generator{outDir: outDir, log: log}
}

// Decision writes the PDF for the given substitution fields under the
// output directory and returns its path. The file name carries the PPR
// and the generation date so successive decisions never overwrite.
func (g *Generator) Decision(fields map[string]string) (string, error) {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	name := fmt.Sprintf("decision_%s_%s.pdf",
		sanitize(fields["ppr"]), time.Now().Format("20060102_150405"))
	path := filepath.Join(g.outDir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create decision file: %w", err)
	}
	defer f.Close()

	if err := g.Render(f, fields); err != nil {
		os.Remove(path)
		return "", err
	}
	g.log.Info().Str("path", path).Str("ppr", fields["ppr"]).Msg("decision generated")
	return path, nil
}

// Render writes the decision PDF to w. Used directly by the HTTP
// download handler.
func (g *Generator) Render(w io.Writer, fields map[string]string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252; the translator keeps the French accents.
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("ROYAUME DU MAROC"), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, tr("Service des Ressources Humaines"), "", 1, "C", false, 0, "")
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("DÉCISION DE CONGÉ"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(55, 8, tr(label))
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(0, 8, tr(value), "", "L", false)
	}

	line("Nom et prénom :", fields["nom_complet"])
	line("Grade :", fields["grade"])
	line("N° PPR :", fields["ppr"])
	line("Nature du congé :", fields["type_conge"])
	line("Du :", fields["date_debut"])
	line("Au :", fields["date_fin"])
	line("Nombre de jours :", fields["jours_pris"])
	if fields["details_solde"] != "" {
		line("Imputation :", fields["details_solde"])
	}
	line("Date de reprise :", fields["date_reprise"])

	pdf.Ln(15)
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6,
		tr(fmt.Sprintf("Fait le %s", fields["date_aujourdhui"])), "", 1, "R", false, 0, "")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 6, tr("Le Chef du Service"), "", 1, "R", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("failed to render decision: %w", err)
	}
	return nil
}

// sanitize keeps file names safe when the PPR comes from user input.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
