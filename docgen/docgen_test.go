package docgen_test

import (
	"bytes"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sigrh/conges/docgen"
)

func sampleFields() map[string]string {
	return map[string]string{
		"nom_complet":     "ALAMI Karim",
		"grade":           "Administrateur 2ème grade",
		"ppr":             "100001",
		"type_conge":      "Congé annuel",
		"date_debut":      "04/03/2024",
		"date_fin":        "08/03/2024",
		"date_reprise":    "11/03/2024",
		"jours_pris":      "5",
		"details_solde":   "2 jours au titre de l'année 2023 et 3 jours au titre de l'année 2024",
		"date_aujourdhui": "01/03/2024",
	}
}

func TestRender_ProducesPDF(t *testing.T) {
	g := docgen.NewGenerator(t.TempDir(), zerolog.Nop())

	var buf bytes.Buffer
	require.NoError(t, g.Render(&buf, sampleFields()))

	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")), "missing PDF magic")
	assert.Greater(t, buf.Len(), 500)
}

func TestDecision_WritesFileNamedAfterPPR(t *testing.T) {
	dir := t.TempDir()
	g := docgen.NewGenerator(dir, zerolog.Nop())

	path, err := g.Decision(sampleFields())

	require.NoError(t, err)
	assert.Contains(t, path, "decision_100001_")
	info, statErr := os.Stat(path)
	require.NoError(t, statErr)
	assert.Greater(t, info.Size(), int64(500))
}

func TestDecision_SanitizesHostilePPR(t *testing.T) {
	dir := t.TempDir()
	g := docgen.NewGenerator(dir, zerolog.Nop())
	fields := sampleFields()
	fields["ppr"] = "../evil/ppr"

	path, err := g.Decision(fields)

	require.NoError(t, err)
	assert.NotContains(t, path, "..")
	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1)
}
