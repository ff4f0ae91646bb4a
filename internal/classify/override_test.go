package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/recon-cli/internal/model"
)

func TestOverrides_Lookup(t *testing.T) {
	res, ok := DefaultOverrides.Lookup("DRUB", "PIMENTAO_VERDE")
	require.True(t, ok)
	assert.Equal(t, LabelReviewWeight, res.Label)
	assert.Equal(t, model.StatusReconciled, res.Code)
	assert.Zero(t, res.Difference)

	_, ok = DefaultOverrides.Lookup("DRUB", "TOMATE")
	assert.False(t, ok)

	_, ok = DefaultOverrides.Lookup("COAL", "PIMENTAO_OUTRO")
	assert.False(t, ok)
}

func TestOverrides_FirstHitWins(t *testing.T) {
	o := Overrides{
		{Supplier: "TAIS", FamilyRoot: "ALFACE", Label: "first"},
		{Supplier: "TAIS", FamilyRoot: "ALF", Label: "second"},
	}
	res, ok := o.Lookup("TAIS", "ALFACE")
	require.True(t, ok)
	assert.Equal(t, "first", res.Label)
}

func TestLoadOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	content := `
overrides:
  - supplier: COAL
    family_root: MILHO
    label: "🔵 CONFERIR DUZIAS"
  - supplier: TAIS
    family_root: COUVE
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	got, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Override{Supplier: "COAL", FamilyRoot: "MILHO", Label: "🔵 CONFERIR DUZIAS"}, got[0])
	assert.Equal(t, LabelReviewWeight, got[1].Label)
}

func TestLoadOverrides_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadOverrides(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read overrides")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("overrides: [unclosed"), 0o644))
	_, err = LoadOverrides(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse overrides")

	incomplete := filepath.Join(dir, "incomplete.yaml")
	require.NoError(t, os.WriteFile(incomplete, []byte("overrides:\n  - supplier: DRUB\n"), 0o644))
	_, err = LoadOverrides(incomplete)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs supplier and family_root")
}
