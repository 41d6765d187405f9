package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
saturation:
  max_clauses: 40
loop_iterations: 2
exclude_dirs:
  - legacy
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 40, cfg.Saturation.MaxClauses)
	assert.Equal(t, 25, cfg.Saturation.MaxIterations)
	assert.Equal(t, 2, cfg.LoopIterations)
	assert.Equal(t, []string{"legacy"}, cfg.ExcludeDirs)
	assert.Equal(t, 256, cfg.Formula.MaxDisjunctionProduct)
}

func TestLoadRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "broken yaml", content: "saturation: [1"},
		{name: "negative limit", content: "saturation:\n  max_clauses: -1\n"},
		{name: "no loop passes", content: "loop_iterations: 0\n"},
		{name: "unknown level", content: "min_level: loud\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(tc.content), 0644))

			_, err := Load(dir)
			assert.Error(t, err)
		})
	}
}
