package stub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatchNeedsAllKeywords(t *testing.T) {
	t.Parallel()

	set, err := DefaultFixtures()
	require.NoError(t, err)
	require.Equal(t, "knee-surgery", set.Match("46M, Knee Surgery in Pune").Name)
	require.Equal(t, "default", set.Match("knee pain only").Name)
	require.Equal(t, "dental", set.Match("DENTAL implants").Name)
}

func TestLoadFixturesFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	body := `
default:
  decision: Approved
  justification: fallback
fixtures:
  - name: hip
    keywords: [hip]
    decision: Rejected
    justification: hip
    policy_clauses: [Clause 1]
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	set, err := LoadFixtures(path)
	require.NoError(t, err)
	require.Equal(t, "Rejected", set.Match("hip replacement").Decision)

	res := set.Match("nothing").Result()
	require.Equal(t, "Approved", res.Decision)
	require.NotNil(t, res.PolicyClauses)
	require.Empty(t, res.PolicyClauses)
}

func TestParseFixturesValidation(t *testing.T) {
	t.Parallel()

	_, err := ParseFixtures([]byte("fixtures: []\n"))
	require.ErrorContains(t, err, "default.decision")

	_, err = ParseFixtures([]byte("default: {decision: ok}\nfixtures:\n  - name: x\n    decision: y\n"))
	require.ErrorContains(t, err, "no keywords")

	_, err = ParseFixtures([]byte("default: [\n"))
	require.Error(t, err)
}
