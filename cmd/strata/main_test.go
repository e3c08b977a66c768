package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/strata/pkg/json"
	"github.com/ajitpratap0/strata/pkg/table"
	"github.com/ajitpratap0/strata/pkg/testutil"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	root := newApp().root()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	require.NoError(t, root.ExecuteContext(context.Background()), out.String())
	return out.String()
}

func writeTable(t *testing.T, tbl *table.Table) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "resale.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, table.Write(f, tbl))
	require.NoError(t, f.Close())
	return path
}

func TestLoadQueryAnalyze(t *testing.T) {
	dataDir := t.TempDir()
	csvPath := writeTable(t, testutil.ResaleTable(t, testutil.ResaleOptions{Rows: 2000, Seed: 3}))

	out := run(t, "load", csvPath, "--data-dir", dataDir, "--chunk-size", "64", "--log-level", "error")
	assert.Contains(t, out, "2000 rows")
	assert.FileExists(t, filepath.Join(dataDir, "compressed", "metadata.txt"))
	assert.FileExists(t, filepath.Join(dataDir, "plain", "metadata.txt"))

	var results []map[string]interface{}
	for _, layout := range []string{"compressed", "plain"} {
		out = run(t, "query", "--data-dir", dataDir, "--layout", layout,
			"--month", "2016-03", "--town", "BEDOK", "--json", "--log-level", "error")
		var res map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(out), &res), out)
		results = append(results, res)
	}
	assert.Equal(t, "zone_pruned", results[0]["path"])
	assert.Equal(t, results[0]["subset_size"], results[1]["subset_size"])
	assert.Equal(t, results[0]["min_price"], results[1]["min_price"])

	csvOut := filepath.Join(t.TempDir(), "result.csv")
	out = run(t, "query", "--data-dir", dataDir, "--month", "2016-03", "--town", "BEDOK",
		"--strategy", "full_scan", "--output", csvOut, "--log-level", "error")
	assert.Contains(t, out, "Minimum Price")
	data, err := os.ReadFile(csvOut)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Year,Month,Town,Category,Value\n2016,03,BEDOK,Minimum Price,")

	out = run(t, "analyze", "--data-dir", dataDir, "--baselines", "zstd", "--log-level", "error")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "zstd")
}

func TestQueryEmptySubset(t *testing.T) {
	dataDir := t.TempDir()
	run(t, "load", writeTable(t, testutil.SampleTable(t)), "--data-dir", dataDir, "--log-level", "error")

	out := run(t, "query", "--data-dir", dataDir, "--month", "2016-04", "--town", "BEDOK", "--log-level", "error")
	assert.Contains(t, out, "0 matching rows")
	assert.Contains(t, out, "No result")
}

func TestQueryRequiresStore(t *testing.T) {
	root := newApp().root()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"query", "--data-dir", t.TempDir(), "--month", "2016-04", "--town", "BEDOK", "--log-level", "error"})
	assert.Error(t, root.ExecuteContext(context.Background()))
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("STRATA_QUERY_AREA_THRESHOLD", "95.5")
	t.Setenv("STRATA_STORE_LAYOUT", "plain")

	a := newApp()
	root := a.root()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", "--data-dir", t.TempDir(), "--log-level", "error"})
	_ = root.ExecuteContext(context.Background())

	require.NotNil(t, a.cfg)
	assert.Equal(t, 95.5, a.cfg.Query.AreaThreshold)
	assert.Equal(t, "plain", a.cfg.Store.Layout)
}

func TestVersion(t *testing.T) {
	assert.Contains(t, run(t, "version"), "Strata v"+version)
}
