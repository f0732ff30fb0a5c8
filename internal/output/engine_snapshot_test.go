package output

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rpgo/retirement-cashflow/internal/calculation"
	"github.com/rpgo/retirement-cashflow/internal/config"
)

// TestEngineSnapshot runs a scenario file end to end and pins the ledger CSV.
func TestEngineSnapshot(t *testing.T) {
	calculation.SetNowFunc(func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) })
	defer calculation.SetNowFunc(time.Now)

	parser := config.NewInputParser()
	scenario, _, err := parser.LoadScenario(filepath.Join("testdata", "retiree.yaml"))
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}

	eng := calculation.NewCalculationEngine()
	rows, err := eng.Calculate(context.Background(), scenario)
	if err != nil {
		t.Fatalf("calculate: %v", err)
	}
	if rows[0].Year != 2025 || rows[len(rows)-1].Year != 2034 {
		t.Fatalf("ledger spans %d-%d, want 2025-2034", rows[0].Year, rows[len(rows)-1].Year)
	}

	report := NewProjectionReport(scenario.Name, rows)
	report.RunID = "snapshot"
	data, err := LedgerCSVFormatter{}.Format(report)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	checkGolden(t, filepath.Join("testdata", "engine_snapshot.golden.csv"), data, os.Getenv("UPDATE_GOLDEN") == "1")
}
