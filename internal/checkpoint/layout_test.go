package checkpoint

import (
	"strings"
	"testing"
)

func testLayout() Layout {
	return Layout{SetupName: "usa", SEIRScenario: "inference", OutcomeScenario: "med", RunID: "run123"}
}

func TestLayoutIntermediatePathSchema(t *testing.T) {
	l := testLayout()
	path, err := l.Path(VariableLlik, ScopeGlobal, PhaseIntermediate, 3, 2, 5, "parquet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(path, "usa_inference_med") {
		t.Errorf("path missing run root: %s", path)
	}
	if !strings.Contains(path, "000000003.000000002.000000005.run123.llik.parquet") {
		t.Errorf("path missing the expected intermediate filename: %s", path)
	}
}

func TestLayoutFinalPathOmitsBlockAndIteration(t *testing.T) {
	l := testLayout()
	path, err := l.Path(VariableSpar, ScopeGlobal, PhaseFinal, 7, 0, 0, "parquet")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(path, "000000007.run123.spar.parquet") {
		t.Errorf("final path should omit block/iteration: %s", path)
	}
	if strings.Contains(path, "000000000") {
		t.Errorf("final path should not contain a zeroed block/iteration segment: %s", path)
	}
}

func TestLayoutRejectsUnknownVariable(t *testing.T) {
	l := testLayout()
	_, err := l.Path(Variable("bogus"), ScopeGlobal, PhaseIntermediate, 1, 1, 1, "csv")
	if err == nil {
		t.Error("expected an error for an unknown variable")
	}
}

func TestExtSeedingIsAlwaysCSV(t *testing.T) {
	if got := Ext(VariableSeed, "parquet"); got != "csv" {
		t.Errorf("seeding ext = %q, want csv", got)
	}
	if got := Ext(VariableLlik, "parquet"); got != "parquet" {
		t.Errorf("llik ext = %q, want the configured columnar format", got)
	}
}
