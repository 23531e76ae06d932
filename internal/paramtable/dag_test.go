package paramtable

import "testing"

func TestBuildDependencyDAGOrdersBaselinesFirst(t *testing.T) {
	baseline := map[string]string{
		"base":   "",
		"scaled": "base",
		"capped": "scaled",
	}

	order, err := BuildDependencyDAG(baseline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	if pos["base"] > pos["scaled"] || pos["scaled"] > pos["capped"] {
		t.Errorf("expected base before scaled before capped, got order %v", order)
	}
}

func TestBuildDependencyDAGDetectsCycle(t *testing.T) {
	baseline := map[string]string{
		"a": "b",
		"b": "c",
		"c": "a",
	}

	_, err := BuildDependencyDAG(baseline)
	if err == nil {
		t.Fatal("expected a cycle error, got nil")
	}
	var depErr *DependencyError
	if !asDependencyError(err, &depErr) {
		t.Fatalf("expected *DependencyError, got %T: %v", err, err)
	}
}

func asDependencyError(err error, target **DependencyError) bool {
	de, ok := err.(*DependencyError)
	if ok {
		*target = de
	}
	return ok
}

func TestBuildDependencyDAGIsDeterministic(t *testing.T) {
	baseline := map[string]string{
		"zeta":  "",
		"alpha": "",
		"mid":   "alpha",
	}

	first, err := BuildDependencyDAG(baseline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := BuildDependencyDAG(baseline)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("length mismatch between runs: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("non-deterministic order: %v vs %v", first, second)
			break
		}
	}
}
