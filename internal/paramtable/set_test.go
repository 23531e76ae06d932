package paramtable

import (
	"math/rand"
	"testing"
)

func baseSet() *Set {
	return &Set{
		TransmissionModifiers: []TransmissionModifierRow{
			{Header: Header{Subpop: "sub1", ModifierName: "npi", Value: 0.5, PerturbSD: 0.1, ValueSupport: Uniform{Lo: 0, Hi: 1}}},
			{Header: Header{Subpop: "sub2", ModifierName: "npi", Value: 0.6, PerturbSD: 0.1, ValueSupport: Uniform{Lo: 0, Hi: 1}}},
			{Header: Header{Subpop: allSubpops, ModifierName: "shared", Value: 0.2, PerturbSD: 0.1, ValueSupport: Uniform{Lo: 0, Hi: 1}}},
		},
	}
}

func TestSetCloneIsIndependent(t *testing.T) {
	s := baseSet()
	clone := s.Clone()
	clone.TransmissionModifiers[0].Value = 99

	if s.TransmissionModifiers[0].Value == 99 {
		t.Errorf("mutating clone affected original")
	}
}

func TestSetSubpopRowsKeepsAllScopedRows(t *testing.T) {
	s := baseSet()
	restricted := s.SubpopRows("sub1")

	if len(restricted.TransmissionModifiers) != 2 {
		t.Fatalf("expected sub1's own row plus the all-scoped row, got %d", len(restricted.TransmissionModifiers))
	}
	for _, r := range restricted.TransmissionModifiers {
		if r.Subpop != "sub1" && r.Subpop != allSubpops {
			t.Errorf("unexpected row leaked into sub1 restriction: %+v", r)
		}
	}
}

func TestSetMergeSubpopOnlyTouchesMatchingRows(t *testing.T) {
	s := baseSet()
	rng := rand.New(rand.NewSource(1))
	proposed := s.Perturb(PerturbConfig{}, rng)

	s.MergeSubpop("sub1", proposed)

	if s.TransmissionModifiers[0].Value != proposed.TransmissionModifiers[0].Value {
		t.Errorf("sub1's row was not merged")
	}
	if s.TransmissionModifiers[1].Value == proposed.TransmissionModifiers[1].Value {
		t.Errorf("sub2's row should be untouched by a sub1 merge (or the test RNG produced a no-op draw)")
	}
}

func TestMergeRowsAlignsByIndexNotFirstMatch(t *testing.T) {
	current := []TransmissionModifierRow{
		{Header: Header{Subpop: "sub1", ModifierName: "m1", Value: 1}},
		{Header: Header{Subpop: "sub1", ModifierName: "m2", Value: 2}},
	}
	proposed := []TransmissionModifierRow{
		{Header: Header{Subpop: "sub1", ModifierName: "m1", Value: 10}},
		{Header: Header{Subpop: "sub1", ModifierName: "m2", Value: 20}},
	}

	out := mergeRows(current, proposed, "sub1", func(r TransmissionModifierRow) string { return r.Subpop })

	if out[0].Value != 10 || out[1].Value != 20 {
		t.Fatalf("merge did not align by index: got %+v", out)
	}
}
