// optimizer_test.go - Tests fuer Adam und Snapshot/Restore
package ml

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAdamStepMovesAgainstGradient(t *testing.T) {
	p := NewParameter("w", 1, 3)
	copy(p.Value, []float64{1, 1, 1})
	copy(p.Grad, []float64{1, -1, 0})

	opt := NewAdam(DefaultAdamConfig(0.1))
	opt.Step([]*Parameter{p})

	if p.Value[0] >= 1 {
		t.Errorf("Wert mit positivem Gradienten stieg: %g", p.Value[0])
	}
	if p.Value[1] <= 1 {
		t.Errorf("Wert mit negativem Gradienten fiel: %g", p.Value[1])
	}
	if p.Value[2] != 1 {
		t.Errorf("Wert ohne Gradient bewegte sich: %g", p.Value[2])
	}
}

func TestAdamSnapshotRestore(t *testing.T) {
	p := NewParameter("w", 2, 2)
	copy(p.Value, []float64{1, 2, 3, 4})

	opt := NewAdam(DefaultAdamConfig(0.05))
	params := []*Parameter{p}

	snapshot := opt.Snapshot(params)
	want := append([]float64(nil), p.Value...)

	// mehrere Schritte veraendern Werte und Momente
	for i := 0; i < 3; i++ {
		copy(p.Grad, []float64{1, 1, -1, -1})
		opt.Step(params)
	}
	if diff := cmp.Diff(want, p.Value); diff == "" {
		t.Fatal("Optimizer-Schritte haben die Werte nicht veraendert")
	}

	opt.Restore(snapshot, params)
	if diff := cmp.Diff(want, p.Value); diff != "" {
		t.Errorf("Restore weicht ab (-want +got):\n%s", diff)
	}

	// nach Restore verhaelt sich der Optimizer wie ein frischer
	copy(p.Grad, []float64{1, 0, 0, 0})
	opt.Step(params)
	if p.Value[0] >= want[0] {
		t.Errorf("Schritt nach Restore wirkungslos: %g", p.Value[0])
	}
}

func TestAdamMomentsAfterGrowth(t *testing.T) {
	p := NewParameter("emb", 2, 2)
	opt := NewAdam(DefaultAdamConfig(0.01))

	copy(p.Grad, []float64{1, 1, 1, 1})
	opt.Step([]*Parameter{p})

	// Parameter waechst (Vokabular hat neue Tokens aufgenommen)
	grown := NewParameter("emb", 3, 2)
	copy(grown.Value, p.Value)
	copy(grown.Grad, []float64{1, 1, 1, 1, 1, 1})

	// Momente werden neu angelegt; der Schritt muss alle sechs Werte bewegen
	before := append([]float64(nil), grown.Value...)
	opt.Step([]*Parameter{grown})
	for i := range grown.Value {
		if grown.Value[i] == before[i] {
			t.Errorf("Wert %d nach Wachstums-Schritt unbewegt", i)
		}
	}
}

func TestCopyRestoreParams(t *testing.T) {
	p := NewParameter("w", 1, 2)
	copy(p.Value, []float64{5, 6})

	best := CopyParams([]*Parameter{p})
	p.Value[0] = 99

	RestoreParams(best, []*Parameter{p})
	if p.Value[0] != 5 || p.Value[1] != 6 {
		t.Errorf("RestoreParams = %v, erwartet [5 6]", p.Value)
	}
}
