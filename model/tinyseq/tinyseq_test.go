// tinyseq_test.go - Tests fuer Parameter-Anlage, Wachstum und Forward
package tinyseq

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/tokenizer"
)

func newModel(dim int, seed int64) (*Model, *tokenizer.Tokenizer) {
	tok := tokenizer.New()
	return New(tok, ml.NewDevice(), dim, seed), tok
}

func TestDeterministicInit(t *testing.T) {
	a, tokA := newModel(8, 42)
	b, tokB := newModel(8, 42)

	tokA.Encode("hello world", 0)
	tokB.Encode("hello world", 0)

	ha, err := a.EncodeInput(tokA.Encode("hello", 0))
	if err != nil {
		t.Fatal(err)
	}
	hb, err := b.EncodeInput(tokB.Encode("hello", 0))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(ha, hb); diff != "" {
		t.Errorf("gleicher Seed, verschiedene Embeddings (-a +b):\n%s", diff)
	}
}

func TestParametersGrowWithVocabulary(t *testing.T) {
	m, tok := newModel(8, 1)

	tok.Encode("one two", 0)
	if _, err := m.EncodeInput(tok.Encode("one", 0)); err != nil {
		t.Fatal(err)
	}

	var embRows int
	for _, p := range m.Parameters() {
		if p.Name == "emb.weight" {
			embRows = p.Rows
		}
	}

	// neue Tokens aufnehmen und erneut encodieren
	ids := tok.Encode("three four five", 0)
	before := append([]float64(nil), m.Parameters()[0].Value[:8]...)
	if _, err := m.EncodeInput(ids); err != nil {
		t.Fatal(err)
	}

	var grownRows int
	for _, p := range m.Parameters() {
		if p.Name == "emb.weight" {
			grownRows = p.Rows
			// bestehende Zeilen bleiben erhalten
			if diff := cmp.Diff(before, p.Value[:8]); diff != "" {
				t.Errorf("Wachstum veraenderte bestehende Gewichte:\n%s", diff)
			}
		}
	}
	if grownRows <= embRows {
		t.Errorf("Embedding wuchs nicht: %d -> %d Zeilen", embRows, grownRows)
	}
}

func TestStepLogitsShape(t *testing.T) {
	m, tok := newModel(8, 2)
	ids := tok.Encode("the quick brown fox", 0)

	h, err := m.EncodeInput(ids)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 8 {
		t.Fatalf("Hidden-Laenge = %d, erwartet 8", len(h))
	}

	logits := m.StepLogits(h, tokenizer.BOSID)
	if len(logits) != tok.Len() {
		t.Errorf("Logits-Laenge = %d, erwartet Vokabulargroesse %d", len(logits), tok.Len())
	}
	for i, v := range logits {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("Logit %d ist %g", i, v)
		}
	}
}

func TestSetParameterOverridesLazyInit(t *testing.T) {
	m, tok := newModel(4, 3)
	tok.Encode("a b", 0)

	// geladene Koepfe duerfen von BindLabels nicht ueberschrieben werden
	cls := ml.NewParameter("cls.weight", 2, 4)
	for i := range cls.Value {
		cls.Value[i] = float64(i)
	}
	m.SetParameter(cls)
	m.BindLabels(2)

	var found bool
	for _, p := range m.Parameters() {
		if p.Name == "cls.weight" {
			found = true
			if p.Value[3] != 3 {
				t.Errorf("BindLabels ueberschrieb den geladenen Kopf: %v", p.Value)
			}
		}
	}
	if !found {
		t.Fatal("cls.weight fehlt in Parameters()")
	}
}

func TestBindLabelsCreatesHead(t *testing.T) {
	m, _ := newModel(4, 4)
	m.BindLabels(3)

	names := make(map[string]*ml.Parameter)
	for _, p := range m.Parameters() {
		names[p.Name] = p
	}

	w, ok := names["cls.weight"]
	if !ok || w.Rows != 3 || w.Cols != 4 {
		t.Errorf("cls.weight = %+v, erwartet 3x4", w)
	}
	if b, ok := names["cls.bias"]; !ok || b.Cols != 3 {
		t.Errorf("cls.bias fehlt oder hat falsche Form")
	}
}
