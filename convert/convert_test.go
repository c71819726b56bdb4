// convert_test.go - Tests fuer state dict Entfaltung und Tensor-Umpacken
package convert

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
)

func floatTensor(size, stride []int, offset int, data []float32) *pytorch.Tensor {
	return &pytorch.Tensor{
		Size:          size,
		Stride:        stride,
		StorageOffset: offset,
		Source:        &pytorch.FloatStorage{Data: data},
	}
}

func TestRepackRowMajor(t *testing.T) {
	tensor := floatTensor([]int{2, 3}, []int{3, 1}, 0, []float32{1, 2, 3, 4, 5, 6})

	rows, cols, data, err := repack(tensor)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 2 || cols != 3 {
		t.Fatalf("Shape = (%d, %d), erwartet (2, 3)", rows, cols)
	}
	if diff := cmp.Diff([]float32{1, 2, 3, 4, 5, 6}, data); diff != "" {
		t.Errorf("Daten (-want +got):\n%s", diff)
	}
}

func TestRepackColumnMajor(t *testing.T) {
	// die Matrix [[1 2 3] [4 5 6]] spalten-major abgelegt
	tensor := floatTensor([]int{2, 3}, []int{1, 2}, 0, []float32{1, 4, 2, 5, 3, 6})

	rows, cols, data, err := repack(tensor)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 2 || cols != 3 {
		t.Fatalf("Shape = (%d, %d), erwartet (2, 3)", rows, cols)
	}
	if diff := cmp.Diff([]float32{1, 2, 3, 4, 5, 6}, data); diff != "" {
		t.Errorf("Umpacken nach zeilen-major (-want +got):\n%s", diff)
	}
}

func TestRepackBiasVector(t *testing.T) {
	tensor := floatTensor([]int{4}, []int{1}, 0, []float32{1, 2, 3, 4})

	rows, cols, data, err := repack(tensor)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 || cols != 4 {
		t.Errorf("Bias-Shape = (%d, %d), erwartet (1, 4)", rows, cols)
	}
	if len(data) != 4 {
		t.Errorf("Bias-Laenge = %d", len(data))
	}
}

func TestRepackStorageOffset(t *testing.T) {
	tensor := floatTensor([]int{2}, []int{1}, 3, []float32{9, 9, 9, 1, 2})

	_, _, data, err := repack(tensor)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{1, 2}, data); diff != "" {
		t.Errorf("Offset-Fenster (-want +got):\n%s", diff)
	}

	// Fenster ausserhalb des Storage ist ein Fehler
	tensor.StorageOffset = 4
	if _, _, _, err := repack(tensor); err == nil {
		t.Error("Fenster ausserhalb des Storage akzeptiert")
	}
}

func TestRepackRejectsHighRank(t *testing.T) {
	tensor := floatTensor([]int{2, 2, 2}, []int{4, 2, 1}, 0, make([]float32, 8))

	if _, _, _, err := repack(tensor); err == nil {
		t.Error("Rank-3-Tensor akzeptiert")
	}
}

func TestStorageDataDouble(t *testing.T) {
	data, err := storageData(&pytorch.DoubleStorage{Data: []float64{0.5, -1.5}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]float32{0.5, -1.5}, data); diff != "" {
		t.Errorf("DoubleStorage (-want +got):\n%s", diff)
	}
}

func TestStorageDataUnsupported(t *testing.T) {
	if _, err := storageData("not a storage"); err == nil {
		t.Error("unbekannter Storage-Typ akzeptiert")
	}
}

func TestStateDict(t *testing.T) {
	d := types.NewDict()
	d.Set("embedding.weight", floatTensor([]int{2, 2}, []int{2, 1}, 0, []float32{1, 2, 3, 4}))
	d.Set("_metadata", "not a tensor")
	d.Set("lm_head.weight", floatTensor([]int{2, 2}, []int{2, 1}, 0, []float32{5, 6, 7, 8}))

	entries, err := stateDict(d)
	if err != nil {
		t.Fatal(err)
	}

	// Nicht-Tensoren werden uebersprungen
	if len(entries) != 2 {
		t.Fatalf("stateDict lieferte %d Eintraege, erwartet 2", len(entries))
	}
	if entries[0].name != "embedding.weight" || entries[1].name != "lm_head.weight" {
		t.Errorf("Namen = %q, %q", entries[0].name, entries[1].name)
	}
}

func TestStateDictOrderedDict(t *testing.T) {
	// neuere torch.save-Versionen schreiben collections.OrderedDict
	d := types.NewOrderedDict()
	d.Set("embedding.weight", floatTensor([]int{2, 2}, []int{2, 1}, 0, []float32{1, 2, 3, 4}))
	d.Set("_metadata", "not a tensor")
	d.Set("classifier.bias", floatTensor([]int{2}, []int{1}, 0, []float32{5, 6}))

	entries, err := stateDict(d)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 2 {
		t.Fatalf("stateDict lieferte %d Eintraege, erwartet 2", len(entries))
	}
	// Einfuegereihenfolge bleibt erhalten
	if entries[0].name != "embedding.weight" || entries[1].name != "classifier.bias" {
		t.Errorf("Namen = %q, %q", entries[0].name, entries[1].name)
	}
}

func TestStateDictRejectsUnknownRoot(t *testing.T) {
	if _, err := stateDict([]int{1, 2, 3}); err == nil {
		t.Error("unbekannter Wurzel-Typ akzeptiert")
	}
}

func TestReplacements(t *testing.T) {
	cases := map[string]string{
		"embedding.weight":           "emb.weight",
		"embeddings.weight":          "emb.weight",
		"lm_head.weight":             "gen.weight",
		"generation_head.weight":     "gen.weight",
		"classifier.weight":          "cls.weight",
		"classification_head.bias":   "cls.bias",
		"image_projection.weight":    "img.weight",
		"optimizer_state.exp_avg_sq": "optimizer_state.exp_avg_sq",
	}

	for in, want := range cases {
		if got := replacements.Replace(in); got != want {
			t.Errorf("Replace(%q) = %q, erwartet %q", in, got, want)
		}
	}
}
