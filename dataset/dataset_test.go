// dataset_test.go - Tests fuer Split, Pad und Chunks
package dataset

import (
	"fmt"
	"testing"

	"github.com/backprop-ai/tune/api"
)

func examples(n int) []api.Example {
	out := make([]api.Example, n)
	for i := range out {
		out[i] = api.Example{Input: fmt.Sprintf("example %d", i)}
	}
	return out
}

func TestSplit(t *testing.T) {
	cases := []struct {
		total     int
		fraction  float64
		wantTrain int
		wantVal   int
	}{
		{10, 0.1, 9, 1},
		{10, 0.2, 8, 2},
		{100, 0.1, 90, 10},
		// Validierung hat immer mindestens ein Example ab zwei Examples
		{2, 0.1, 1, 1},
		{3, 0.01, 2, 1},
		// fraction <= 0 faellt auf 0.1 zurueck
		{10, 0, 9, 1},
	}

	for _, c := range cases {
		train, val := New(examples(c.total)).Split(c.fraction)
		if train.Len() != c.wantTrain || val.Len() != c.wantVal {
			t.Errorf("Split(%d, %g) = %d/%d, erwartet %d/%d",
				c.total, c.fraction, train.Len(), val.Len(), c.wantTrain, c.wantVal)
		}
	}
}

func TestSplitDeterministic(t *testing.T) {
	ds := New(examples(20))

	_, val1 := ds.Split(0.25)
	_, val2 := ds.Split(0.25)

	if val1.Examples[0].Input != val2.Examples[0].Input {
		t.Error("Split ist nicht deterministisch")
	}

	// positionsbasiert: Validierung sind die letzten Examples
	if val1.Examples[len(val1.Examples)-1].Input != "example 19" {
		t.Errorf("Validierung endet mit %q, erwartet das letzte Example", val1.Examples[len(val1.Examples)-1].Input)
	}
}

func TestPad(t *testing.T) {
	seqs := [][]int32{
		{5, 6, 7},
		{5},
		{5, 6, 7, 8, 9},
	}

	padLen := Pad(seqs, 0)
	if padLen != 5 {
		t.Fatalf("Pad-Laenge = %d, erwartet 5", padLen)
	}

	for i, s := range seqs {
		if len(s) != padLen {
			t.Errorf("Sequenz %d hat Laenge %d nach Pad", i, len(s))
		}
	}
	if seqs[1][1] != 0 || seqs[1][4] != 0 {
		t.Errorf("Padding-Werte falsch: %v", seqs[1])
	}
}

func TestChunks(t *testing.T) {
	cases := []struct {
		total, n int
		want     int
	}{
		{10, 2, 5},
		{10, 3, 4},
		{1, 4, 1},
		{0, 4, 0},
	}

	for _, c := range cases {
		chunks := Chunks(c.total, c.n)
		if len(chunks) != c.want {
			t.Errorf("Chunks(%d, %d) = %d Batches, erwartet %d", c.total, c.n, len(chunks), c.want)
			continue
		}

		var covered int
		for _, ch := range chunks {
			covered += ch[1] - ch[0]
		}
		if covered != c.total {
			t.Errorf("Chunks(%d, %d) deckt %d Examples ab", c.total, c.n, covered)
		}
	}
}
