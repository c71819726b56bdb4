// batch.go - EncodedBatch: tensorisierte Examples fester Groesse
//
// Dieses Modul enthaelt:
// - EncodedBatch: ein Batch mit gemeinsamer Padding-Laenge
// - Pad: rechtsseitiges Padding auf gemeinsame Laenge
package dataset

// EncodedBatch ist eine Gruppe tensorisierter Examples. Alle Sequenzen
// einer Spalte teilen eine Padding-Laenge; welcher der Zielfelder
// belegt ist, haengt von der Task-Art ab.
type EncodedBatch struct {
	InputIDs [][]int32

	// Generation
	TargetIDs [][]int32

	// Classification / ImageClassification
	Labels []int

	// Vectorisation
	PairIDs [][]int32
	Scores  []float64

	// ImageClassification: vorverarbeitete Bild-Features
	Images [][]float64

	// gemeinsame Padding-Laenge der InputIDs
	PadLen int
}

// Size gibt die Batch-Groesse zurueck
func (b *EncodedBatch) Size() int { return len(b.InputIDs) }

// Pad padded alle Sequenzen rechtsseitig mit padID auf die laengste
// Sequenz im Batch und gibt die gemeinsame Laenge zurueck.
func Pad(seqs [][]int32, padID int32) int {
	var maxLen int
	for _, s := range seqs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}

	for i, s := range seqs {
		for len(s) < maxLen {
			s = append(s, padID)
		}
		seqs[i] = s
	}
	return maxLen
}

// Chunks zerlegt Examples-Indizes in Batches der Groesse n.
// Der letzte Batch darf kleiner sein.
func Chunks(total, n int) [][2]int {
	if n <= 0 {
		n = 1
	}
	var out [][2]int
	for start := 0; start < total; start += n {
		end := start + n
		if end > total {
			end = total
		}
		out = append(out, [2]int{start, end})
	}
	return out
}
