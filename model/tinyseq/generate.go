// generate.go - Generationskopf: konditionales LM ueber das Vokabular
//
// Dieses Modul enthaelt:
// - GenerationStep: forward/backward fuer einen Generation-Batch
// - EncodeInput: Mean-Pooling der Eingabe-Embeddings
// - StepLogits: Logits fuer das naechste Token beim Decoding
//
// Architektur pro Zielposition t:
//
//	z_t = h + E[y_{t-1}], a_t = tanh(z_t), logits_t = W_gen a_t
//
// Der Loss ist Token-Level Cross-Entropy, gemittelt ueber alle
// Nicht-Padding-Positionen des Batches.
package tinyseq

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/tokenizer"
)

// pool berechnet das Mean-Pooling der Embeddings in dst.
// Padding-Tokens werden ignoriert. Gibt die Anzahl gepoolter Tokens
// zurueck; 0 bedeutet leere Eingabe.
func (m *Model) pool(ids []int32, dst []float64) int {
	for i := range dst {
		dst[i] = 0
	}

	var n int
	for _, id := range ids {
		if id == tokenizer.PadID {
			continue
		}
		floats.Add(dst, m.emb.Row(int(id)))
		n++
	}
	if n > 0 {
		floats.Scale(1/float64(n), dst)
	}
	return n
}

// EncodeInput berechnet die gepoolte Repraesentation einer Eingabe
func (m *Model) EncodeInput(ids []int32) ([]float64, error) {
	m.ensureText()

	h := make([]float64, m.dim)
	m.pool(ids, h)
	return h, nil
}

// StepLogits liefert die Logits fuer das naechste Token
func (m *Model) StepLogits(hidden []float64, prev int32) []float64 {
	z := make([]float64, m.dim)
	copy(z, hidden)
	floats.Add(z, m.emb.Row(int(prev)))
	for i, v := range z {
		z[i] = math.Tanh(v)
	}

	v := m.genW.Rows
	logits := make([]float64, v)
	lv := mat.NewVecDense(v, logits)
	lv.MulVec(mat.NewDense(v, m.dim, m.genW.Value), mat.NewVecDense(m.dim, z))
	return logits
}

// GenerationStep fuehrt einen Optimierungsschritt (ohne Optimizer-
// Update) fuer einen Generation-Batch aus. Bei train=false wird nur
// der Loss berechnet. Der Gradient landet in den Parametern; die
// Skalierung ist 1/Anzahl der Zielpositionen.
func (m *Model) GenerationStep(batch *dataset.EncodedBatch, train bool) (float64, error) {
	m.ensureText()

	v := m.emb.Rows
	padLen := batch.PadLen
	if padLen < 1 {
		padLen = 1
	}

	// Aktivierungen laufen durch das Geraetebudget, damit der
	// Batch-Size-Tuner echte OOM-Signale bekommt
	act, err := ml.NewTensor(m.dev, batch.Size(), padLen*m.dim+2*v)
	if err != nil {
		return 0, err
	}
	defer act.Release()

	wGen := mat.NewDense(v, m.dim, m.genW.Value)
	var gGen *mat.Dense
	if train {
		gGen = mat.NewDense(v, m.dim, m.genW.Grad)
	}

	h := make([]float64, m.dim)
	z := make([]float64, m.dim)
	da := make([]float64, m.dim)
	dh := make([]float64, m.dim)
	logits := make([]float64, v)
	dlogits := make([]float64, v)

	var loss float64
	var tokens int

	for i, input := range batch.InputIDs {
		n := m.pool(input, h)
		if n == 0 {
			continue
		}

		for i := range dh {
			dh[i] = 0
		}

		prev := tokenizer.BOSID
		for _, y := range batch.TargetIDs[i] {
			if y == tokenizer.PadID {
				break
			}

			copy(z, h)
			floats.Add(z, m.emb.Row(int(prev)))
			for j, val := range z {
				z[j] = math.Tanh(val)
			}

			lv := mat.NewVecDense(v, logits)
			lv.MulVec(wGen, mat.NewVecDense(m.dim, z))

			loss += ml.CrossEntropy(logits, int(y), dlogits)
			tokens++

			if train {
				// dW += dlogits (x) a
				gGen.RankOne(gGen, 1, mat.NewVecDense(v, dlogits), mat.NewVecDense(m.dim, z))

				// da = W^T dlogits, dz = da * (1 - a^2)
				dav := mat.NewVecDense(m.dim, da)
				dav.MulVec(wGen.T(), mat.NewVecDense(v, dlogits))

				gPrev := m.emb.GradRow(int(prev))
				for j := range da {
					dz := da[j] * (1 - z[j]*z[j])
					gPrev[j] += dz
					dh[j] += dz
				}
			}

			prev = y
		}

		if train {
			// Pooling-Gradient auf die Eingabe-Embeddings verteilen
			for _, id := range input {
				if id == tokenizer.PadID {
					continue
				}
				floats.AddScaled(m.emb.GradRow(int(id)), 1/float64(n), dh)
			}
		}
	}

	if tokens == 0 {
		return 0, nil
	}

	if train {
		floats.Scale(1/float64(tokens), m.emb.Grad)
		floats.Scale(1/float64(tokens), m.genW.Grad)
	}

	return loss / float64(tokens), nil
}
