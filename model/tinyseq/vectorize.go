// vectorize.go - Vektorisierung: Mean-Pooling mit Kosinus-Regression
//
// Dieses Modul enthaelt:
// - Vector: Embedding-Vektor einer Eingabe
// - VectorisationStep: Regression des Kosinus auf den Ziel-Score
//
// Loss pro Paar: (cos(u, v) - score)^2 mit u, v als gepoolte
// Embeddings der beiden Texte. Paare mit Null-Vektoren tragen per
// Definition cos = 0 bei und erhalten keinen Gradienten.
package tinyseq

import (
	"gonum.org/v1/gonum/floats"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/tokenizer"
)

// Vector liefert den Embedding-Vektor einer Eingabe
func (m *Model) Vector(ids []int32) ([]float64, error) {
	m.ensureText()

	h := make([]float64, m.dim)
	m.pool(ids, h)
	return h, nil
}

// cosGrad schreibt d cos(u,v) / d u nach dst
func cosGrad(u, v []float64, cos, normU, normV float64, dst []float64) {
	for i := range dst {
		dst[i] = v[i]/(normU*normV) - cos*u[i]/(normU*normU)
	}
}

// VectorisationStep fuehrt forward/backward fuer einen
// Vectorisation-Batch aus.
func (m *Model) VectorisationStep(batch *dataset.EncodedBatch, train bool) (float64, error) {
	m.ensureText()

	padLen := batch.PadLen
	if padLen < 1 {
		padLen = 1
	}

	act, err := ml.NewTensor(m.dev, batch.Size(), 2*padLen*m.dim)
	if err != nil {
		return 0, err
	}
	defer act.Release()

	u := make([]float64, m.dim)
	v := make([]float64, m.dim)
	du := make([]float64, m.dim)
	dv := make([]float64, m.dim)

	var loss float64
	var count int

	for i, input := range batch.InputIDs {
		nu := m.pool(input, u)
		uVec := append([]float64(nil), u...)

		nv := m.pool(batch.PairIDs[i], v)

		normU := floats.Norm(uVec, 2)
		normV := floats.Norm(v, 2)

		var cos float64
		if normU > 0 && normV > 0 {
			cos = floats.Dot(uVec, v) / (normU * normV)
		}

		diff := cos - batch.Scores[i]
		loss += diff * diff
		count++

		if !train || normU == 0 || normV == 0 {
			continue
		}

		cosGrad(uVec, v, cos, normU, normV, du)
		cosGrad(v, uVec, cos, normV, normU, dv)
		floats.Scale(2*diff, du)
		floats.Scale(2*diff, dv)

		for _, id := range input {
			if id == tokenizer.PadID {
				continue
			}
			floats.AddScaled(m.emb.GradRow(int(id)), 1/float64(nu), du)
		}
		for _, id := range batch.PairIDs[i] {
			if id == tokenizer.PadID {
				continue
			}
			floats.AddScaled(m.emb.GradRow(int(id)), 1/float64(nv), dv)
		}
	}

	if count == 0 {
		return 0, nil
	}

	if train {
		floats.Scale(1/float64(count), m.emb.Grad)
	}

	return loss / float64(count), nil
}
