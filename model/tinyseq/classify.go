// classify.go - Klassifikationskopf fuer Text und Bild-Features
//
// Dieses Modul enthaelt:
// - ClassificationStep/ClassLogits: Text-Klassifikation
// - ImageStep/ImageLogits: Klassifikation vorverarbeiteter Bild-Features
//
// Text: logits = W_cls h + b mit h = Mean-Pooling der Eingabe.
// Bild: h = tanh(W_img f), danach derselbe Kopf.
package tinyseq

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model"
	"github.com/backprop-ai/tune/tokenizer"
)

// classForward berechnet Logits fuer eine gepoolte Repraesentation
func (m *Model) classForward(h, logits []float64) {
	l := m.clsW.Rows
	lv := mat.NewVecDense(l, logits)
	lv.MulVec(mat.NewDense(l, m.dim, m.clsW.Value), mat.NewVecDense(m.dim, h))
	floats.Add(logits, m.clsB.Value)
}

// ClassLogits liefert die Logits ueber den Label-Raum
func (m *Model) ClassLogits(ids []int32) ([]float64, error) {
	if m.clsW == nil {
		return nil, model.ErrNotTrained
	}
	m.ensureText()

	h := make([]float64, m.dim)
	m.pool(ids, h)

	logits := make([]float64, m.clsW.Rows)
	m.classForward(h, logits)
	return logits, nil
}

// ClassificationStep fuehrt forward/backward fuer einen
// Klassifikations-Batch aus. Der Loss ist Cross-Entropy ueber den
// Label-Raum, gemittelt ueber den Batch.
func (m *Model) ClassificationStep(batch *dataset.EncodedBatch, train bool) (float64, error) {
	if m.clsW == nil {
		return 0, model.ErrNotTrained
	}
	m.ensureText()

	l := m.clsW.Rows
	padLen := batch.PadLen
	if padLen < 1 {
		padLen = 1
	}

	act, err := ml.NewTensor(m.dev, batch.Size(), padLen*m.dim+2*l)
	if err != nil {
		return 0, err
	}
	defer act.Release()

	var gCls *mat.Dense
	if train {
		gCls = mat.NewDense(l, m.dim, m.clsW.Grad)
	}

	h := make([]float64, m.dim)
	dh := make([]float64, m.dim)
	logits := make([]float64, l)
	dlogits := make([]float64, l)

	var loss float64
	var count int

	for i, input := range batch.InputIDs {
		label := batch.Labels[i]
		if label < 0 || label >= l {
			return 0, fmt.Errorf("label index %d out of range [0, %d)", label, l)
		}

		n := m.pool(input, h)
		if n == 0 {
			continue
		}

		m.classForward(h, logits)
		loss += ml.CrossEntropy(logits, label, dlogits)
		count++

		if train {
			// dW += dlogits (x) h, db += dlogits
			gCls.RankOne(gCls, 1, mat.NewVecDense(l, dlogits), mat.NewVecDense(m.dim, h))
			floats.Add(m.clsB.Grad, dlogits)

			// dh = W^T dlogits, auf die Eingabe-Embeddings verteilen
			dhv := mat.NewVecDense(m.dim, dh)
			dhv.MulVec(mat.NewDense(l, m.dim, m.clsW.Value).T(), mat.NewVecDense(l, dlogits))

			for _, id := range input {
				if id == tokenizer.PadID {
					continue
				}
				floats.AddScaled(m.emb.GradRow(int(id)), 1/float64(n), dh)
			}
		}
	}

	if count == 0 {
		return 0, nil
	}

	if train {
		floats.Scale(1/float64(count), m.emb.Grad)
		floats.Scale(1/float64(count), m.clsW.Grad)
		floats.Scale(1/float64(count), m.clsB.Grad)
	}

	return loss / float64(count), nil
}

// imageForward projiziert Bild-Features in den Embedding-Raum
func (m *Model) imageForward(features, h []float64) error {
	if len(features) != ImageFeatureDim {
		return fmt.Errorf("image features have length %d, want %d", len(features), ImageFeatureDim)
	}

	hv := mat.NewVecDense(m.dim, h)
	hv.MulVec(mat.NewDense(m.dim, ImageFeatureDim, m.imgW.Value), mat.NewVecDense(ImageFeatureDim, features))
	for i, v := range h {
		h[i] = math.Tanh(v)
	}
	return nil
}

// ImageLogits liefert die Logits fuer ein einzelnes Bild-Feature
func (m *Model) ImageLogits(features []float64) ([]float64, error) {
	if m.clsW == nil {
		return nil, model.ErrNotTrained
	}
	m.ensureImage()

	h := make([]float64, m.dim)
	if err := m.imageForward(features, h); err != nil {
		return nil, err
	}

	logits := make([]float64, m.clsW.Rows)
	m.classForward(h, logits)
	return logits, nil
}

// ImageStep trainiert den Bild-Pfad: h = tanh(W_img f), danach der
// geteilte Klassifikationskopf.
func (m *Model) ImageStep(features [][]float64, labels []int, train bool) (float64, error) {
	if m.clsW == nil {
		return 0, model.ErrNotTrained
	}
	m.ensureImage()

	l := m.clsW.Rows

	act, err := ml.NewTensor(m.dev, len(features), ImageFeatureDim+m.dim+2*l)
	if err != nil {
		return 0, err
	}
	defer act.Release()

	var gCls, gImg *mat.Dense
	if train {
		gCls = mat.NewDense(l, m.dim, m.clsW.Grad)
		gImg = mat.NewDense(m.dim, ImageFeatureDim, m.imgW.Grad)
	}

	h := make([]float64, m.dim)
	dh := make([]float64, m.dim)
	logits := make([]float64, l)
	dlogits := make([]float64, l)

	var loss float64
	var count int

	for i, f := range features {
		label := labels[i]
		if label < 0 || label >= l {
			return 0, fmt.Errorf("label index %d out of range [0, %d)", label, l)
		}

		if err := m.imageForward(f, h); err != nil {
			return 0, err
		}

		m.classForward(h, logits)
		loss += ml.CrossEntropy(logits, label, dlogits)
		count++

		if train {
			gCls.RankOne(gCls, 1, mat.NewVecDense(l, dlogits), mat.NewVecDense(m.dim, h))
			floats.Add(m.clsB.Grad, dlogits)

			dhv := mat.NewVecDense(m.dim, dh)
			dhv.MulVec(mat.NewDense(l, m.dim, m.clsW.Value).T(), mat.NewVecDense(l, dlogits))

			// durch tanh zurueck, dann auf W_img
			for j := range dh {
				dh[j] *= 1 - h[j]*h[j]
			}
			gImg.RankOne(gImg, 1, mat.NewVecDense(m.dim, dh), mat.NewVecDense(ImageFeatureDim, f))
		}
	}

	if count == 0 {
		return 0, nil
	}

	if train {
		floats.Scale(1/float64(count), m.imgW.Grad)
		floats.Scale(1/float64(count), m.clsW.Grad)
		floats.Scale(1/float64(count), m.clsB.Grad)
	}

	return loss / float64(count), nil
}
