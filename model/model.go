// Package model - Model-Interface und Faehigkeits-Vertraege
//
// Dieses Paket definiert den Vertrag zwischen Engine und Modell.
// Die Engine behandelt das Modell als opaken Faehigkeits-Anbieter:
// tensorize(text) -> ids, forward(ids) -> logits/hidden-states,
// generate(ids, options) -> ids, detensorize(ids) -> text.
//
// Hauptkomponenten:
// - Model: Basis-Interface aller Modelle
// - Generator/Classifier/Vectorizer/ImageClassifier: Faehigkeiten pro Task-Art
package model

import (
	"errors"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/tokenizer"
)

// Fehler-Definitionen
var (
	ErrUnsupportedTask = errors.New("model does not support this task")
	ErrNotTrained      = errors.New("model has no trained head for this task")
)

// Model ist das Basis-Interface aller Modelle. Parameters liefert die
// trainierbaren Gewichte fuer den Optimizer; Device die Allokations-
// Buchhaltung fuer Probe-Steps.
type Model interface {
	Tokenizer() *tokenizer.Tokenizer
	Device() *ml.Device
	Parameters() []*ml.Parameter
	Dim() int
}

// Generator wird von Modellen implementiert, die autoregressiv
// generieren koennen.
type Generator interface {
	Model

	// GenerationStep fuehrt forward (und bei train backward) fuer einen
	// Generation-Batch aus und liefert den mittleren Token-Loss
	GenerationStep(batch *dataset.EncodedBatch, train bool) (float64, error)

	// EncodeInput berechnet die gepoolte Repraesentation einer Eingabe
	EncodeInput(ids []int32) ([]float64, error)

	// StepLogits liefert die Logits fuer das naechste Token, gegeben
	// die Eingabe-Repraesentation und das vorherige Token
	StepLogits(hidden []float64, prev int32) []float64
}

// Classifier wird von Modellen implementiert, die ueber einen
// endlichen Label-Raum klassifizieren.
type Classifier interface {
	Model

	// BindLabels legt den Klassifikationskopf fuer n Labels an.
	// Der Label-Raum ist danach fuer die Lebensdauer des Modells fix.
	BindLabels(n int)

	// ClassificationStep fuehrt forward/backward fuer einen Batch aus
	ClassificationStep(batch *dataset.EncodedBatch, train bool) (float64, error)

	// ClassLogits liefert die Logits ueber den Label-Raum
	ClassLogits(ids []int32) ([]float64, error)
}

// Vectorizer wird von Modellen implementiert, die Texte auf Vektoren
// fester Laenge abbilden.
type Vectorizer interface {
	Model

	VectorisationStep(batch *dataset.EncodedBatch, train bool) (float64, error)

	// Vector liefert den Embedding-Vektor einer Eingabe
	Vector(ids []int32) ([]float64, error)
}

// ImageClassifier wird von Modellen implementiert, die Bild-Features
// klassifizieren koennen. Die Features kommen aus dem vision-Paket.
type ImageClassifier interface {
	Classifier

	// ImageStep trainiert auf vorverarbeiteten Bild-Features
	ImageStep(features [][]float64, labels []int, train bool) (float64, error)

	// ImageLogits liefert die Logits fuer ein einzelnes Bild-Feature
	ImageLogits(features []float64) ([]float64, error)
}
