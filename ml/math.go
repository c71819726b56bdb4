// math.go - Numerische Kernels fuer Training und Decoding
//
// Dieses Modul enthaelt:
// - Softmax/LogSoftmax: numerisch stabile Varianten
// - CrossEntropy: Loss und Gradient in einem Durchlauf
// - Cosine: Kosinus-Aehnlichkeit mit Null-Vektor-Regel
package ml

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax berechnet softmax(logits / temperature) in place.
// temperature <= 0 wird als 1 behandelt.
func Softmax(logits []float64, temperature float64) {
	if temperature <= 0 {
		temperature = 1
	}

	max := floats.Max(logits)
	var sum float64
	for i, v := range logits {
		logits[i] = math.Exp((v - max) / temperature)
		sum += logits[i]
	}
	floats.Scale(1/sum, logits)
}

// LogSoftmax berechnet log softmax(logits) in place
func LogSoftmax(logits []float64) {
	max := floats.Max(logits)
	var sum float64
	for _, v := range logits {
		sum += math.Exp(v - max)
	}
	lse := max + math.Log(sum)
	for i := range logits {
		logits[i] -= lse
	}
}

// CrossEntropy berechnet -log p[target] und schreibt den Gradienten
// (p - onehot) nach grad. logits bleibt unveraendert, grad muss die
// gleiche Laenge haben.
func CrossEntropy(logits []float64, target int, grad []float64) float64 {
	copy(grad, logits)
	LogSoftmax(grad)

	loss := -grad[target]
	for i := range grad {
		grad[i] = math.Exp(grad[i])
	}
	grad[target] -= 1

	return loss
}

// Cosine berechnet die Kosinus-Aehnlichkeit zweier Vektoren.
// Hat einer der Vektoren Norm 0, ist das Ergebnis 0 (kein Fehler).
func Cosine(u, v []float64) float64 {
	nu := floats.Norm(u, 2)
	nv := floats.Norm(v, 2)
	if nu == 0 || nv == 0 {
		return 0
	}
	return floats.Dot(u, v) / (nu * nv)
}
