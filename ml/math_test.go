// math_test.go - Tests fuer die numerischen Kernels
package ml

import (
	"math"
	"testing"
)

func TestSoftmaxSumsToOne(t *testing.T) {
	cases := [][]float64{
		{0, 0, 0},
		{1, 2, 3},
		{-10, 0, 10},
		{1000, 1000.5, 999},
	}

	for _, logits := range cases {
		probs := append([]float64(nil), logits...)
		Softmax(probs, 1)

		var sum float64
		for _, p := range probs {
			if p < 0 || p > 1 {
				t.Errorf("Softmax(%v) liefert Wert ausserhalb [0,1]: %v", logits, probs)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-9 {
			t.Errorf("Softmax(%v) Summe = %g, erwartet 1", logits, sum)
		}
	}
}

func TestSoftmaxTemperature(t *testing.T) {
	sharp := []float64{1, 2, 3}
	Softmax(sharp, 0.5)

	flat := []float64{1, 2, 3}
	Softmax(flat, 2)

	// niedrigere Temperatur konzentriert die Masse auf das Maximum
	if sharp[2] <= flat[2] {
		t.Errorf("Temperatur 0.5 (%g) sollte schaerfer sein als 2.0 (%g)", sharp[2], flat[2])
	}
}

func TestCrossEntropyGradient(t *testing.T) {
	logits := []float64{0.5, -1.2, 2.0, 0.0}
	grad := make([]float64, len(logits))

	loss := CrossEntropy(logits, 1, grad)
	if loss <= 0 {
		t.Fatalf("Loss = %g, erwartet > 0 fuer unwahrscheinliches Target", loss)
	}

	// Gradient p - onehot summiert zu 0
	var sum float64
	for _, g := range grad {
		sum += g
	}
	if math.Abs(sum) > 1e-9 {
		t.Errorf("Gradienten-Summe = %g, erwartet 0", sum)
	}

	if grad[1] >= 0 {
		t.Errorf("Gradient am Target = %g, erwartet negativ", grad[1])
	}

	// logits bleibt unveraendert
	if logits[2] != 2.0 {
		t.Errorf("CrossEntropy hat logits veraendert: %v", logits)
	}
}

func TestCosine(t *testing.T) {
	u := []float64{1, 2, 3}
	v := []float64{-2, 0.5, 1}

	if got, want := Cosine(u, u), 1.0; math.Abs(got-want) > 1e-9 {
		t.Errorf("Cosine(u, u) = %g, erwartet 1", got)
	}

	// Symmetrie
	if a, b := Cosine(u, v), Cosine(v, u); math.Abs(a-b) > 1e-12 {
		t.Errorf("Cosine ist nicht symmetrisch: %g != %g", a, b)
	}

	// Wertebereich
	if c := Cosine(u, v); c < -1 || c > 1 {
		t.Errorf("Cosine = %g, ausserhalb [-1, 1]", c)
	}

	// Null-Vektor-Regel: Ergebnis 0, kein NaN
	zero := []float64{0, 0, 0}
	if c := Cosine(u, zero); c != 0 {
		t.Errorf("Cosine(u, 0) = %g, erwartet 0", c)
	}
	if c := Cosine(zero, zero); c != 0 || math.IsNaN(c) {
		t.Errorf("Cosine(0, 0) = %g, erwartet 0", c)
	}
}
