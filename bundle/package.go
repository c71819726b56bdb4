// package.go - Round-Trip-Verifikation beim Packen
//
// Dieses Modul enthaelt:
// - Package: Save + Load + Probe-Inferenz-Vergleich
// - RoundTripVerificationError: terminaler Verifikationsfehler
//
// Gewichte verlieren beim float16-Roundtrip Praezision; der Vergleich
// arbeitet deshalb mit einer Toleranz statt mit Gleichheit. Ein lokal
// fehlgeschlagener Roundtrip wird genau einmal wiederholt, bevor er als
// Fehler gemeldet wird.
package bundle

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"math"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model"
	"github.com/backprop-ai/tune/task"
	"github.com/backprop-ai/tune/tokenizer"
)

// probeTolerance absorbiert den Quantisierungsfehler von float16
const probeTolerance = 5e-2

const probeInput = "the quick brown fox"

// RoundTripVerificationError meldet, dass das gespeicherte Bundle beim
// Wiederladen nicht dieselben Probe-Ergebnisse liefert wie das Modell
// im Speicher.
type RoundTripVerificationError struct {
	Dir    string
	Detail string
	Err    error
}

func (e RoundTripVerificationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bundle %s failed round trip verification: %s: %v", e.Dir, e.Detail, e.Err)
	}
	return fmt.Sprintf("bundle %s failed round trip verification: %s", e.Dir, e.Detail)
}

func (e RoundTripVerificationError) Unwrap() error { return e.Err }

// Package speichert den Task als Bundle und verifiziert das Ergebnis
// durch Wiederladen und Probe-Inferenz. Ein fehlgeschlagener Versuch
// wird einmal wiederholt; schlaegt auch der zweite fehl, bleibt das
// zuletzt geschriebene Bundle zur Analyse liegen.
func Package(ctx context.Context, dir string, t *task.Task) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			slog.Warn("bundle verification failed, retrying", "dir", dir, "error", lastErr)
		}

		if err := Save(dir, t); err != nil {
			return err
		}

		loaded, err := Load(dir, ml.NewDeviceWithBudget("verify", 0))
		if err != nil {
			lastErr = err
			continue
		}

		if err := verify(ctx, t, loaded); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	return RoundTripVerificationError{Dir: dir, Detail: "probe inference mismatch after retry", Err: lastErr}
}

// verify vergleicht Probe-Inferenz des Original-Tasks mit dem
// wiedergeladenen Task
func verify(ctx context.Context, orig, loaded *task.Task) error {
	switch orig.Kind() {
	case api.TaskGeneration:
		return verifyGeneration(orig, loaded)
	case api.TaskClassification:
		return verifyClassification(ctx, orig, loaded)
	case api.TaskVectorisation:
		return verifyVectorisation(ctx, orig, loaded)
	case api.TaskImageClassification:
		return verifyImage(ctx, orig, loaded)
	}
	return fmt.Errorf("unknown task kind %q", orig.Kind())
}

// verifyGeneration vergleicht die Logits des ersten Dekodier-Schritts.
// Ein Vergleich der dekodierten Strings waere zu fragil: die
// Quantisierung kann ein knappes Argmax kippen, ohne dass das Bundle
// kaputt ist.
func verifyGeneration(orig, loaded *task.Task) error {
	maxIn, _ := orig.MaxLengths()

	ids := orig.Model().Tokenizer().Encode(probeInput, maxIn)
	og := orig.Model().(model.Generator)
	lg := loaded.Model().(model.Generator)

	oh, err := og.EncodeInput(ids)
	if err != nil {
		return err
	}
	lh, err := lg.EncodeInput(ids)
	if err != nil {
		return err
	}

	return compare("step logits", og.StepLogits(oh, tokenizer.BOSID), lg.StepLogits(lh, tokenizer.BOSID))
}

func verifyClassification(ctx context.Context, orig, loaded *task.Task) error {
	op, err := orig.Classify(ctx, probeInput, nil)
	if err != nil {
		return err
	}
	lp, err := loaded.Classify(ctx, probeInput, nil)
	if err != nil {
		return err
	}
	return compareProbs(op, lp)
}

func verifyVectorisation(ctx context.Context, orig, loaded *task.Task) error {
	ov, err := orig.Vector(ctx, probeInput)
	if err != nil {
		return err
	}
	lv, err := loaded.Vector(ctx, probeInput)
	if err != nil {
		return err
	}
	return compare("vector", ov, lv)
}

func verifyImage(ctx context.Context, orig, loaded *task.Task) error {
	img := probeImage()
	op, err := orig.ClassifyImage(ctx, img)
	if err != nil {
		return err
	}
	lp, err := loaded.ClassifyImage(ctx, img)
	if err != nil {
		return err
	}
	return compareProbs(op, lp)
}

// probeImage erzeugt ein kleines synthetisches PNG mit Farbverlauf
func probeImage() api.ImageData {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	// Encode auf ein RGBA im Speicher kann nicht scheitern
	png.Encode(&buf, img)
	return api.ImageData(buf.Bytes())
}

func compare(what string, a, b []float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("%s: length %d != %d", what, len(a), len(b))
	}
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > probeTolerance {
			return fmt.Errorf("%s[%d]: %g != %g (diff %g)", what, i, a[i], b[i], d)
		}
	}
	return nil
}

func compareProbs(a, b map[string]float64) error {
	if len(a) != len(b) {
		return fmt.Errorf("probabilities: %d labels != %d labels", len(a), len(b))
	}
	for label, av := range a {
		bv, ok := b[label]
		if !ok {
			return fmt.Errorf("probabilities: label %q missing after reload", label)
		}
		if d := math.Abs(av - bv); d > probeTolerance {
			return fmt.Errorf("probabilities[%s]: %g != %g (diff %g)", label, av, bv, d)
		}
	}
	return nil
}
