// tuner_test.go - Tests fuer die Batch-Size-Suche
package train

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
)

// fakeStepper simuliert ein Geraet, auf das nur Batches bis limit passen
type fakeStepper struct {
	limit int
	dev   *ml.Device
	p     *ml.Parameter
	calls []int
}

func (s *fakeStepper) Step(b *dataset.EncodedBatch, train bool) (float64, error) {
	size := b.Size()
	s.calls = append(s.calls, size)

	if train && s.p != nil {
		s.p.Grad[0] = 1
	}

	if s.dev != nil {
		// Aktivierungen skalieren mit der Batch-Groesse
		n := uint64(size) * 100
		if err := s.dev.Alloc(n); err != nil {
			return 0, fmt.Errorf("step batch %d: %w", size, err)
		}
		s.dev.Free(n)
	}

	if s.limit > 0 && size > s.limit {
		return 0, fmt.Errorf("step batch %d: %w", size, ml.ErrOutOfMemory)
	}
	return 1, nil
}

// makeBatches liefert einen Batch der gewuenschten Groesse, gedeckelt
// auf die Groesse des Trainings-Splits
func makeBatches(total int) BatchFunc {
	return func(size int) ([]*dataset.EncodedBatch, error) {
		if size > total {
			size = total
		}
		ids := make([][]int32, size)
		for i := range ids {
			ids[i] = []int32{4, 5}
		}
		return []*dataset.EncodedBatch{{InputIDs: ids, PadLen: 2}}, nil
	}
}

func probeSetup() (*ml.Adam, []*ml.Parameter) {
	p := ml.NewParameter("w", 1, 2)
	copy(p.Value, []float64{1, 2})
	return ml.NewAdam(ml.DefaultAdamConfig(0.1)), []*ml.Parameter{p}
}

func TestFindBatchSizeDoubles(t *testing.T) {
	opt, params := probeSetup()
	stepper := &fakeStepper{limit: 16}

	got, err := FindBatchSize(context.Background(), stepper, makeBatches(1000), opt, params, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if got != 16 {
		t.Errorf("FindBatchSize = %d, erwartet 16", got)
	}

	// exponentielle Folge ab MinBatchSize, ein Fehlversuch am Ende
	want := []int{2, 4, 8, 16, 32}
	if len(stepper.calls) != len(want) {
		t.Fatalf("Probe-Folge = %v, erwartet %v", stepper.calls, want)
	}
	for i, size := range want {
		if stepper.calls[i] != size {
			t.Errorf("Probe %d = %d, erwartet %d", i, stepper.calls[i], size)
		}
	}
}

func TestFindBatchSizeClampsToSplit(t *testing.T) {
	opt, params := probeSetup()
	stepper := &fakeStepper{}

	got, err := FindBatchSize(context.Background(), stepper, makeBatches(5), opt, params, 5)
	if err != nil {
		t.Fatal(err)
	}
	if got != 5 {
		t.Errorf("FindBatchSize = %d, erwartet Deckel bei Split-Groesse 5", got)
	}
}

func TestFindBatchSizeMinimumFails(t *testing.T) {
	opt, params := probeSetup()
	stepper := &fakeStepper{limit: 1}

	_, err := FindBatchSize(context.Background(), stepper, makeBatches(100), opt, params, 100)
	if err == nil {
		t.Fatal("erwartet Fehler, wenn schon die kleinste Batch-Groesse scheitert")
	}
	if !errors.Is(err, ml.ErrOutOfMemory) {
		t.Errorf("Fehler traegt kein ErrOutOfMemory: %v", err)
	}
}

func TestFindBatchSizeRestoresState(t *testing.T) {
	opt, params := probeSetup()
	before := append([]float64(nil), params[0].Value...)

	// Probe-Steps schreiben Gradienten und fuehren Optimizer-Schritte aus
	stepper := &fakeStepper{limit: 8, p: params[0]}

	if _, err := FindBatchSize(context.Background(), stepper, makeBatches(100), opt, params, 100); err != nil {
		t.Fatal(err)
	}

	for i := range before {
		if params[0].Value[i] != before[i] {
			t.Errorf("Probe-Steps leckten in die Gewichte: %v != %v", params[0].Value, before)
			break
		}
	}
}

func TestFindBatchSizeDeviceAccounting(t *testing.T) {
	opt, params := probeSetup()

	// Budget erlaubt Batches bis 16 (16*100 Bytes)
	dev := ml.NewDeviceWithBudget("probe", 1700)
	stepper := &fakeStepper{dev: dev}

	got, err := FindBatchSize(context.Background(), stepper, makeBatches(1000), opt, params, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if got != 16 {
		t.Errorf("FindBatchSize = %d, erwartet 16", got)
	}

	// der fehlgeschlagene Probe-Step gibt seinen Speicher vollstaendig zurueck
	if used := dev.Used(); used != 0 {
		t.Errorf("Geraetespeicher nach Probe = %d, erwartet 0", used)
	}
}

func TestFindBatchSizeCancel(t *testing.T) {
	opt, params := probeSetup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := FindBatchSize(ctx, &fakeStepper{}, makeBatches(100), opt, params, 100)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("erwartet context.Canceled, bekam %v", err)
	}
}
