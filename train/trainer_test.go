// trainer_test.go - Tests fuer Epoch-Schleife, Early Stop und Checkpoint
package train

import (
	"context"
	"testing"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
)

// scheduleStepper liefert pro Validierungs-Aufruf den naechsten Loss
// aus dem Plan und inkrementiert bei Trainings-Schritten den Parameter
type scheduleStepper struct {
	p        *ml.Parameter
	valLoss  []float64
	valCalls int
}

func (s *scheduleStepper) Step(b *dataset.EncodedBatch, train bool) (float64, error) {
	if train {
		s.p.Value[0]++
		return 1, nil
	}

	loss := s.valLoss[len(s.valLoss)-1]
	if s.valCalls < len(s.valLoss) {
		loss = s.valLoss[s.valCalls]
	}
	s.valCalls++
	return loss, nil
}

func valBatch() []*dataset.EncodedBatch {
	return []*dataset.EncodedBatch{{InputIDs: [][]int32{{4}, {5}}, PadLen: 1}}
}

func newTrainerSetup(cfg Config) (*Trainer, *ml.Parameter) {
	p := ml.NewParameter("w", 1, 1)
	opt := ml.NewAdam(ml.DefaultAdamConfig(cfg.LearningRate))
	params := func() []*ml.Parameter { return []*ml.Parameter{p} }
	return New(cfg, opt, params), p
}

func TestTrainerRunsToFinished(t *testing.T) {
	cfg := Config{Epochs: 3, LearningRate: 0.01, BatchSize: 2}
	trainer, p := newTrainerSetup(cfg)

	if trainer.State() != StateInitialized {
		t.Fatalf("Startzustand = %v", trainer.State())
	}

	// ein Sanity-Aufruf, danach ein Validierungs-Aufruf pro Epoche
	stepper := &scheduleStepper{p: p, valLoss: []float64{1, 0.9, 0.8, 0.7}}

	result, err := trainer.Run(context.Background(), stepper, makeBatches(10), valBatch(), 10)
	if err != nil {
		t.Fatal(err)
	}

	if trainer.State() != StateFinished {
		t.Errorf("Endzustand = %v, erwartet Finished", trainer.State())
	}
	if result.Epochs != 3 {
		t.Errorf("Epochs = %d, erwartet 3", result.Epochs)
	}
	if result.Steps != 3 {
		t.Errorf("Steps = %d, erwartet 3 (ein Batch pro Epoche)", result.Steps)
	}
	if result.BatchSize != 2 {
		t.Errorf("BatchSize = %d, erwartet vorgegebene 2", result.BatchSize)
	}
	if result.BestValLoss != 0.7 {
		t.Errorf("BestValLoss = %g, erwartet 0.7", result.BestValLoss)
	}
}

func TestTrainerEmptyValidation(t *testing.T) {
	trainer, p := newTrainerSetup(Config{Epochs: 1, BatchSize: 2})
	stepper := &scheduleStepper{p: p, valLoss: []float64{1}}

	if _, err := trainer.Run(context.Background(), stepper, makeBatches(10), nil, 10); err == nil {
		t.Fatal("erwartet Fehler bei leerem Validierungs-Split")
	}
}

func TestTrainerEarlyStop(t *testing.T) {
	cfg := Config{Epochs: 10, LearningRate: 0.01, Patience: 2, BatchSize: 2}
	trainer, p := newTrainerSetup(cfg)

	// Sanity, dann beste Epoche zuerst und danach nur Verschlechterung
	stepper := &scheduleStepper{p: p, valLoss: []float64{1, 0.5, 0.6, 0.7, 0.8}}

	result, err := trainer.Run(context.Background(), stepper, makeBatches(10), valBatch(), 10)
	if err != nil {
		t.Fatal(err)
	}

	// Epoche 0 ist die beste, zwei schlechte Epochen danach stoppen
	if result.Epochs != 3 {
		t.Errorf("Epochs = %d, erwartet Early Stop nach 3", result.Epochs)
	}
	if result.BestValLoss != 0.5 {
		t.Errorf("BestValLoss = %g, erwartet 0.5", result.BestValLoss)
	}
}

func TestTrainerRestoresBestCheckpoint(t *testing.T) {
	cfg := Config{Epochs: 4, LearningRate: 0.01, BatchSize: 2}
	trainer, p := newTrainerSetup(cfg)

	// beste Validierung nach der zweiten Epoche, danach Verschlechterung
	stepper := &scheduleStepper{p: p, valLoss: []float64{1, 0.8, 0.4, 0.9, 1.2}}

	if _, err := trainer.Run(context.Background(), stepper, makeBatches(10), valBatch(), 10); err != nil {
		t.Fatal(err)
	}

	// der Parameter stand nach zwei Trainings-Schritten auf 2
	if p.Value[0] != 2 {
		t.Errorf("Parameter nach Run = %g, erwartet Checkpoint-Wert 2", p.Value[0])
	}
}

func TestTrainerCancelAtEpochBoundary(t *testing.T) {
	trainer, p := newTrainerSetup(Config{Epochs: 5, BatchSize: 2})
	stepper := &scheduleStepper{p: p, valLoss: []float64{1, 1, 1}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := trainer.Run(ctx, stepper, makeBatches(10), valBatch(), 10); err == nil {
		t.Fatal("erwartet Abbruch durch Cancellation")
	}
}
