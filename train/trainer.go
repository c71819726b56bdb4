// trainer.go - Epoch-Schleife mit Validierung und Checkpointing
//
// Dieses Modul enthaelt:
// - Trainer: fuehrt einen kompletten Finetuning-Lauf aus
// - Config/Result: Konfiguration und Ergebnis eines Laufs
//
// Ablauf: Batch-Size-Probe (falls nicht vorgegeben), ein kurzer
// Validierungs-Sanity-Check, danach pro Epoche Training gefolgt von
// Validierung. Der beste Validierungsstand wird als Checkpoint
// gehalten und am Ende wiederhergestellt.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
)

// sanityBatches ist die Anzahl Validierungs-Batches fuer den
// Sanity-Check vor der ersten Epoche. Shape- und Loss-Fehler sollen
// auffallen, bevor ein ganzer Lauf startet.
const sanityBatches = 2

// Config konfiguriert einen Trainingslauf
type Config struct {
	Epochs       int
	LearningRate float64
	Patience     int

	// BatchSize 0 aktiviert die automatische Suche
	BatchSize int
}

// Result ist das Ergebnis eines abgeschlossenen Laufs
type Result struct {
	BatchSize   int
	Epochs      int
	Steps       int
	BestValLoss float64
	Duration    time.Duration
}

// Trainer fuehrt einen Finetuning-Lauf ueber einen Stepper aus.
// Ein Trainer gehoert zu genau einem Lauf; der Zustand ist nach
// Run abgeschlossen.
type Trainer struct {
	state  State
	opt    *ml.Adam
	params func() []*ml.Parameter
	cfg    Config
}

// New erstellt einen Trainer. params wird als Funktion uebergeben,
// weil Modelle Parameter lazy anlegen (der Klassifikationskopf
// entsteht erst beim Binden des Label-Raums).
func New(cfg Config, opt *ml.Adam, params func() []*ml.Parameter) *Trainer {
	return &Trainer{
		state:  StateInitialized,
		opt:    opt,
		params: params,
		cfg:    cfg,
	}
}

// State gibt den aktuellen Zustand zurueck
func (t *Trainer) State() State { return t.state }

// Run fuehrt den Lauf aus. batches liefert den Trainings-Split in
// gewuenschter Batch-Groesse, validation ist der feste
// Validierungs-Split. Run blockiert bis Finished oder Fehler;
// eine Cancellation greift nur an Epochen-Grenzen.
func (t *Trainer) Run(ctx context.Context, stepper Stepper, batches BatchFunc, validation []*dataset.EncodedBatch, trainSize int) (*Result, error) {
	start := time.Now()

	if len(validation) == 0 {
		return nil, errors.New("validation split is empty")
	}

	batchSize := t.cfg.BatchSize
	if batchSize <= 0 {
		t.state = StateProbingBatchSize
		var err error
		batchSize, err = FindBatchSize(ctx, stepper, batches, t.opt, t.params(), trainSize)
		if err != nil {
			return nil, fmt.Errorf("batch size probe: %w", err)
		}
		slog.Info("probed batch size", "batch_size", batchSize)
	}

	// Sanity-Check: wenige Validierungs-Batches, nur forward
	for i, b := range validation {
		if i >= sanityBatches {
			break
		}
		if _, err := stepper.Step(b, false); err != nil {
			return nil, fmt.Errorf("validation sanity check: %w", err)
		}
	}

	trainBatches, err := batches(batchSize)
	if err != nil {
		return nil, err
	}

	best := math.Inf(1)
	var bestParams ml.BestParams
	var badEpochs, steps, epochs int

	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t.state = StateTraining
		var trainLoss float64
		for _, b := range trainBatches {
			params := t.params()
			t.opt.ZeroGrad(params)

			loss, err := stepper.Step(b, true)
			if err != nil {
				// ausserhalb der Probe ist OOM fatal
				return nil, fmt.Errorf("training step: %w", err)
			}

			t.opt.Step(params)
			trainLoss += loss
			steps++
		}

		t.state = StateValidating
		var valLoss float64
		for _, b := range validation {
			loss, err := stepper.Step(b, false)
			if err != nil {
				return nil, fmt.Errorf("validation step: %w", err)
			}
			valLoss += loss
		}
		valLoss /= float64(len(validation))
		epochs++

		slog.Debug("epoch finished", "epoch", epoch, "train_loss", trainLoss/float64(len(trainBatches)), "val_loss", valLoss)

		if valLoss < best {
			best = valLoss
			bestParams = ml.CopyParams(t.params())
			badEpochs = 0
		} else {
			badEpochs++
			if t.cfg.Patience > 0 && badEpochs >= t.cfg.Patience {
				slog.Info("early stop", "epoch", epoch, "best_val_loss", best)
				break
			}
		}
	}

	if bestParams != nil {
		ml.RestoreParams(bestParams, t.params())
	}

	t.state = StateFinished
	return &Result{
		BatchSize:   batchSize,
		Epochs:      epochs,
		Steps:       steps,
		BestValLoss: best,
		Duration:    time.Since(start),
	}, nil
}
