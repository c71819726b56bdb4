// Package task - Task-Fassade ueber heterogene Modell-Familien
//
// Dieses Modul enthaelt:
// - Task: polymorphe Fassade mit Finetune und task-spezifischer Inferenz
// - New: Konstruktion mit expliziter Registry (kein ambienter Zustand)
//
// Eine Task-Instanz traegt genau ein Modell. Finetune blockiert bis
// der Trainer Finished erreicht; pro Instanz ist hoechstens ein
// Finetune-Lauf gleichzeitig aktiv. Label-Raum und Tokenizer sind nach
// dem ersten Finetune eingefroren, spaetere Infer-Aufrufe sehen sie
// unveraenderlich.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model"
	"github.com/backprop-ai/tune/train"
)

// Task ist die polymorphe Fassade ueber eine Task-Art.
type Task struct {
	mu sync.Mutex

	kind api.TaskKind
	mdl  model.Model

	// nach dem ersten Finetune gebunden
	labels *LabelSpace
	maxIn  int
	maxOut int

	// beschreibende, vom Aufrufer editierbare Metadaten
	Name        string
	Description string

	result *train.Result
}

// New erstellt eine Task-Fassade fuer die gegebene Art. Das Modell
// muss die zur Art passende Faehigkeit implementieren.
func New(kind api.TaskKind, mdl model.Model) (*Task, error) {
	if !kind.Valid() {
		return nil, api.ConfigurationError{Field: "task", Reason: fmt.Sprintf("unknown task kind %q", kind)}
	}

	switch kind {
	case api.TaskGeneration:
		if _, ok := mdl.(model.Generator); !ok {
			return nil, model.ErrUnsupportedTask
		}
	case api.TaskClassification:
		if _, ok := mdl.(model.Classifier); !ok {
			return nil, model.ErrUnsupportedTask
		}
	case api.TaskVectorisation:
		if _, ok := mdl.(model.Vectorizer); !ok {
			return nil, model.ErrUnsupportedTask
		}
	case api.TaskImageClassification:
		if _, ok := mdl.(model.ImageClassifier); !ok {
			return nil, model.ErrUnsupportedTask
		}
	}

	return &Task{kind: kind, mdl: mdl, labels: NewLabelSpace()}, nil
}

// Kind gibt die Task-Art zurueck
func (t *Task) Kind() api.TaskKind { return t.kind }

// Model gibt das unterliegende Modell zurueck
func (t *Task) Model() model.Model { return t.mdl }

// Labels gibt den gebundenen Label-Raum zurueck (leer fuer
// Generation/Vectorisation)
func (t *Task) Labels() *LabelSpace { return t.labels }

// MaxLengths gibt die gebundenen Encoding-Grenzen zurueck
func (t *Task) MaxLengths() (in, out int) { return t.maxIn, t.maxOut }

// Result gibt das Ergebnis des letzten Finetune-Laufs zurueck
func (t *Task) Result() *train.Result { return t.result }

// Restore bindet Label-Raum und Laengen beim Laden aus einem Bundle
func (t *Task) Restore(labels []string, maxIn, maxOut int) {
	t.labels = FromLabels(labels)
	t.maxIn = maxIn
	t.maxOut = maxOut
	if c, ok := t.mdl.(model.Classifier); ok && t.labels.Len() > 0 {
		c.BindLabels(t.labels.Len())
	}
}

// Finetune passt das Modell an die Examples an. Optionen werden gegen
// die Task-Art validiert; nil waehlt Defaults. Der Aufruf blockiert bis
// der Trainer Finished erreicht oder fatal scheitert.
func (t *Task) Finetune(ctx context.Context, examples []api.Example, opts *api.FinetuneOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	o := api.DefaultFinetuneOptions()
	if opts != nil {
		merged := *opts
		fillDefaults(&merged, o)
		o = merged
	}

	if err := t.validateOptions(&o); err != nil {
		return err
	}
	if len(examples) == 0 {
		return api.ConfigurationError{Field: "examples", Reason: "no training examples provided"}
	}

	strat, err := t.strategy()
	if err != nil {
		return err
	}

	// Label-Raum aus der Union aller Labels des Aufrufs binden,
	// bevor encodet wird
	if err := strat.prepare(examples); err != nil {
		return err
	}

	trainDS, valDS := dataset.New(examples).Split(o.ValidationSplit)
	if valDS.Len() == 0 {
		return api.ConfigurationError{Field: "validation_split", Reason: "validation partition is empty"}
	}

	// Encoder Adapter: tensorisieren baut nebenbei das Vokabular auf
	trainEnc, err := strat.encode(trainDS.Examples, o)
	if err != nil {
		return err
	}
	valEnc, err := strat.encode(valDS.Examples, o)
	if err != nil {
		return err
	}
	t.mdl.Tokenizer().Freeze()
	t.maxIn = o.MaxInputLength
	t.maxOut = o.MaxOutputLength

	valBatches := strat.batches(valEnc, train.MinBatchSize)

	opt := ml.NewAdam(ml.DefaultAdamConfig(o.LearningRate))
	trainer := train.New(train.Config{
		Epochs:       o.Epochs,
		LearningRate: o.LearningRate,
		Patience:     o.Patience,
		BatchSize:    o.BatchSize,
	}, opt, t.mdl.Parameters)

	batchFn := func(size int) ([]*dataset.EncodedBatch, error) {
		return strat.batches(trainEnc, size), nil
	}

	result, err := trainer.Run(ctx, strat, batchFn, valBatches, len(trainEnc))
	if err != nil {
		return err
	}

	t.result = result
	slog.Info("finetune finished", "task", t.kind, "batch_size", result.BatchSize, "epochs", result.Epochs, "best_val_loss", result.BestValLoss)
	return nil
}

// fillDefaults ersetzt Nullwerte durch Defaults
func fillDefaults(o *api.FinetuneOptions, def api.FinetuneOptions) {
	if o.MaxInputLength == 0 {
		o.MaxInputLength = def.MaxInputLength
	}
	if o.MaxOutputLength == 0 {
		o.MaxOutputLength = def.MaxOutputLength
	}
	if o.Epochs == 0 {
		o.Epochs = def.Epochs
	}
	if o.LearningRate == 0 {
		o.LearningRate = def.LearningRate
	}
	if o.ValidationSplit == 0 {
		o.ValidationSplit = def.ValidationSplit
	}
	if o.Patience == 0 {
		o.Patience = def.Patience
	}
}

// validateOptions prueft die Optionen gegen die Task-Art
func (t *Task) validateOptions(o *api.FinetuneOptions) error {
	if o.MaxInputLength < 0 {
		return api.ConfigurationError{Field: "max_input_length", Reason: "must be positive"}
	}
	if o.ValidationSplit < 0 || o.ValidationSplit >= 1 {
		return api.ConfigurationError{Field: "validation_split", Reason: "must be in [0, 1)"}
	}

	switch t.kind {
	case api.TaskGeneration:
		if o.MaxOutputLength < 0 {
			return api.ConfigurationError{Field: "max_output_length", Reason: "must be positive"}
		}
	default:
		// max_output_length ist nur fuer Generation sinnvoll
		if o.MaxOutputLength != api.DefaultFinetuneOptions().MaxOutputLength && o.MaxOutputLength != 0 {
			slog.Debug("ignoring max_output_length", "task", t.kind)
		}
		o.MaxOutputLength = 0
	}
	return nil
}
