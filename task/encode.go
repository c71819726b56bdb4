// encode.go - Encoder Adapter: Examples -> EncodedBatch
//
// Dieses Modul enthaelt:
// - strategy: {encode, batches, Step} pro Task-Art
// - die vier Strategien (Generation, Classification, Vectorisation,
//   ImageClassification)
//
// Der Adapter besitzt die Padding- und Truncation-Policy: Eingaben
// werden auf max_input_length beschnitten (nie abgelehnt) und
// innerhalb eines Batches rechtsseitig auf gemeinsame Laenge gepadded.
// Eine leere Eingabe ist dagegen ein Konfigurationsfehler.
package task

import (
	"fmt"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/model"
	"github.com/backprop-ai/tune/tokenizer"
	"github.com/backprop-ai/tune/vision"
)

// encoded ist ein tensorisiertes Example vor dem Batching
type encoded struct {
	in    []int32
	out   []int32
	pair  []int32
	label int
	score float64
	img   []float64
}

// strategy buendelt Encode-, Batch- und Loss-Verhalten einer Task-Art.
// Step implementiert [train.Stepper].
type strategy interface {
	// prepare validiert alle Examples und bindet task-weite Zustaende
	// (Label-Raum) aus der Union des Trainingsaufrufs
	prepare(examples []api.Example) error

	// encode tensorisiert Examples; Truncation auf die Maximallaengen
	encode(examples []api.Example, o api.FinetuneOptions) ([]encoded, error)

	// batches gruppiert encodete Examples in Batches der Groesse size
	batches(enc []encoded, size int) []*dataset.EncodedBatch

	Step(b *dataset.EncodedBatch, train bool) (float64, error)
}

// strategy waehlt die Strategie zur Task-Art
func (t *Task) strategy() (strategy, error) {
	switch t.kind {
	case api.TaskGeneration:
		return &genStrategy{mdl: t.mdl.(model.Generator)}, nil
	case api.TaskClassification:
		return &clsStrategy{mdl: t.mdl.(model.Classifier), labels: t.labels}, nil
	case api.TaskVectorisation:
		return &vecStrategy{mdl: t.mdl.(model.Vectorizer)}, nil
	case api.TaskImageClassification:
		return &imgStrategy{mdl: t.mdl.(model.ImageClassifier), labels: t.labels}, nil
	}
	return nil, api.ConfigurationError{Field: "task", Reason: fmt.Sprintf("unknown task kind %q", t.kind)}
}

// copyIDs kopiert eine ID-Sequenz, damit Padding verschiedener
// Batch-Groessen sich nicht gegenseitig veraendert
func copyIDs(ids []int32) []int32 {
	return append([]int32(nil), ids...)
}

// ---------------------------------------------------------------------------
// Generation

type genStrategy struct {
	mdl model.Generator
}

func (s *genStrategy) prepare(examples []api.Example) error {
	for i, ex := range examples {
		if ex.Input == "" {
			return api.ConfigurationError{Field: "input", Reason: fmt.Sprintf("example %d has empty input", i)}
		}
		if ex.Target == "" {
			return api.ConfigurationError{Field: "target", Reason: fmt.Sprintf("example %d has empty target", i)}
		}
	}
	return nil
}

func (s *genStrategy) encode(examples []api.Example, o api.FinetuneOptions) ([]encoded, error) {
	tok := s.mdl.Tokenizer()
	out := make([]encoded, 0, len(examples))
	for _, ex := range examples {
		// eine Position fuer EOS reservieren
		tgt := tok.Encode(ex.Target, o.MaxOutputLength-1)
		tgt = append(tgt, tokenizer.EOSID)
		out = append(out, encoded{
			in:  tok.Encode(ex.Input, o.MaxInputLength),
			out: tgt,
		})
	}
	return out, nil
}

func (s *genStrategy) batches(enc []encoded, size int) []*dataset.EncodedBatch {
	var out []*dataset.EncodedBatch
	for _, c := range dataset.Chunks(len(enc), size) {
		b := &dataset.EncodedBatch{}
		for _, e := range enc[c[0]:c[1]] {
			b.InputIDs = append(b.InputIDs, copyIDs(e.in))
			b.TargetIDs = append(b.TargetIDs, copyIDs(e.out))
		}
		b.PadLen = dataset.Pad(b.InputIDs, tokenizer.PadID)
		dataset.Pad(b.TargetIDs, tokenizer.PadID)
		out = append(out, b)
	}
	return out
}

func (s *genStrategy) Step(b *dataset.EncodedBatch, train bool) (float64, error) {
	return s.mdl.GenerationStep(b, train)
}

// ---------------------------------------------------------------------------
// Classification

type clsStrategy struct {
	mdl    model.Classifier
	labels *LabelSpace
}

func (s *clsStrategy) prepare(examples []api.Example) error {
	// nach dem ersten Training ist der Label-Raum gebunden; neue Labels
	// sind dann ein Konfigurationsfehler, keine stille Erweiterung
	bound := s.labels.Len() > 0
	for i, ex := range examples {
		if ex.Input == "" {
			return api.ConfigurationError{Field: "input", Reason: fmt.Sprintf("example %d has empty input", i)}
		}
		if ex.Target == "" {
			return api.ConfigurationError{Field: "target", Reason: fmt.Sprintf("example %d has empty label", i)}
		}
		if bound {
			if _, err := s.labels.Index(ex.Target); err != nil {
				return err
			}
			continue
		}
		s.labels.Add(ex.Target)
	}
	s.mdl.BindLabels(s.labels.Len())
	return nil
}

func (s *clsStrategy) encode(examples []api.Example, o api.FinetuneOptions) ([]encoded, error) {
	tok := s.mdl.Tokenizer()
	out := make([]encoded, 0, len(examples))
	for _, ex := range examples {
		idx, err := s.labels.Index(ex.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded{
			in:    tok.Encode(ex.Input, o.MaxInputLength),
			label: idx,
		})
	}
	return out, nil
}

func (s *clsStrategy) batches(enc []encoded, size int) []*dataset.EncodedBatch {
	var out []*dataset.EncodedBatch
	for _, c := range dataset.Chunks(len(enc), size) {
		b := &dataset.EncodedBatch{}
		for _, e := range enc[c[0]:c[1]] {
			b.InputIDs = append(b.InputIDs, copyIDs(e.in))
			b.Labels = append(b.Labels, e.label)
		}
		b.PadLen = dataset.Pad(b.InputIDs, tokenizer.PadID)
		out = append(out, b)
	}
	return out
}

func (s *clsStrategy) Step(b *dataset.EncodedBatch, train bool) (float64, error) {
	return s.mdl.ClassificationStep(b, train)
}

// ---------------------------------------------------------------------------
// Vectorisation

type vecStrategy struct {
	mdl model.Vectorizer
}

func (s *vecStrategy) prepare(examples []api.Example) error {
	for i, ex := range examples {
		if ex.Input == "" || ex.Pair == "" {
			return api.ConfigurationError{Field: "input", Reason: fmt.Sprintf("similarity pair %d is incomplete", i)}
		}
		if ex.Score < 0 || ex.Score > 1 {
			return api.ConfigurationError{Field: "score", Reason: fmt.Sprintf("target score %g of pair %d not in [0,1]", ex.Score, i)}
		}
	}
	return nil
}

func (s *vecStrategy) encode(examples []api.Example, o api.FinetuneOptions) ([]encoded, error) {
	tok := s.mdl.Tokenizer()
	out := make([]encoded, 0, len(examples))
	for _, ex := range examples {
		out = append(out, encoded{
			in:    tok.Encode(ex.Input, o.MaxInputLength),
			pair:  tok.Encode(ex.Pair, o.MaxInputLength),
			score: ex.Score,
		})
	}
	return out, nil
}

func (s *vecStrategy) batches(enc []encoded, size int) []*dataset.EncodedBatch {
	var out []*dataset.EncodedBatch
	for _, c := range dataset.Chunks(len(enc), size) {
		b := &dataset.EncodedBatch{}
		for _, e := range enc[c[0]:c[1]] {
			b.InputIDs = append(b.InputIDs, copyIDs(e.in))
			b.PairIDs = append(b.PairIDs, copyIDs(e.pair))
			b.Scores = append(b.Scores, e.score)
		}
		b.PadLen = dataset.Pad(b.InputIDs, tokenizer.PadID)
		dataset.Pad(b.PairIDs, tokenizer.PadID)
		out = append(out, b)
	}
	return out
}

func (s *vecStrategy) Step(b *dataset.EncodedBatch, train bool) (float64, error) {
	return s.mdl.VectorisationStep(b, train)
}

// ---------------------------------------------------------------------------
// ImageClassification

type imgStrategy struct {
	mdl    model.ImageClassifier
	labels *LabelSpace
}

func (s *imgStrategy) prepare(examples []api.Example) error {
	bound := s.labels.Len() > 0
	for i, ex := range examples {
		if len(ex.Image) == 0 {
			return api.ConfigurationError{Field: "image", Reason: fmt.Sprintf("example %d has no image data", i)}
		}
		if ex.Target == "" {
			return api.ConfigurationError{Field: "target", Reason: fmt.Sprintf("example %d has empty label", i)}
		}
		if bound {
			if _, err := s.labels.Index(ex.Target); err != nil {
				return err
			}
			continue
		}
		s.labels.Add(ex.Target)
	}
	s.mdl.BindLabels(s.labels.Len())
	return nil
}

func (s *imgStrategy) encode(examples []api.Example, o api.FinetuneOptions) ([]encoded, error) {
	out := make([]encoded, 0, len(examples))
	for _, ex := range examples {
		features, err := vision.Features(ex.Image)
		if err != nil {
			return nil, api.ConfigurationError{Field: "image", Reason: err.Error()}
		}
		idx, err := s.labels.Index(ex.Target)
		if err != nil {
			return nil, err
		}
		out = append(out, encoded{img: features, label: idx})
	}
	return out, nil
}

func (s *imgStrategy) batches(enc []encoded, size int) []*dataset.EncodedBatch {
	var out []*dataset.EncodedBatch
	for _, c := range dataset.Chunks(len(enc), size) {
		b := &dataset.EncodedBatch{}
		for _, e := range enc[c[0]:c[1]] {
			b.Images = append(b.Images, e.img)
			b.Labels = append(b.Labels, e.label)
		}
		out = append(out, b)
	}
	return out
}

func (s *imgStrategy) Step(b *dataset.EncodedBatch, train bool) (float64, error) {
	return s.mdl.ImageStep(b.Images, b.Labels, train)
}
