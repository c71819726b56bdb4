// classify.go - Klassifikations-Inferenz mit Gespraechskontext
//
// Dieses Modul enthaelt:
// - Classify: Wahrscheinlichkeiten ueber den gebundenen Label-Raum
// - ClassifyLabel: Score eines einzelnen, bekannten Labels
//
// Der finetuned Single-Label-Fall ist softmax-exklusiv: die
// Wahrscheinlichkeiten summieren sich ueber den Label-Raum zu 1.
// Gespraechskontext wird als explizite geordnete Historie uebergeben
// und vor der aktuellen Eingabe konkateniert; Inferenz bleibt damit
// eine reine Funktion ihrer vollstaendigen Eingabe.
package task

import (
	"context"
	"strings"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model"
)

// withHistory konkateniert die Historie vor die aktuelle Eingabe
func withHistory(input string, history []api.QA) string {
	if len(history) == 0 {
		return input
	}

	var sb strings.Builder
	for _, qa := range history {
		sb.WriteString(qa.Question)
		sb.WriteString("\n")
		sb.WriteString(qa.Answer)
		sb.WriteString("\n")
	}
	sb.WriteString(input)
	return sb.String()
}

// Classify liefert eine Wahrscheinlichkeit fuer jedes bekannte Label.
func (t *Task) Classify(ctx context.Context, input string, opts *api.ClassifyOptions) (map[string]float64, error) {
	if t.kind != api.TaskClassification {
		return nil, model.ErrUnsupportedTask
	}
	if input == "" {
		return nil, api.ConfigurationError{Field: "input", Reason: "empty input"}
	}
	if t.labels.Len() == 0 {
		return nil, model.ErrNotTrained
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts != nil {
		input = withHistory(input, opts.History)
	}

	cls := t.mdl.(model.Classifier)

	maxIn := t.maxIn
	if maxIn == 0 {
		maxIn = api.DefaultFinetuneOptions().MaxInputLength
	}
	ids := cls.Tokenizer().Encode(input, maxIn)

	logits, err := cls.ClassLogits(ids)
	if err != nil {
		return nil, err
	}
	ml.Softmax(logits, 1)

	probs := make(map[string]float64, t.labels.Len())
	for i, label := range t.labels.Labels() {
		probs[label] = logits[i]
	}
	return probs, nil
}

// ClassifyLabel liefert den Score eines einzelnen Labels. Ein Label
// ausserhalb des gebundenen Raums ist ein ConfigurationError, kein
// stiller Default.
func (t *Task) ClassifyLabel(ctx context.Context, input, label string, opts *api.ClassifyOptions) (float64, error) {
	if _, err := t.labels.Index(label); err != nil {
		return 0, err
	}

	probs, err := t.Classify(ctx, input, opts)
	if err != nil {
		return 0, err
	}
	return probs[label], nil
}
