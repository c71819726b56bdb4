// vectorize.go - Vektorisierungs-Inferenz
//
// Dieses Modul enthaelt:
// - Vector: Embedding-Vektor fester Laenge pro Eingabe
// - Similarity: Kosinus-Aehnlichkeit zweier Texte
package task

import (
	"context"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model"
)

// Vector liefert den Embedding-Vektor einer Eingabe.
func (t *Task) Vector(ctx context.Context, input string) ([]float64, error) {
	if t.kind != api.TaskVectorisation {
		return nil, model.ErrUnsupportedTask
	}
	if input == "" {
		return nil, api.ConfigurationError{Field: "input", Reason: "empty input"}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := t.mdl.(model.Vectorizer)

	maxIn := t.maxIn
	if maxIn == 0 {
		maxIn = api.DefaultFinetuneOptions().MaxInputLength
	}
	return vec.Vector(vec.Tokenizer().Encode(input, maxIn))
}

// Similarity berechnet die Kosinus-Aehnlichkeit zweier Texte.
// Ein Null-Vektor ergibt per Definition 0.
func (t *Task) Similarity(ctx context.Context, a, b string) (float64, error) {
	u, err := t.Vector(ctx, a)
	if err != nil {
		return 0, err
	}
	v, err := t.Vector(ctx, b)
	if err != nil {
		return 0, err
	}
	return ml.Cosine(u, v), nil
}
