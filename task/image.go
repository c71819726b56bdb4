// image.go - Bild-Klassifikations-Inferenz
//
// Dieses Modul enthaelt:
// - ClassifyImage: Wahrscheinlichkeiten ueber den Label-Raum fuer ein Bild
package task

import (
	"context"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model"
	"github.com/backprop-ai/tune/vision"
)

// ClassifyImage liefert eine Wahrscheinlichkeit fuer jedes bekannte
// Label eines Bildes.
func (t *Task) ClassifyImage(ctx context.Context, img api.ImageData) (map[string]float64, error) {
	if t.kind != api.TaskImageClassification {
		return nil, model.ErrUnsupportedTask
	}
	if len(img) == 0 {
		return nil, api.ConfigurationError{Field: "image", Reason: "no image data"}
	}
	if t.labels.Len() == 0 {
		return nil, model.ErrNotTrained
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	features, err := vision.Features(img)
	if err != nil {
		return nil, api.ConfigurationError{Field: "image", Reason: err.Error()}
	}

	logits, err := t.mdl.(model.ImageClassifier).ImageLogits(features)
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
