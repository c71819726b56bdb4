// Package convert - Import von PyTorch-Checkpoints
//
// Dieses Modul enthaelt:
// - Checkpoint: laedt ein torch state dict und setzt die Gewichte im Modell
// - Result: importierte und uebersprungene Tensoren
//
// Der Importer kennt die gaengigen Namens-Varianten der Koepfe und
// bildet sie auf die internen Parameternamen ab. Unbekannte Tensoren
// sind kein Fehler, sie landen im Result, damit der Aufrufer sie
// melden kann.
package convert

import (
	"fmt"
	"strings"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model/tinyseq"
)

// Result fasst einen Checkpoint-Import zusammen
type Result struct {
	Imported []string
	Skipped  []string
}

// replacements bildet Checkpoint-Namen auf interne Parameternamen ab
var replacements = strings.NewReplacer(
	"embedding.weight", "emb.weight",
	"embeddings.weight", "emb.weight",
	"generation_head.weight", "gen.weight",
	"lm_head.weight", "gen.weight",
	"classification_head.weight", "cls.weight",
	"classification_head.bias", "cls.bias",
	"classifier.weight", "cls.weight",
	"classifier.bias", "cls.bias",
	"image_projection.weight", "img.weight",
)

// knownParams sind die Parameternamen, die das Modell annimmt
var knownParams = map[string]bool{
	"emb.weight": true,
	"gen.weight": true,
	"cls.weight": true,
	"cls.bias":   true,
	"img.weight": true,
}

// Checkpoint laedt das torch state dict unter path und setzt alle
// erkannten Tensoren im Modell.
func Checkpoint(path string, mdl *tinyseq.Model) (*Result, error) {
	loaded, err := pytorch.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint %s: %w", path, err)
	}

	entries, err := stateDict(loaded)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, e := range entries {
		name := replacements.Replace(e.name)
		if !knownParams[name] {
			result.Skipped = append(result.Skipped, e.name)
			continue
		}

		p, err := e.parameter(name)
		if err != nil {
			return nil, err
		}

		mdl.SetParameter(p)
		result.Imported = append(result.Imported, name)
	}

	if len(result.Imported) == 0 {
		return nil, fmt.Errorf("checkpoint %s contains no usable tensors", path)
	}
	return result, nil
}

// entry ist ein benannter Tensor aus dem state dict
type entry struct {
	name   string
	tensor *pytorch.Tensor
}

// stateDict entfaltet das geladene Objekt zu benannten Tensoren.
// torch.save schreibt je nach Version Dict oder OrderedDict.
func stateDict(loaded any) ([]entry, error) {
	var entries []entry

	add := func(key, value any) error {
		name, ok := key.(string)
		if !ok {
			return fmt.Errorf("state dict key %v is not a string", key)
		}
		t, ok := value.(*pytorch.Tensor)
		if !ok {
			// Metadaten wie _metadata ueberspringen
			return nil
		}
		entries = append(entries, entry{name: name, tensor: t})
		return nil
	}

	switch d := loaded.(type) {
	case *types.Dict:
		for _, kv := range *d {
			if err := add(kv.Key, kv.Value); err != nil {
				return nil, err
			}
		}
	case *types.OrderedDict:
		for el := d.List.Front(); el != nil; el = el.Next() {
			kv := el.Value.(*types.OrderedDictEntry)
			if err := add(kv.Key, kv.Value); err != nil {
				return nil, err
			}
		}
	default:
		return nil, fmt.Errorf("unexpected checkpoint root type %T", loaded)
	}

	return entries, nil
}

// parameter konvertiert den torch-Tensor in einen Parameter mit dem
// erwarteten Layout
func (e entry) parameter(name string) (*ml.Parameter, error) {
	rows, cols, data, err := repack(e.tensor)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", e.name, err)
	}

	p := ml.NewParameter(name, rows, cols)
	for i, v := range data {
		p.Value[i] = float64(v)
	}
	return p, nil
}
