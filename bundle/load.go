// load.go - Bundle laden und verifizieren
//
// Dieses Modul enthaelt:
// - Load: rekonstruiert eine Task-Fassade aus einem Bundle-Verzeichnis
//
// Load prueft alle Digests; ein Digest-Mismatch ist ein Fehler, kein
// stilles Weiterlaufen mit kaputten Gewichten.
package bundle

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/x448/float16"

	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model/tinyseq"
	"github.com/backprop-ai/tune/task"
	"github.com/backprop-ai/tune/tokenizer"
)

// decodeTensor dekodiert float16 little-endian in einen Parameter
func decodeTensor(e TensorEntry, data []byte) (*ml.Parameter, error) {
	if int64(len(data)) != e.Size || e.Size != int64(e.Rows*e.Cols*2) {
		return nil, fmt.Errorf("tensor %s: size %d does not match %dx%d float16", e.Name, len(data), e.Rows, e.Cols)
	}

	p := ml.NewParameter(e.Name, e.Rows, e.Cols)
	for i := range p.Value {
		bits := binary.LittleEndian.Uint16(data[i*2:])
		p.Value[i] = float64(float16.Frombits(bits).Float32())
	}
	return p, nil
}

// Load rekonstruiert eine Task-Fassade aus einem Bundle-Verzeichnis.
func Load(dir string, dev *ml.Device) (*task.Task, error) {
	metaJSON, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return nil, fmt.Errorf("read bundle metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("parse bundle metadata: %w", err)
	}
	if meta.ModelType != "tinyseq" {
		return nil, fmt.Errorf("unsupported model type %q", meta.ModelType)
	}

	tokJSON, err := os.ReadFile(filepath.Join(dir, tokenizerFile))
	if err != nil {
		return nil, fmt.Errorf("read tokenizer: %w", err)
	}

	manifestJSON, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	if d := digest(tokJSON); d != manifest.TokenizerDigest {
		return nil, fmt.Errorf("tokenizer digest mismatch: %s != %s", d, manifest.TokenizerDigest)
	}

	tok := tokenizer.New()
	if err := json.Unmarshal(tokJSON, tok); err != nil {
		return nil, fmt.Errorf("parse tokenizer: %w", err)
	}

	weights, err := os.ReadFile(filepath.Join(dir, weightsFile))
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}

	mdl := tinyseq.New(tok, dev, meta.Dim, 0)
	for _, e := range manifest.Tensors {
		if e.Offset < 0 || e.Offset+e.Size > int64(len(weights)) {
			return nil, fmt.Errorf("tensor %s: range [%d, %d) outside weights file", e.Name, e.Offset, e.Offset+e.Size)
		}

		data := weights[e.Offset : e.Offset+e.Size]
		if d := digest(data); d != e.Digest {
			return nil, fmt.Errorf("tensor %s: digest mismatch: %s != %s", e.Name, d, e.Digest)
		}

		p, err := decodeTensor(e, data)
		if err != nil {
			return nil, err
		}
		mdl.SetParameter(p)
	}

	t, err := task.New(meta.TaskKind, mdl)
	if err != nil {
		return nil, err
	}
	t.Restore(meta.Labels, meta.MaxInputLength, meta.MaxOutputLength)
	t.Name = meta.Name
	t.Description = meta.Description
	return t, nil
}
