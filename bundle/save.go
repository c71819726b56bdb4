// save.go - Bundle schreiben
//
// Dieses Modul enthaelt:
// - Save: serialisiert Task, Tokenizer und Gewichte in ein Verzeichnis
//
// Gewichte werden als float16 abgelegt; jeder Tensor bekommt einen
// sha256-Digest im Manifest, damit Load Manipulation und Bitfaeule
// erkennt.
package bundle

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/x448/float16"

	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/task"
)

// encodeTensor kodiert Parameterwerte als float16 little-endian
func encodeTensor(p *ml.Parameter) []byte {
	out := make([]byte, len(p.Value)*2)
	for i, v := range p.Value {
		bits := float16.Fromfloat32(float32(v)).Bits()
		binary.LittleEndian.PutUint16(out[i*2:], bits)
	}
	return out
}

func digest(data []byte) string {
	return fmt.Sprintf("sha256:%x", sha256.Sum256(data))
}

// Save serialisiert den Task als Bundle-Verzeichnis. Ein bestehendes
// Bundle unter dir wird ueberschrieben.
func Save(dir string, t *task.Task) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	maxIn, maxOut := t.MaxLengths()
	meta := Metadata{
		TaskKind:        t.Kind(),
		Labels:          t.Labels().Labels(),
		MaxInputLength:  maxIn,
		MaxOutputLength: maxOut,
		Name:            t.Name,
		Description:     t.Description,
		ModelType:       "tinyseq",
		Dim:             t.Model().Dim(),
		CreatedAt:       time.Now().UTC(),
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, metadataFile), metaJSON, 0o644); err != nil {
		return err
	}

	tokJSON, err := json.Marshal(t.Model().Tokenizer())
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, tokenizerFile), tokJSON, 0o644); err != nil {
		return err
	}

	var manifest Manifest
	manifest.TokenizerDigest = digest(tokJSON)

	weights, err := os.Create(filepath.Join(dir, weightsFile))
	if err != nil {
		return err
	}
	defer weights.Close()

	var offset int64
	for _, p := range t.Model().Parameters() {
		data := encodeTensor(p)
		if _, err := weights.Write(data); err != nil {
			return err
		}

		manifest.Tensors = append(manifest.Tensors, TensorEntry{
			Name:   p.Name,
			Rows:   p.Rows,
			Cols:   p.Cols,
			Offset: offset,
			Size:   int64(len(data)),
			Digest: digest(data),
		})
		offset += int64(len(data))
	}

	if err := weights.Sync(); err != nil {
		return err
	}

	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, manifestFile), manifestJSON, 0o644)
}
