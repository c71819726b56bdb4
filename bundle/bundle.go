// Package bundle - Artifact Packager: Speichern, Laden, Verifizieren
//
// Dieses Modul enthaelt:
// - Metadata: Task-Metadaten eines Bundles
// - Manifest: Tensor-Layout und Digests der Bundle-Dateien
//
// Ein Bundle ist ein selbstenthaltendes Verzeichnis:
//
//	metadata.json   Task-Art, Label-Raum, Laengen, Name, Beschreibung
//	tokenizer.json  Vokabular
//	manifest.json   Tensor-Offsets und sha256-Digests
//	weights.bin     Gewichte, float16 little-endian
package bundle

import (
	"time"

	"github.com/backprop-ai/tune/api"
)

// Dateinamen innerhalb eines Bundles
const (
	metadataFile  = "metadata.json"
	tokenizerFile = "tokenizer.json"
	manifestFile  = "manifest.json"
	weightsFile   = "weights.bin"
)

// Metadata ist der Metadaten-Record eines Bundles. Nach dem Training
// unveraenderlich bis auf Name und Description.
type Metadata struct {
	TaskKind        api.TaskKind `json:"task_kind"`
	Labels          []string     `json:"label_set,omitempty"`
	MaxInputLength  int          `json:"max_input_length"`
	MaxOutputLength int          `json:"max_output_length,omitempty"`
	Name            string       `json:"name"`
	Description     string       `json:"description,omitempty"`

	// Modell-Rekonstruktion
	ModelType string    `json:"model_type"`
	Dim       int       `json:"dim"`
	CreatedAt time.Time `json:"created_at"`
}

// TensorEntry beschreibt einen Tensor in weights.bin
type TensorEntry struct {
	Name   string `json:"name"`
	Rows   int    `json:"rows"`
	Cols   int    `json:"cols"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

// Manifest beschreibt das Layout eines Bundles
type Manifest struct {
	Tensors         []TensorEntry `json:"tensors"`
	TokenizerDigest string        `json:"tokenizer_digest"`
}
