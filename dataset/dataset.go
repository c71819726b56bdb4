// Package dataset - Geordnete Example-Sammlungen und Splits
//
// Dieses Modul enthaelt:
// - Dataset: geordnete Liste von Examples
// - Split: deterministischer Train/Validation-Split
//
// Der Split ist rein positionsbasiert: die letzten N Examples bilden
// die Validierung. Gleiche Eingabereihenfolge ergibt immer den
// gleichen Split.
package dataset

import (
	"github.com/backprop-ai/tune/api"
)

// Dataset ist eine geordnete Sammlung von Examples.
type Dataset struct {
	Examples []api.Example
}

// New erstellt ein Dataset aus Examples
func New(examples []api.Example) *Dataset {
	return &Dataset{Examples: examples}
}

// Len gibt die Anzahl der Examples zurueck
func (d *Dataset) Len() int { return len(d.Examples) }

// Split teilt das Dataset deterministisch in Training und Validierung.
// fraction ist der Validierungsanteil; bei fraction <= 0 wird 0.1
// verwendet. Die Validierung enthaelt immer mindestens ein Example,
// solange das Dataset mindestens zwei enthaelt.
func (d *Dataset) Split(fraction float64) (train, validation *Dataset) {
	if fraction <= 0 {
		fraction = 0.1
	}

	n := int(float64(len(d.Examples)) * (1 - fraction))
	if n >= len(d.Examples) && len(d.Examples) > 1 {
		n = len(d.Examples) - 1
	}
	if n < 1 {
		n = len(d.Examples)
	}

	return &Dataset{Examples: d.Examples[:n]}, &Dataset{Examples: d.Examples[n:]}
}
