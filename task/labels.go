// labels.go - Label-Raum fuer Klassifikations-Tasks
//
// Dieses Modul enthaelt:
// - LabelSpace: einfuegegeordneter Label -> Index Raum
//
// Der Label-Raum wird beim ersten Finetune-Aufruf aus der Union der
// beobachteten Labels aufgebaut und in das ModelArtifact gebunden.
// Ein unbekanntes Label zur Inferenzzeit ist ein Fehler, kein stiller
// Default.
package task

import (
	"fmt"

	"github.com/agnivade/levenshtein"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/backprop-ai/tune/api"
)

// LabelSpace bildet Labels auf Indizes ab. Die Iterationsreihenfolge
// ist die Reihenfolge des ersten Auftretens im Trainingsaufruf.
type LabelSpace struct {
	m *orderedmap.OrderedMap[string, int]
}

// NewLabelSpace erstellt einen leeren Label-Raum
func NewLabelSpace() *LabelSpace {
	return &LabelSpace{m: orderedmap.New[string, int]()}
}

// Add nimmt ein Label auf, falls noch nicht vorhanden
func (s *LabelSpace) Add(label string) int {
	if idx, ok := s.m.Get(label); ok {
		return idx
	}
	idx := s.m.Len()
	s.m.Set(label, idx)
	return idx
}

// Index liefert den Index eines bekannten Labels. Ein unbekanntes
// Label ergibt einen ConfigurationError mit Vorschlag des naechsten
// bekannten Labels.
func (s *LabelSpace) Index(label string) (int, error) {
	if idx, ok := s.m.Get(label); ok {
		return idx, nil
	}

	reason := fmt.Sprintf("unknown label %q", label)
	if suggestion := s.nearest(label); suggestion != "" {
		reason = fmt.Sprintf("%s, did you mean %q?", reason, suggestion)
	}
	return 0, api.ConfigurationError{Field: "label", Reason: reason}
}

// nearest sucht das Label mit kleinster Levenshtein-Distanz
func (s *LabelSpace) nearest(label string) string {
	best, bestDist := "", -1
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		d := levenshtein.ComputeDistance(label, pair.Key)
		if bestDist < 0 || d < bestDist {
			best, bestDist = pair.Key, d
		}
	}
	return best
}

// Labels gibt alle Labels in Einfuegereihenfolge zurueck
func (s *LabelSpace) Labels() []string {
	out := make([]string, 0, s.m.Len())
	for pair := s.m.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Len gibt die Anzahl der Labels zurueck
func (s *LabelSpace) Len() int { return s.m.Len() }

// FromLabels stellt einen Label-Raum aus einem Bundle wieder her
func FromLabels(labels []string) *LabelSpace {
	s := NewLabelSpace()
	for _, l := range labels {
		s.Add(l)
	}
	return s
}
