// Package names - Modellnamen fuer Registry und Bundles
//
// Dieses Modul enthaelt:
// - Name: Modellname mit optionalem Tag
// - Parse, IsValid, String, Filepath
//
// Modellnamen adressieren Bundles auf der Registry und Verzeichnisse
// im lokalen Modell-Speicher. Ein fehlender Tag wird als "latest"
// gelesen.
package names

import (
	"cmp"
	"path/filepath"
	"strings"
)

// DefaultTag ist der Tag, der bei fehlender Angabe angenommen wird
const DefaultTag = "latest"

// Name ist ein Modellname der Form model[:tag].
type Name struct {
	Model string
	Tag   string
}

// Parse zerlegt s in Modell und Tag. Parse validiert nicht; das
// Ergebnis kann ein invalider Name sein, siehe [Name.IsValid].
func Parse(s string) Name {
	model, tag, ok := strings.Cut(s, ":")
	if !ok {
		tag = DefaultTag
	}
	return Name{Model: model, Tag: cmp.Or(tag, DefaultTag)}
}

// String gibt den Namen in der Form zurueck, die Parse akzeptiert
func (n Name) String() string {
	if n.Tag == "" || n.Tag == DefaultTag {
		return n.Model
	}
	return n.Model + ":" + n.Tag
}

// IsValid prueft Modell und Tag
func (n Name) IsValid() bool {
	return isValidPart(n.Model) && isValidPart(n.Tag)
}

// Filepath bildet den Namen auf einen relativen Ablage-Pfad ab.
// Filepath panict bei invaliden Namen; vorher [Name.IsValid] pruefen.
func (n Name) Filepath() string {
	if !n.IsValid() {
		panic("illegal attempt to get filepath of invalid name")
	}
	return filepath.Join(n.Model, n.Tag)
}

// isValidPart prueft einen Namensteil: alphanumerischer Anfang,
// danach zusaetzlich '_', '-' und '.'
func isValidPart(s string) bool {
	if len(s) < 1 || len(s) > 80 {
		return false
	}
	for i := range s {
		if i == 0 {
			if !isAlphanumericOrUnderscore(s[i]) {
				return false
			}
			continue
		}
		switch s[i] {
		case '_', '-', '.':
		default:
			if !isAlphanumericOrUnderscore(s[i]) {
				return false
			}
		}
	}
	return true
}

func isAlphanumericOrUnderscore(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_'
}
