// Package tokenizer - Vokabular und Wort-Tokenizer
//
// Dieses Modul enthaelt:
// - Tokenizer: Encode/Decode mit Truncation auf eine Maximallaenge
// - Pretokenisierung ueber regexp2 (GPT2-artiges Muster)
//
// Das Vokabular waechst waehrend des ersten Finetune-Aufrufs und wird
// danach eingefroren; unbekannte Tokens werden auf [UNK] abgebildet.
package tokenizer

import (
	"strings"
	"sync"

	"github.com/dlclark/regexp2"
)

// Spezial-Token-IDs, fest am Anfang des Vokabulars
const (
	PadID int32 = iota
	UnknownID
	BOSID
	EOSID
)

const pretokenizePattern = `(?i:'s|'t|'re|'ve|'m|'ll|'d)|[^\r\n\p{L}\p{N}]?\p{L}+|\p{N}{1,3}| ?[^\s\p{L}\p{N}]+[\r\n]*|\s*[\r\n]+|\s+(?!\S)|\s+`

var specialTokens = []string{"[PAD]", "[UNK]", "[BOS]", "[EOS]"}

// Tokenizer bildet Text auf Token-IDs ab und zurueck. Encode ist nach
// Freeze nebenlaeufig sicher; waehrend des Vokabular-Aufbaus darf nur
// ein Aufrufer aktiv sein.
type Tokenizer struct {
	mu     sync.RWMutex
	tokens []string
	ids    map[string]int32
	frozen bool

	pre *regexp2.Regexp
}

// New erstellt einen leeren Tokenizer mit Spezial-Tokens
func New() *Tokenizer {
	t := &Tokenizer{
		ids: make(map[string]int32, len(specialTokens)),
		pre: regexp2.MustCompile(pretokenizePattern, regexp2.None),
	}
	for _, s := range specialTokens {
		t.ids[s] = int32(len(t.tokens))
		t.tokens = append(t.tokens, s)
	}
	return t
}

// split zerlegt Text in Oberflaechen-Tokens; Leerzeichen bleiben Teil
// der Tokens, damit Decode den Text verlustfrei rekonstruiert.
func (t *Tokenizer) split(s string) []string {
	var out []string
	m, _ := t.pre.FindStringMatch(s)
	for m != nil {
		out = append(out, m.String())
		m, _ = t.pre.FindNextMatch(m)
	}
	return out
}

// Encode bildet Text auf Token-IDs ab, beschnitten auf maxLen Tokens.
// Solange das Vokabular nicht eingefroren ist, werden neue Tokens
// aufgenommen; danach liefert ein unbekanntes Token [UNK].
func (t *Tokenizer) Encode(s string, maxLen int) []int32 {
	parts := t.split(s)

	t.mu.Lock()
	defer t.mu.Unlock()

	ids := make([]int32, 0, len(parts))
	for _, p := range parts {
		id, ok := t.ids[p]
		if !ok {
			if t.frozen {
				id = UnknownID
			} else {
				id = int32(len(t.tokens))
				t.ids[p] = id
				t.tokens = append(t.tokens, p)
			}
		}
		ids = append(ids, id)

		if maxLen > 0 && len(ids) >= maxLen {
			break
		}
	}
	return ids
}

// Decode rekonstruiert Text aus Token-IDs. Spezial-Tokens werden
// uebersprungen.
func (t *Tokenizer) Decode(ids []int32) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var sb strings.Builder
	for _, id := range ids {
		if id < int32(len(specialTokens)) {
			continue
		}
		if int(id) < len(t.tokens) {
			sb.WriteString(t.tokens[id])
		}
	}
	return sb.String()
}

// Freeze friert das Vokabular ein. Nach dem ersten Finetune-Aufruf
// bleibt der Token-Raum fuer die Lebensdauer des Modells stabil.
func (t *Tokenizer) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen meldet ob das Vokabular eingefroren ist
func (t *Tokenizer) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

// Len gibt die Vokabulargroesse zurueck
func (t *Tokenizer) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.tokens)
}
