// serialize.go - JSON-Serialisierung des Vokabulars fuer Bundles
// Enthaelt: MarshalJSON, UnmarshalJSON
package tokenizer

import (
	"encoding/json"
	"fmt"
)

type tokenizerJSON struct {
	Tokens []string `json:"tokens"`
	Frozen bool     `json:"frozen"`
}

// MarshalJSON serialisiert das Vokabular in Token-Reihenfolge
func (t *Tokenizer) MarshalJSON() ([]byte, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return json.Marshal(tokenizerJSON{Tokens: t.tokens, Frozen: t.frozen})
}

// UnmarshalJSON stellt das Vokabular aus einem Bundle wieder her
func (t *Tokenizer) UnmarshalJSON(data []byte) error {
	var raw tokenizerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if len(raw.Tokens) < len(specialTokens) {
		return fmt.Errorf("vocabulary too small: %d tokens", len(raw.Tokens))
	}
	for i, s := range specialTokens {
		if raw.Tokens[i] != s {
			return fmt.Errorf("vocabulary missing special token %q at %d", s, i)
		}
	}

	*t = *New()
	t.tokens = raw.Tokens
	t.frozen = raw.Frozen
	t.ids = make(map[string]int32, len(raw.Tokens))
	for i, tok := range raw.Tokens {
		t.ids[tok] = int32(i)
	}
	return nil
}
