// auth_test.go - Tests fuer Nonce, Schluessel-Anlage und Signierung
package auth

import (
	"bytes"
	"context"
	"crypto/rand"
	"strings"
	"testing"
)

func TestNewNonce(t *testing.T) {
	nonce, err := NewNonce(rand.Reader, 16)
	if err != nil {
		t.Fatal(err)
	}
	if nonce == "" {
		t.Fatal("leere Nonce")
	}

	// base64url ohne Padding
	if strings.ContainsAny(nonce, "+/=") {
		t.Errorf("Nonce %q ist nicht URL-sicher kodiert", nonce)
	}

	// deterministische Quelle ergibt deterministische Nonce
	a, err := NewNonce(bytes.NewReader(make([]byte, 16)), 16)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewNonce(bytes.NewReader(make([]byte, 16)), 16)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("gleiche Quelle, verschiedene Nonces: %q != %q", a, b)
	}

	// zu kurze Quelle ist ein Fehler, keine halbe Nonce
	if _, err := NewNonce(bytes.NewReader(make([]byte, 4)), 16); err == nil {
		t.Error("erwartet Fehler bei erschoepfter Zufallsquelle")
	}
}

func TestKeypairRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	if err := InitKeypair(); err != nil {
		t.Fatal(err)
	}

	// erneutes Init laesst das bestehende Schluesselpaar unangetastet
	if err := InitKeypair(); err != nil {
		t.Fatal(err)
	}

	pub, err := GetPublicKey()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(pub, "ssh-ed25519 ") {
		t.Errorf("oeffentlicher Schluessel %q ist kein ed25519 authorized_keys Eintrag", pub)
	}

	sig, err := Sign(context.Background(), []byte("challenge"))
	if err != nil {
		t.Fatal(err)
	}

	// Format <pubkey>:<base64 signature>
	key, rest, ok := strings.Cut(sig, ":")
	if !ok || key == "" || rest == "" {
		t.Fatalf("Signatur %q hat nicht das Format pubkey:signature", sig)
	}
	if !strings.Contains(pub, key) {
		t.Errorf("Signatur traegt fremden Schluessel %q", key)
	}
}
