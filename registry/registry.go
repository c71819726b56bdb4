// Package registry - Bundle-Verteilung zwischen Engine-Instanzen
//
// Dieses Modul enthaelt:
// - RemoteUploadError: terminaler Upload-Fehler mit Registry-Status
// - Manifest-Typen des Push-Protokolls
// - Konstanten der Part-Aufteilung
//
// Das Protokoll: jede Bundle-Datei wird als Blob unter ihrem
// sha256-Digest hochgeladen (POST startet eine Upload-Session, PATCH
// traegt Parts ein, PUT schliesst ab), danach bindet ein Manifest die
// Blobs unter dem Modellnamen zusammen. Der Upload-Pfad wiederholt
// nichts: ein fehlgeschlagener Part bricht den gesamten Push ab, der
// Aufrufer entscheidet ueber einen erneuten Versuch.
package registry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/backprop-ai/tune/format"
)

const (
	numUploadParts = 4

	minUploadPartSize int64 = 64 * format.KiloByte
	maxUploadPartSize int64 = 16 * format.MegaByte
)

var uploadClient = &http.Client{Timeout: 2 * time.Minute}

// RemoteUploadError meldet einen vom Registry-Server abgelehnten
// Upload. Der Status-Code und der Antwort-Body der Registry bleiben
// fuer den Aufrufer erhalten.
type RemoteUploadError struct {
	Digest     string
	StatusCode int
	Body       string
}

func (e RemoteUploadError) Error() string {
	return fmt.Sprintf("registry rejected upload of %s: status %d: %s", e.Digest, e.StatusCode, e.Body)
}

// FileEntry beschreibt eine Bundle-Datei im Push-Manifest
type FileEntry struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// PushManifest bindet hochgeladene Blobs unter einem Modellnamen
// zusammen
type PushManifest struct {
	Name  string      `json:"name"`
	Files []FileEntry `json:"files"`
}
