// upload.go - Blob-Upload eines einzelnen Bundle-Files
//
// Dieses Modul enthaelt:
// - blobUpload: Upload-Session mit paralleler Part-Ausfuehrung
// - Prepare, Run, Wait
//
// Parts laufen parallel ueber eine errgroup; die Reihenfolge auf dem
// Server wird ueber den Part-Offset hergestellt, nicht ueber die
// Ankunftsreihenfolge.
package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/backprop-ai/tune/api"
)

// uploadPart ist ein zusammenhaengender Abschnitt der Blob-Datei
type uploadPart struct {
	N      int
	Offset int64
	Size   int64
}

// blobUpload ist eine laufende Upload-Session fuer einen Blob
type blobUpload struct {
	Digest string
	Path   string

	Total     int64
	Completed atomic.Int64
	Parts     []uploadPart

	uploadURL *url.URL

	done chan struct{}
	err  error
}

// Prepare startet die Upload-Session beim Server und partitioniert
// die Datei. Meldet der Server StatusCreated, existiert der Blob
// bereits und es gibt nichts zu tun.
func (b *blobUpload) Prepare(ctx context.Context, base *url.URL) error {
	fi, err := os.Stat(b.Path)
	if err != nil {
		return err
	}
	b.Total = fi.Size()
	b.done = make(chan struct{})

	requestURL := base.JoinPath("api", "blobs", b.Digest)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL.String(), nil)
	if err != nil {
		return err
	}

	resp, err := uploadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated {
		// Blob existiert schon auf der Registry
		b.Completed.Store(b.Total)
		close(b.done)
		return nil
	}

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return RemoteUploadError{Digest: b.Digest, StatusCode: resp.StatusCode, Body: string(body)}
	}

	location := resp.Header.Get("Location")
	b.uploadURL, err = base.Parse(location)
	if err != nil {
		return fmt.Errorf("parse upload location %q: %w", location, err)
	}

	size := b.Total / numUploadParts
	switch {
	case size < minUploadPartSize:
		size = minUploadPartSize
	case size > maxUploadPartSize:
		size = maxUploadPartSize
	}

	var offset int64
	for offset < b.Total {
		if offset+size > b.Total {
			size = b.Total - offset
		}
		b.Parts = append(b.Parts, uploadPart{N: len(b.Parts), Offset: offset, Size: size})
		offset += size
	}
	return nil
}

// Run laedt alle Parts parallel hoch und schliesst die Session mit
// dem Digest ab. Es gibt keine Wiederholungen: der erste Fehler
// bricht den Upload ab.
func (b *blobUpload) Run(ctx context.Context) {
	defer close(b.done)

	file, err := os.Open(b.Path)
	if err != nil {
		b.err = err
		return
	}
	defer file.Close()

	g, inner := errgroup.WithContext(ctx)
	g.SetLimit(numUploadParts)
	for i := range b.Parts {
		part := b.Parts[i]
		g.Go(func() error {
			if err := b.uploadPart(inner, file, part); err != nil {
				return err
			}
			b.Completed.Add(part.Size)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		b.err = err
		return
	}

	b.err = b.commit(ctx)
}

// uploadPart traegt einen Part per PATCH ein
func (b *blobUpload) uploadPart(ctx context.Context, file *os.File, part uploadPart) error {
	body := io.NewSectionReader(file, part.Offset, part.Size)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, b.uploadURL.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Part-Offset", fmt.Sprintf("%d", part.Offset))
	req.ContentLength = part.Size

	resp, err := uploadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return RemoteUploadError{Digest: b.Digest, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// commit schliesst die Session ab; der Server verifiziert den Digest
func (b *blobUpload) commit(ctx context.Context) error {
	requestURL := *b.uploadURL
	values := requestURL.Query()
	values.Set("digest", b.Digest)
	requestURL.RawQuery = values.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, requestURL.String(), nil)
	if err != nil {
		return err
	}

	resp, err := uploadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return RemoteUploadError{Digest: b.Digest, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// Wait blockiert bis der Upload fertig ist und meldet periodisch
// Fortschritt
func (b *blobUpload) Wait(ctx context.Context, fn func(api.ProgressResponse) error) error {
	ticker := time.NewTicker(60 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := fn(api.ProgressResponse{
			Status:    fmt.Sprintf("pushing %s", shortDigest(b.Digest)),
			Digest:    b.Digest,
			Total:     b.Total,
			Completed: b.Completed.Load(),
		}); err != nil {
			return err
		}

		select {
		case <-b.done:
			return b.err
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// shortDigest kuerzt "sha256:<hex>" auf die ersten zwoelf Hex-Zeichen
func shortDigest(digest string) string {
	if len(digest) >= 19 {
		return digest[7:19]
	}
	return digest
}
