// push.go - Push eines Bundle-Verzeichnisses zur Registry
//
// Dieses Modul enthaelt:
// - Push: laedt alle Bundle-Dateien als Blobs hoch und bindet sie
//   per Manifest unter dem Modellnamen
package registry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sort"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/names"
)

// scanBundle berechnet Digest und Groesse jeder Datei im
// Bundle-Verzeichnis
func scanBundle(dir string) ([]FileEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []FileEntry
	for _, e := range entries {
		if e.IsDir() {
			continue
		}

		f, err := os.Open(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}

		h := sha256.New()
		n, err := io.Copy(h, f)
		f.Close()
		if err != nil {
			return nil, err
		}

		files = append(files, FileEntry{
			Name:   e.Name(),
			Digest: fmt.Sprintf("sha256:%x", h.Sum(nil)),
			Size:   n,
		})
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("bundle %s contains no files", dir)
	}

	// deterministische Upload-Reihenfolge
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Push laedt das Bundle-Verzeichnis dir unter name zur Registry unter
// base hoch. fn wird fuer jede Fortschrittsmeldung aufgerufen; gibt fn
// einen Fehler zurueck, bricht der Push ab.
func Push(ctx context.Context, base *url.URL, dir, name string, fn func(api.ProgressResponse) error) error {
	if !names.Parse(name).IsValid() {
		return fmt.Errorf("invalid model name %q", name)
	}

	if err := fn(api.ProgressResponse{Status: "scanning bundle"}); err != nil {
		return err
	}

	files, err := scanBundle(dir)
	if err != nil {
		return err
	}

	for _, f := range files {
		upload := &blobUpload{Digest: f.Digest, Path: filepath.Join(dir, f.Name)}
		if err := upload.Prepare(ctx, base); err != nil {
			return err
		}

		if len(upload.Parts) > 0 {
			go upload.Run(ctx)
		}
		if err := upload.Wait(ctx, fn); err != nil {
			return err
		}
	}

	if err := fn(api.ProgressResponse{Status: "writing manifest"}); err != nil {
		return err
	}
	if err := putManifest(ctx, base, name, files); err != nil {
		return err
	}

	return fn(api.ProgressResponse{Status: "success"})
}

// putManifest bindet die hochgeladenen Blobs unter dem Modellnamen
func putManifest(ctx context.Context, base *url.URL, name string, files []FileEntry) error {
	data, err := json.Marshal(PushManifest{Name: name, Files: files})
	if err != nil {
		return err
	}

	requestURL := base.JoinPath("api", "manifests", name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, requestURL.String(), bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := uploadClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return RemoteUploadError{Digest: name, StatusCode: resp.StatusCode, Body: string(body)}
	}
	return nil
}
