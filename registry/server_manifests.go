// server_manifests.go - Manifest-Annahme und Bundle-Build
//
// Dieses Modul enthaelt:
// - CreateManifestHandler: nimmt ein Push-Manifest an und startet den Build
// - StatusHandler: Build-Zustand eines Modells
//
// Der Build laeuft asynchron: das Manifest wird sofort bestaetigt,
// der Zustand wandert building -> available oder building -> failed.
package registry

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/bundle"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/names"
)

// CreateManifestHandler nimmt ein Push-Manifest an. Alle referenzierten
// Blobs muessen bereits hochgeladen sein.
func (s *Server) CreateManifestHandler(c *gin.Context) {
	name := c.Param("name")
	if !names.Parse(name).IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid model name %q", name)})
		return
	}

	var manifest PushManifest
	if err := c.ShouldBindJSON(&manifest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if len(manifest.Files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "manifest has no files"})
		return
	}

	for _, f := range manifest.Files {
		if _, err := os.Stat(s.blobPath(f.Digest)); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("blob %s for %s not uploaded", f.Digest, f.Name)})
			return
		}
	}

	s.setStatus(name, "building", "")
	go s.build(name, manifest)

	c.Status(http.StatusCreated)
}

// build setzt das Bundle aus den Blobs zusammen, laedt es und
// registriert den Task unter seinem Namen
func (s *Server) build(name string, manifest PushManifest) {
	dir := filepath.Join(s.dir, "models", name)

	if err := s.assemble(dir, manifest); err != nil {
		slog.Error("bundle assembly failed", "model", name, "error", err)
		s.setStatus(name, "failed", err.Error())
		return
	}

	t, err := bundle.Load(dir, ml.NewDevice())
	if err != nil {
		slog.Error("bundle load failed", "model", name, "error", err)
		s.setStatus(name, "failed", err.Error())
		return
	}

	// erneuter Push ersetzt das Modell
	s.reg.Remove(name)
	if err := s.reg.Register(name, t); err != nil {
		s.setStatus(name, "failed", err.Error())
		return
	}

	slog.Info("model available", "model", name, "task", t.Kind())
	s.setStatus(name, "available", "")
}

// assemble kopiert die Blobs unter ihren Dateinamen ins Modell-Verzeichnis
func (s *Server) assemble(dir string, manifest PushManifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, f := range manifest.Files {
		src, err := os.Open(s.blobPath(f.Digest))
		if err != nil {
			return err
		}

		dst, err := os.Create(filepath.Join(dir, f.Name))
		if err != nil {
			src.Close()
			return err
		}

		_, err = io.Copy(dst, src)
		src.Close()
		if closeErr := dst.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// StatusHandler liefert den Build-Zustand eines Modells
func (s *Server) StatusHandler(c *gin.Context) {
	name := c.Param("name")

	s.mu.Lock()
	status, ok := s.statuses[name]
	s.mu.Unlock()

	if !ok {
		if _, registered := s.reg.Get(name); registered {
			c.JSON(http.StatusOK, api.BuildStatus{Name: name, State: "available"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("model %q not found", name)})
		return
	}

	c.JSON(http.StatusOK, status)
}
