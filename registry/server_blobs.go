// server_blobs.go - Blob-Endpunkte des Registry-Servers
//
// Dieses Modul enthaelt:
// - CreateBlobHandler, HeadBlobHandler, PatchBlobHandler, CommitBlobHandler
//
// Parts duerfen in beliebiger Reihenfolge und parallel ankommen; die
// Session schreibt sie per WriteAt an ihren Offset. Erst der Commit
// verifiziert den Digest der vollstaendigen Datei.
package registry

import (
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// blobSession ist eine laufende Upload-Session auf Server-Seite
type blobSession struct {
	mu     sync.Mutex
	digest string
	path   string
	file   *os.File
}

// blobPath bildet einen Digest auf seinen Ablage-Pfad ab
func (s *Server) blobPath(digest string) string {
	return filepath.Join(s.dir, "blobs", strings.ReplaceAll(digest, ":", "-"))
}

func validDigest(digest string) bool {
	return strings.HasPrefix(digest, "sha256:") && len(digest) == 71
}

// CreateBlobHandler startet eine Upload-Session oder meldet einen
// bereits vorhandenen Blob
func (s *Server) CreateBlobHandler(c *gin.Context) {
	digest := c.Param("digest")
	if !validDigest(digest) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid digest %q", digest)})
		return
	}

	if _, err := os.Stat(s.blobPath(digest)); err == nil {
		c.Status(http.StatusCreated)
		return
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, "blobs", "uploads", id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	file, err := os.Create(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.sessions[id] = &blobSession{digest: digest, path: path, file: file}
	s.mu.Unlock()

	c.Header("Location", "/api/blobs/uploads/"+id)
	c.Status(http.StatusAccepted)
}

// HeadBlobHandler prueft ob ein Blob vorhanden ist
func (s *Server) HeadBlobHandler(c *gin.Context) {
	digest := c.Param("digest")
	if !validDigest(digest) {
		c.Status(http.StatusBadRequest)
		return
	}

	if _, err := os.Stat(s.blobPath(digest)); err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Status(http.StatusOK)
}

func (s *Server) session(id string) (*blobSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// PatchBlobHandler schreibt einen Part an seinen Offset
func (s *Server) PatchBlobHandler(c *gin.Context) {
	sess, ok := s.session(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload session"})
		return
	}

	offset, err := strconv.ParseInt(c.GetHeader("X-Part-Offset"), 10, 64)
	if err != nil || offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid X-Part-Offset header"})
		return
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sess.mu.Lock()
	_, err = sess.file.WriteAt(data, offset)
	sess.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Status(http.StatusAccepted)
}

// CommitBlobHandler verifiziert den Digest und legt den Blob ab
func (s *Server) CommitBlobHandler(c *gin.Context) {
	id := c.Param("id")
	sess, ok := s.session(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown upload session"})
		return
	}

	digest := c.Query("digest")
	if digest != sess.digest {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("digest %q does not match session", digest)})
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.file.Sync(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if _, err := sess.file.Seek(0, io.SeekStart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h := sha256.New()
	if _, err := io.Copy(h, sess.file); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sess.file.Close()

	if actual := fmt.Sprintf("sha256:%x", h.Sum(nil)); actual != sess.digest {
		os.Remove(sess.path)
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("uploaded data has digest %s, expected %s", actual, sess.digest)})
		return
	}

	if err := os.Rename(sess.path, s.blobPath(sess.digest)); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()

	c.Status(http.StatusCreated)
}
