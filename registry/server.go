// server.go - Registry-Server: Router und Server-Setup
//
// Dieses Modul enthaelt:
// - Server: selbst-hostbare Registry ueber einem Blob-Verzeichnis
// - GenerateRoutes: Router mit CORS und optionalem API-Key-Check
// - Serve: Listener-Loop mit Signal-Handling
package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/logutil"
	"github.com/backprop-ai/tune/task"
	"github.com/backprop-ai/tune/version"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

// Server ist eine selbst-hostbare Registry. Sie nimmt Bundles ueber
// das Blob/Manifest-Protokoll an, baut sie zu ladbaren Tasks zusammen
// und beantwortet Remote-Inferenz gegen registrierte Modelle.
type Server struct {
	dir      string        // Wurzel fuer blobs/ und models/
	reg      *task.Registry
	upstream *url.URL // optionales Push-Ziel; nil bedeutet lokal registrieren

	mu       sync.Mutex
	statuses map[string]api.BuildStatus
	sessions map[string]*blobSession
}

// NewServer erstellt einen Registry-Server ueber dem Verzeichnis dir.
func NewServer(dir string, reg *task.Registry, upstream *url.URL) *Server {
	return &Server{
		dir:      dir,
		reg:      reg,
		upstream: upstream,
		statuses: make(map[string]api.BuildStatus),
		sessions: make(map[string]*blobSession),
	}
}

// apiKeyMiddleware prueft x-api-key, wenn TUNE_API_KEY gesetzt ist
func apiKeyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := envconfig.APIKey()
		if key == "" {
			c.Next()
			return
		}

		if c.GetHeader("x-api-key") != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Next()
	}
}

// GenerateRoutes erstellt und konfiguriert den HTTP-Router
func (s *Server) GenerateRoutes() http.Handler {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowWildcard = true
	corsConfig.AllowBrowserExtensions = true
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = []string{
		"Authorization",
		"Content-Type",
		"User-Agent",
		"Accept",
		"X-Requested-With",
		"X-Part-Offset",
		"x-api-key",
	}

	r := gin.Default()
	r.HandleMethodNotAllowed = true
	r.Use(
		cors.New(corsConfig),
		apiKeyMiddleware(),
	)

	// General
	r.HEAD("/", func(c *gin.Context) { c.String(http.StatusOK, "tune registry is running") })
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "tune registry is running") })
	r.HEAD("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })
	r.GET("/api/version", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"version": version.Version}) })

	// Blob upload
	r.POST("/api/blobs/:digest", s.CreateBlobHandler)
	r.HEAD("/api/blobs/:digest", s.HeadBlobHandler)
	r.PATCH("/api/blobs/uploads/:id", s.PatchBlobHandler)
	r.PUT("/api/blobs/uploads/:id", s.CommitBlobHandler)

	// Manifests and build status
	r.PUT("/api/manifests/:name", s.CreateManifestHandler)
	r.GET("/api/status/:name", s.StatusHandler)

	// Push orchestration and remote inference
	r.POST("/api/push", s.PushHandler)
	r.POST("/api/infer", s.InferHandler)

	return r
}

// Serve startet den Registry-Server auf dem Listener
func Serve(ln net.Listener, dir string, reg *task.Registry, upstream *url.URL) error {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))

	if err := os.MkdirAll(filepath.Join(dir, "blobs", "uploads"), 0o755); err != nil {
		return err
	}

	s := NewServer(dir, reg, upstream)
	srvr := &http.Server{Handler: s.GenerateRoutes()}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signals
		srvr.Close()
	}()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	if err := srvr.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// streamResponse streamt ndjson Responses
func streamResponse(c *gin.Context, ch chan any) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Stream(func(w io.Writer) bool {
		val, ok := <-ch
		if !ok {
			return false
		}

		if h, ok := val.(gin.H); ok {
			if e, ok := h["error"].(string); ok {
				status, ok := h["status"].(int)
				if !ok {
					status = http.StatusInternalServerError
				}

				if !c.Writer.Written() {
					c.Header("Content-Type", "application/json")
					c.JSON(status, gin.H{"error": e})
				} else {
					if err := json.NewEncoder(c.Writer).Encode(gin.H{"error": e}); err != nil {
						slog.Error("streamResponse failed to encode json error", "error", err)
					}
				}

				return false
			}
		}

		bts, err := json.Marshal(val)
		if err != nil {
			slog.Info(fmt.Sprintf("streamResponse: json.Marshal failed with %s", err))
			return false
		}

		bts = append(bts, '\n')
		if _, err := w.Write(bts); err != nil {
			slog.Info(fmt.Sprintf("streamResponse: w.Write failed with %s", err))
			return false
		}

		return true
	})
}

// setStatus aktualisiert den Build-Zustand eines Modells
func (s *Server) setStatus(name, state, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[name] = api.BuildStatus{Name: name, State: state, Detail: detail}
}
