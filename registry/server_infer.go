// server_infer.go - Remote-Inferenz und Push-Orchestrierung
//
// Dieses Modul enthaelt:
// - InferHandler: Inferenz gegen ein registriertes Modell
// - PushHandler: Push eines lokalen Bundles, ndjson-Fortschritt
package registry

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/bundle"
	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/ml"
)

// InferHandler beantwortet eine Inferenz-Anfrage gegen ein
// registriertes Modell
func (s *Server) InferHandler(c *gin.Context) {
	var req api.InferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	t, ok := s.reg.Get(req.Model)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("model %q not found", req.Model)})
		return
	}

	if req.Task != "" && req.Task != t.Kind() {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("model %q is a %s model, not %s", req.Model, t.Kind(), req.Task)})
		return
	}

	ctx := c.Request.Context()
	switch t.Kind() {
	case api.TaskGeneration:
		opts := api.DefaultGenerateOptions()
		if err := opts.FromMap(req.Options); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		outputs, err := t.Generate(ctx, req.Input, &opts)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, api.InferResponse{Output: outputs[0]})

	case api.TaskClassification:
		probs, err := t.Classify(ctx, req.Input, nil)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, api.InferResponse{Probabilities: probs})

	case api.TaskVectorisation:
		vec, err := t.Vector(ctx, req.Input)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, api.InferResponse{Vector: vec})

	case api.TaskImageClassification:
		probs, err := t.ClassifyImage(ctx, req.Image)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, api.InferResponse{Probabilities: probs})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown task kind %q", t.Kind())})
	}
}

// PushHandler pusht ein lokales Bundle. Mit konfiguriertem Upstream
// laeuft der Blob-Upload dorthin; ohne Upstream wird das Bundle lokal
// geladen und registriert.
func (s *Server) PushHandler(c *gin.Context) {
	var req api.PushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "model name is required"})
		return
	}

	dir := filepath.Join(envconfig.Models(), req.Name)

	ch := make(chan any)
	go func() {
		defer close(ch)

		if s.upstream == nil {
			s.pushLocal(ch, req.Name, dir)
			return
		}

		err := Push(c.Request.Context(), s.upstream, dir, req.Name, func(p api.ProgressResponse) error {
			ch <- p
			return nil
		})
		if err != nil {
			ch <- gin.H{"error": err.Error()}
		}
	}()

	streamResponse(c, ch)
}

// pushLocal laedt das Bundle und registriert es in der eigenen Registry
func (s *Server) pushLocal(ch chan any, name, dir string) {
	ch <- api.ProgressResponse{Status: "loading bundle"}

	t, err := bundle.Load(dir, ml.NewDevice())
	if err != nil {
		ch <- gin.H{"error": err.Error()}
		return
	}

	s.reg.Remove(name)
	if err := s.reg.Register(name, t); err != nil {
		ch <- gin.H{"error": err.Error()}
		return
	}

	s.setStatus(name, "available", "")
	ch <- api.ProgressResponse{Status: "success"}
}
