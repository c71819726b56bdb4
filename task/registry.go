// registry.go - Explizite Registry fuer benannte Tasks
//
// Dieses Modul enthaelt:
// - Registry: Name -> Task Abbildung mit expliziter Lebensdauer
//
// Die Registry ist bewusst ein Wert, der in Konstruktoren hineingereicht
// wird; es gibt keinen prozessweiten impliziten Namensraum.
package task

import (
	"fmt"
	"sync"

	"github.com/backprop-ai/tune/api"
)

// Registry bildet Modellnamen auf Task-Fassaden ab.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]*Task
}

// NewRegistry erstellt eine leere Registry
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]*Task)}
}

// Register nimmt einen Task unter einem Namen auf
func (r *Registry) Register(name string, t *Task) error {
	if name == "" {
		return api.ConfigurationError{Field: "name", Reason: "empty model name"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[name]; ok {
		return fmt.Errorf("model %q already registered", name)
	}
	r.tasks[name] = t
	return nil
}

// Get liefert den Task zu einem Namen
func (r *Registry) Get(name string) (*Task, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tasks[name]
	return t, ok
}

// Remove entfernt einen Task
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, name)
}

// Names gibt alle registrierten Namen zurueck
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		out = append(out, name)
	}
	return out
}
