// optimizer.go - Parameter und Adam-Optimizer
//
// Dieses Modul enthaelt:
// - Parameter: benannter Gewichtsvektor mit Gradientenpuffer
// - Adam: Adam-Optimizer mit Momenten-Zustand
// - Snapshot/Restore: transaktionale Sicherung fuer Probe-Steps
package ml

import (
	"math"
)

// Parameter ist ein benannter, flacher Gewichtsvektor. Matrizen werden
// row-major abgelegt; der Name identifiziert den Tensor im Bundle und
// im Optimizer-Zustand.
type Parameter struct {
	Name  string
	Value []float64
	Grad  []float64
	Rows  int
	Cols  int
}

// NewParameter legt einen rows x cols Parameter mit Gradientenpuffer an
func NewParameter(name string, rows, cols int) *Parameter {
	return &Parameter{
		Name:  name,
		Value: make([]float64, rows*cols),
		Grad:  make([]float64, rows*cols),
		Rows:  rows,
		Cols:  cols,
	}
}

// Row gibt die i-te Zeile des Werts zurueck (geteilt, keine Kopie)
func (p *Parameter) Row(i int) []float64 {
	return p.Value[i*p.Cols : (i+1)*p.Cols]
}

// GradRow gibt die i-te Zeile des Gradienten zurueck
func (p *Parameter) GradRow(i int) []float64 {
	return p.Grad[i*p.Cols : (i+1)*p.Cols]
}

// ZeroGrad setzt den Gradienten zurueck
func (p *Parameter) ZeroGrad() {
	for i := range p.Grad {
		p.Grad[i] = 0
	}
}

// AdamConfig konfiguriert den Optimizer
type AdamConfig struct {
	LearningRate float64
	Beta1        float64
	Beta2        float64
	Epsilon      float64
	WeightDecay  float64
}

// DefaultAdamConfig liefert die ueblichen Adam-Defaults
func DefaultAdamConfig(lr float64) AdamConfig {
	return AdamConfig{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
		WeightDecay:  0,
	}
}

// Adam haelt die Momenten-Schaetzungen pro Parameter
type Adam struct {
	cfg  AdamConfig
	step int
	m    map[string][]float64
	v    map[string][]float64
}

// NewAdam erstellt einen Adam-Optimizer
func NewAdam(cfg AdamConfig) *Adam {
	return &Adam{
		cfg: cfg,
		m:   make(map[string][]float64),
		v:   make(map[string][]float64),
	}
}

// Step fuehrt einen Optimizer-Schritt ueber alle Parameter aus
func (a *Adam) Step(params []*Parameter) {
	a.step++
	bc1 := 1 - math.Pow(a.cfg.Beta1, float64(a.step))
	bc2 := 1 - math.Pow(a.cfg.Beta2, float64(a.step))

	for _, p := range params {
		m, ok := a.m[p.Name]
		if !ok || len(m) != len(p.Value) {
			// neuer oder gewachsener Parameter: Momente neu anlegen
			m = make([]float64, len(p.Value))
			a.m[p.Name] = m
		}
		v, ok := a.v[p.Name]
		if !ok || len(v) != len(p.Value) {
			v = make([]float64, len(p.Value))
			a.v[p.Name] = v
		}

		for i, g := range p.Grad {
			if a.cfg.WeightDecay != 0 {
				g += a.cfg.WeightDecay * p.Value[i]
			}
			m[i] = a.cfg.Beta1*m[i] + (1-a.cfg.Beta1)*g
			v[i] = a.cfg.Beta2*v[i] + (1-a.cfg.Beta2)*g*g

			mhat := m[i] / bc1
			vhat := v[i] / bc2
			p.Value[i] -= a.cfg.LearningRate * mhat / (math.Sqrt(vhat) + a.cfg.Epsilon)
		}
	}
}

// ZeroGrad setzt alle Gradienten zurueck
func (a *Adam) ZeroGrad(params []*Parameter) {
	for _, p := range params {
		p.ZeroGrad()
	}
}

// State ist ein tiefer Snapshot von Parametern und Optimizer-Momenten.
// Der Batch-Size-Tuner stellt damit den Zustand von vor den Probe-Steps
// wieder her, damit Probe-Steps nie in die trainierten Gewichte lecken.
type State struct {
	step   int
	m      map[string][]float64
	v      map[string][]float64
	params map[string][]float64
}

// Snapshot sichert Parameterwerte und Optimizer-Zustand
func (a *Adam) Snapshot(params []*Parameter) *State {
	s := &State{
		step:   a.step,
		m:      make(map[string][]float64, len(a.m)),
		v:      make(map[string][]float64, len(a.v)),
		params: make(map[string][]float64, len(params)),
	}
	for k, val := range a.m {
		s.m[k] = append([]float64(nil), val...)
	}
	for k, val := range a.v {
		s.v[k] = append([]float64(nil), val...)
	}
	for _, p := range params {
		s.params[p.Name] = append([]float64(nil), p.Value...)
	}
	return s
}

// Restore stellt einen Snapshot wieder her. Parameter, die im Snapshot
// fehlen, bleiben unveraendert.
func (a *Adam) Restore(s *State, params []*Parameter) {
	a.step = s.step
	a.m = make(map[string][]float64, len(s.m))
	a.v = make(map[string][]float64, len(s.v))
	for k, val := range s.m {
		a.m[k] = append([]float64(nil), val...)
	}
	for k, val := range s.v {
		a.v[k] = append([]float64(nil), val...)
	}
	for _, p := range params {
		if saved, ok := s.params[p.Name]; ok {
			copy(p.Value, saved)
		}
		p.ZeroGrad()
	}
}

// BestParams haelt die Parameterwerte des besten Validierungsstands
type BestParams map[string][]float64

// CopyParams kopiert die aktuellen Parameterwerte
func CopyParams(params []*Parameter) BestParams {
	out := make(BestParams, len(params))
	for _, p := range params {
		out[p.Name] = append([]float64(nil), p.Value...)
	}
	return out
}

// RestoreParams schreibt gesicherte Werte zurueck
func RestoreParams(best BestParams, params []*Parameter) {
	for _, p := range params {
		if saved, ok := best[p.Name]; ok {
			copy(p.Value, saved)
		}
	}
}
