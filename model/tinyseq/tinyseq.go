// Package tinyseq - Kompaktes trainierbares Referenzmodell
//
// Dieses Modul enthaelt:
// - Model: geteilte Embedding-Tabelle plus Task-Koepfe
// - New: Konstruktion mit deterministischer Initialisierung
// - ensureText/ensureLabels/ensureImage: lazy Parameter-Anlage
//
// Die Architektur ist bewusst klein: eine Embedding-Tabelle, ein
// Generationskopf (konditionales LM ueber das Vokabular), ein linearer
// Klassifikationskopf und Mean-Pooling fuer Vektoren. Alle Gradienten
// sind von Hand abgeleitet; es gibt keinen Autograd.
package tinyseq

import (
	"math/rand"
	"sync"

	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/tokenizer"
)

// Standard-Dimensionen
const (
	DefaultDim = 64

	// Bild-Features aus dem vision-Paket: 3 Kanaele x 32 x 32
	ImageFeatureDim = 3 * 32 * 32
)

// Model ist das tinyseq-Referenzmodell.
type Model struct {
	mu sync.Mutex

	tok *tokenizer.Tokenizer
	dev *ml.Device
	dim int

	seed int64

	emb  *ml.Parameter // [V x dim] geteilte Embedding-Tabelle
	genW *ml.Parameter // [V x dim] Generationskopf
	clsW *ml.Parameter // [L x dim] Klassifikationskopf
	clsB *ml.Parameter // [1 x L]
	imgW *ml.Parameter // [dim x ImageFeatureDim] Bild-Projektion
}

// New erstellt ein Modell mit gegebenem Tokenizer und Geraet.
// dim <= 0 waehlt DefaultDim. Die Initialisierung ist deterministisch
// fuer einen festen Seed.
func New(tok *tokenizer.Tokenizer, dev *ml.Device, dim int, seed int64) *Model {
	if dim <= 0 {
		dim = DefaultDim
	}
	return &Model{tok: tok, dev: dev, dim: dim, seed: seed}
}

// Tokenizer gibt den Tokenizer zurueck
func (m *Model) Tokenizer() *tokenizer.Tokenizer { return m.tok }

// Device gibt das Rechengeraet zurueck
func (m *Model) Device() *ml.Device { return m.dev }

// Dim gibt die Embedding-Dimension zurueck
func (m *Model) Dim() int { return m.dim }

// Parameters liefert alle angelegten Parameter fuer den Optimizer
func (m *Model) Parameters() []*ml.Parameter {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*ml.Parameter
	for _, p := range []*ml.Parameter{m.emb, m.genW, m.clsW, m.clsB, m.imgW} {
		if p != nil {
			out = append(out, p)
		}
	}
	return out
}

// initRows fuellt Zeilen [from, rows) mit kleiner Normalverteilung
func initRows(p *ml.Parameter, from int, rng *rand.Rand) {
	for i := from; i < p.Rows; i++ {
		row := p.Row(i)
		for j := range row {
			row[j] = rng.NormFloat64() * 0.1
		}
	}
}

// ensureText legt Embedding und Generationskopf fuer die aktuelle
// Vokabulargroesse an oder waechst sie, wenn das Vokabular beim
// Encoding neue Tokens aufgenommen hat.
func (m *Model) ensureText() {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := m.tok.Len()
	rng := rand.New(rand.NewSource(m.seed))

	if m.emb == nil {
		m.emb = ml.NewParameter("emb.weight", v, m.dim)
		initRows(m.emb, 0, rng)
	} else if m.emb.Rows < v {
		m.emb = growRows(m.emb, v, rng)
	}

	if m.genW == nil {
		m.genW = ml.NewParameter("gen.weight", v, m.dim)
		initRows(m.genW, 0, rng)
	} else if m.genW.Rows < v {
		m.genW = growRows(m.genW, v, rng)
	}
}

// ensureLabels legt den Klassifikationskopf fuer n Labels an
func (m *Model) ensureLabels(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.clsW != nil {
		return
	}

	rng := rand.New(rand.NewSource(m.seed + 1))
	m.clsW = ml.NewParameter("cls.weight", n, m.dim)
	initRows(m.clsW, 0, rng)
	m.clsB = ml.NewParameter("cls.bias", 1, n)
}

// ensureImage legt die Bild-Projektion an
func (m *Model) ensureImage() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.imgW != nil {
		return
	}

	rng := rand.New(rand.NewSource(m.seed + 2))
	m.imgW = ml.NewParameter("img.weight", m.dim, ImageFeatureDim)
	initRows(m.imgW, 0, rng)
}

// growRows vergroessert einen Parameter auf rows Zeilen; bestehende
// Gewichte bleiben erhalten, neue Zeilen werden frisch initialisiert
func growRows(p *ml.Parameter, rows int, rng *rand.Rand) *ml.Parameter {
	grown := ml.NewParameter(p.Name, rows, p.Cols)
	copy(grown.Value, p.Value)
	initRows(grown, p.Rows, rng)
	return grown
}

// BindLabels legt den Klassifikationskopf fuer n Labels an.
// Teil des [model.Classifier] Vertrags.
func (m *Model) BindLabels(n int) {
	m.ensureLabels(n)
}

// SetParameter ersetzt einen Parameter beim Laden aus einem Bundle
// oder beim Import eines konvertierten Checkpoints.
func (m *Model) SetParameter(p *ml.Parameter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch p.Name {
	case "emb.weight":
		m.emb = p
	case "gen.weight":
		m.genW = p
	case "cls.weight":
		m.clsW = p
	case "cls.bias":
		m.clsB = p
	case "img.weight":
		m.imgW = p
	}
}
