// generate.go - Autoregressives Decoding fuer die Generation-Task
//
// Dieses Modul enthaelt:
// - Generate: Greedy-, Sampling- und Beam-Search-Decoding
// - Transformationen: Temperatur, Top-K, Top-P, Repetition Penalty
//
// Bei num_beams > 1 wird Beam Search verwendet und Sampling-Optionen
// werden ignoriert. Bei do_sample=false ist das Decoding deterministisch
// (greedy bzw. bester Beam).
package task

import (
	"context"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/emirpasic/gods/v2/queues/priorityqueue"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model"
	"github.com/backprop-ai/tune/tokenizer"
)

// Generate erzeugt Fortsetzungen fuer die Eingabe. Die Anzahl der
// Ergebnisse ist num_generations (Beam Search: die besten Beams).
func (t *Task) Generate(ctx context.Context, input string, opts *api.GenerateOptions) ([]string, error) {
	if t.kind != api.TaskGeneration {
		return nil, model.ErrUnsupportedTask
	}
	if input == "" {
		return nil, api.ConfigurationError{Field: "input", Reason: "empty input"}
	}

	o := api.DefaultGenerateOptions()
	if opts != nil {
		o = mergeGenerateOptions(*opts)
	}
	if t.maxOut > 0 && (opts == nil || opts.MaxLength == 0) {
		o.MaxLength = t.maxOut
	}

	gen := t.mdl.(model.Generator)
	tok := gen.Tokenizer()

	maxIn := t.maxIn
	if maxIn == 0 {
		maxIn = api.DefaultFinetuneOptions().MaxInputLength
	}
	ids := tok.Encode(input, maxIn)

	hidden, err := gen.EncodeInput(ids)
	if err != nil {
		return nil, err
	}

	if o.NumBeams > 1 {
		return t.beamSearch(ctx, gen, hidden, ids, o)
	}

	outputs := make([]string, 0, o.NumGenerations)
	for i := 0; i < o.NumGenerations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		seed := int64(o.Seed)
		if o.Seed >= 0 {
			// unabhaengige, aber reproduzierbare Generationen
			seed += int64(i)
		} else {
			seed = time.Now().UnixNano() + int64(i)
		}

		seq := t.decodeSequence(gen, hidden, ids, o, rand.New(rand.NewSource(seed)))
		outputs = append(outputs, tok.Decode(seq))
	}
	return outputs, nil
}

// mergeGenerateOptions ersetzt Nullwerte durch Defaults
func mergeGenerateOptions(o api.GenerateOptions) api.GenerateOptions {
	def := api.DefaultGenerateOptions()
	if o.Temperature == 0 {
		o.Temperature = def.Temperature
	}
	if o.TopK == 0 {
		o.TopK = def.TopK
	}
	if o.TopP == 0 {
		o.TopP = def.TopP
	}
	if o.NumBeams == 0 {
		o.NumBeams = def.NumBeams
	}
	if o.NumGenerations == 0 {
		o.NumGenerations = def.NumGenerations
	}
	if o.MinLength == 0 {
		o.MinLength = def.MinLength
	}
	if o.MaxLength == 0 {
		o.MaxLength = def.MaxLength
	}
	if o.RepetitionPenalty == 0 {
		o.RepetitionPenalty = def.RepetitionPenalty
	}
	if o.LengthPenalty == 0 {
		o.LengthPenalty = def.LengthPenalty
	}
	if o.Seed == 0 {
		o.Seed = def.Seed
	}
	return o
}

// applyPenalties wendet Repetition Penalty und Min-Length-Maske an
func applyPenalties(logits []float64, seen map[int32]bool, length int, o api.GenerateOptions) {
	if p := float64(o.RepetitionPenalty); p != 1 && p > 0 {
		for id := range seen {
			if logits[id] > 0 {
				logits[id] /= p
			} else {
				logits[id] *= p
			}
		}
	}

	if length < o.MinLength {
		logits[tokenizer.EOSID] = math.Inf(-1)
	}
}

// decodeSequence decodiert eine einzelne Sequenz (greedy oder sampled)
func (t *Task) decodeSequence(gen model.Generator, hidden []float64, input []int32, o api.GenerateOptions, rng *rand.Rand) []int32 {
	seen := make(map[int32]bool, len(input))
	for _, id := range input {
		seen[id] = true
	}

	var seq []int32
	prev := tokenizer.BOSID

	for len(seq) < o.MaxLength {
		logits := gen.StepLogits(hidden, prev)
		applyPenalties(logits, seen, len(seq), o)

		var next int32
		if o.DoSample {
			next = sampleToken(logits, o, rng)
		} else {
			next = argmax(logits)
		}

		if next == tokenizer.EOSID {
			break
		}

		seq = append(seq, next)
		seen[next] = true
		prev = next
	}
	return seq
}

// argmax liefert den Index des groessten Logits
func argmax(logits []float64) int32 {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return int32(best)
}

// candidate ist ein Token mit Wahrscheinlichkeit fuer Top-K/Top-P
type candidate struct {
	id int32
	p  float64
}

// sampleToken zieht ein Token nach Temperatur, Top-K und Top-P
func sampleToken(logits []float64, o api.GenerateOptions, rng *rand.Rand) int32 {
	probs := append([]float64(nil), logits...)
	ml.Softmax(probs, float64(o.Temperature))

	// Top-K ueber einen Max-Heap
	k := o.TopK
	if k <= 0 || k > len(probs) {
		k = len(probs)
	}

	pq := priorityqueue.NewWith[candidate](func(a, b candidate) int {
		switch {
		case a.p > b.p:
			return -1
		case a.p < b.p:
			return 1
		}
		return 0
	})
	for i, p := range probs {
		pq.Enqueue(candidate{id: int32(i), p: p})
	}

	kept := make([]candidate, 0, k)
	var cum float64
	for len(kept) < k {
		c, ok := pq.Dequeue()
		if !ok {
			break
		}
		kept = append(kept, c)
		cum += c.p

		// Top-P: Kandidaten mit kumulativer Masse > top_p abschneiden
		if o.TopP > 0 && o.TopP < 1 && cum >= float64(o.TopP) {
			break
		}
	}

	var total float64
	for _, c := range kept {
		total += c.p
	}

	r := rng.Float64() * total
	for _, c := range kept {
		r -= c.p
		if r <= 0 {
			return c.id
		}
	}
	return kept[len(kept)-1].id
}

// beam ist ein Pfad im Beam Search
type beam struct {
	seq  []int32
	logp float64
	done bool
}

// score berechnet den laengennormierten Beam-Score
func (b beam) score(lengthPenalty float64) float64 {
	l := float64(len(b.seq))
	if l == 0 {
		l = 1
	}
	if lengthPenalty <= 0 {
		lengthPenalty = 1
	}
	return b.logp / math.Pow(l, lengthPenalty)
}

// beamSearch decodiert mit num_beams Pfaden; Sampling-Optionen werden
// ignoriert.
func (t *Task) beamSearch(ctx context.Context, gen model.Generator, hidden []float64, input []int32, o api.GenerateOptions) ([]string, error) {
	tok := gen.Tokenizer()
	beams := []beam{{}}

	for step := 0; step < o.MaxLength; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var next []beam
		for _, b := range beams {
			if b.done {
				next = append(next, b)
				continue
			}

			prev := tokenizer.BOSID
			if len(b.seq) > 0 {
				prev = b.seq[len(b.seq)-1]
			}

			logits := gen.StepLogits(hidden, prev)

			seen := make(map[int32]bool, len(input)+len(b.seq))
			for _, id := range input {
				seen[id] = true
			}
			for _, id := range b.seq {
				seen[id] = true
			}
			applyPenalties(logits, seen, len(b.seq), o)

			ml.LogSoftmax(logits)
			for _, c := range topIndices(logits, o.NumBeams) {
				nb := beam{
					seq:  append(copyIDs(b.seq), c),
					logp: b.logp + logits[c],
				}
				if c == tokenizer.EOSID {
					nb.seq = nb.seq[:len(nb.seq)-1]
					nb.done = true
				}
				next = append(next, nb)
			}
		}

		sort.SliceStable(next, func(i, j int) bool {
			return next[i].score(float64(o.LengthPenalty)) > next[j].score(float64(o.LengthPenalty))
		})
		if len(next) > o.NumBeams {
			next = next[:o.NumBeams]
		}
		beams = next

		allDone := true
		for _, b := range beams {
			if !b.done {
				allDone = false
				break
			}
		}
		if allDone {
			break
		}
	}

	n := o.NumGenerations
	if n > len(beams) {
		n = len(beams)
	}
	outputs := make([]string, 0, n)
	for _, b := range beams[:n] {
		outputs = append(outputs, tok.Decode(b.seq))
	}
	return outputs, nil
}

// topIndices liefert die Indizes der n groessten Werte
func topIndices(values []float64, n int) []int32 {
	idx := make([]int32, len(values))
	for i := range idx {
		idx[i] = int32(i)
	}
	sort.Slice(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})
	if n > len(idx) {
		n = len(idx)
	}
	return idx[:n]
}
