// bundle_test.go - Tests fuer Save/Load-Roundtrip und Verifikation
package bundle

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model/tinyseq"
	"github.com/backprop-ai/tune/task"
	"github.com/backprop-ai/tune/tokenizer"
)

// trainedClassifier liefert einen kurz trainierten Klassifikations-Task
func trainedClassifier(t *testing.T) *task.Task {
	t.Helper()

	mdl := tinyseq.New(tokenizer.New(), ml.NewDevice(), 16, 3)
	tk, err := task.New(api.TaskClassification, mdl)
	require.NoError(t, err)

	examples := []api.Example{
		{Input: "good great excellent", Target: "positive"},
		{Input: "bad awful terrible", Target: "negative"},
		{Input: "wonderful superb good", Target: "positive"},
		{Input: "horrible dreadful bad", Target: "negative"},
		{Input: "great good wonderful", Target: "positive"},
		{Input: "awful bad horrible", Target: "negative"},
		{Input: "excellent wonderful great", Target: "positive"},
		{Input: "terrible horrible awful", Target: "negative"},
		{Input: "superb excellent good", Target: "positive"},
		{Input: "dreadful terrible bad", Target: "negative"},
	}
	opts := &api.FinetuneOptions{Epochs: 10, LearningRate: 0.05, BatchSize: 2, Patience: 10}
	require.NoError(t, tk.Finetune(context.Background(), examples, opts))

	tk.Name = "sentiment"
	tk.Description = "tiny sentiment classifier"
	return tk
}

func TestSaveLoadRoundTrip(t *testing.T) {
	orig := trainedClassifier(t)
	dir := t.TempDir()

	require.NoError(t, Save(dir, orig))

	for _, name := range []string{metadataFile, tokenizerFile, manifestFile, weightsFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, "Bundle-Datei %s fehlt", name)
	}

	loaded, err := Load(dir, ml.NewDevice())
	require.NoError(t, err)

	require.Equal(t, api.TaskClassification, loaded.Kind())
	require.Equal(t, orig.Labels().Labels(), loaded.Labels().Labels())
	require.Equal(t, "sentiment", loaded.Name)
	require.True(t, loaded.Model().Tokenizer().Frozen(), "Tokenizer nach Load nicht eingefroren")

	in, out := loaded.MaxLengths()
	origIn, origOut := orig.MaxLengths()
	require.Equal(t, origIn, in)
	require.Equal(t, origOut, out)

	// Inferenz stimmt bis auf float16-Quantisierung ueberein
	op, err := orig.Classify(context.Background(), "bad awful input", nil)
	require.NoError(t, err)
	lp, err := loaded.Classify(context.Background(), "bad awful input", nil)
	require.NoError(t, err)

	for label, want := range op {
		require.InDeltaf(t, want, lp[label], probeTolerance, "Label %s", label)
	}
}

func TestLoadDetectsTamperedWeights(t *testing.T) {
	orig := trainedClassifier(t)
	dir := t.TempDir()
	require.NoError(t, Save(dir, orig))

	path := filepath.Join(dir, weightsFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))

	_, err = Load(dir, ml.NewDevice())
	require.ErrorContains(t, err, "digest mismatch")
}

func TestLoadDetectsTamperedTokenizer(t *testing.T) {
	orig := trainedClassifier(t)
	dir := t.TempDir()
	require.NoError(t, Save(dir, orig))

	path := filepath.Join(dir, tokenizerFile)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(data, ' '), 0o644))

	_, err = Load(dir, ml.NewDevice())
	require.ErrorContains(t, err, "digest mismatch")
}

func TestLoadMissingBundle(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"), ml.NewDevice())
	require.Error(t, err)
}

func TestPackageVerifiesRoundTrip(t *testing.T) {
	orig := trainedClassifier(t)
	dir := t.TempDir()

	require.NoError(t, Package(context.Background(), dir, orig))

	loaded, err := Load(dir, ml.NewDevice())
	require.NoError(t, err)
	require.Equal(t, orig.Labels().Labels(), loaded.Labels().Labels())
}

func TestEncodeDecodeTensor(t *testing.T) {
	p := ml.NewParameter("probe", 2, 3)
	copy(p.Value, []float64{0, 1, -1, 0.5, 1e-3, -2.25})

	data := encodeTensor(p)
	require.Len(t, data, 12)

	entry := TensorEntry{Name: "probe", Rows: 2, Cols: 3, Size: int64(len(data))}
	decoded, err := decodeTensor(entry, data)
	require.NoError(t, err)

	for i := range p.Value {
		require.LessOrEqual(t, math.Abs(p.Value[i]-decoded.Value[i]), 1e-3)
	}

	// Groesse muss zur Form passen
	entry.Rows = 3
	_, err = decodeTensor(entry, data)
	require.Error(t, err)
}
