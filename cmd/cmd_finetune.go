// cmd_finetune.go - Finetune Command Handler
// Hauptfunktionen: FinetuneHandler, readExamples
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/bundle"
	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/history"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model/tinyseq"
	"github.com/backprop-ai/tune/task"
	"github.com/backprop-ai/tune/tokenizer"
	"github.com/backprop-ai/tune/train"
)

// readExamples laedt eine JSON-Datei mit Trainingsbeispielen
func readExamples(path string) ([]api.Example, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var examples []api.Example
	if err := json.Unmarshal(data, &examples); err != nil {
		return nil, fmt.Errorf("parse examples %s: %w", path, err)
	}
	return examples, nil
}

// FinetuneHandler trainiert ein Modell und speichert das Bundle
func FinetuneHandler(cmd *cobra.Command, args []string) error {
	name, examplesPath := args[0], args[1]

	taskFlag, _ := cmd.Flags().GetString("task")
	kind, err := parseTaskKind(taskFlag)
	if err != nil {
		return err
	}

	examples, err := readExamples(examplesPath)
	if err != nil {
		return err
	}

	dim, _ := cmd.Flags().GetInt("dim")
	seed, _ := cmd.Flags().GetInt64("seed")

	tok := tokenizer.New()
	dev := ml.NewDevice()
	mdl := tinyseq.New(tok, dev, dim, seed)

	t, err := task.New(kind, mdl)
	if err != nil {
		return err
	}
	t.Name = name
	t.Description, _ = cmd.Flags().GetString("description")

	opts := finetuneOptionsFromFlags(cmd)

	started := time.Now()
	fmt.Printf("finetuning %s on %d examples\n", name, len(examples))
	if err := t.Finetune(cmd.Context(), examples, opts); err != nil {
		return err
	}

	result := t.Result()
	fmt.Printf("finished: batch size %d, %d epochs, %d steps, best validation loss %.4f (%s)\n",
		result.BatchSize, result.Epochs, result.Steps, result.BestValLoss, result.Duration.Round(time.Millisecond))

	dir := filepath.Join(envconfig.Models(), name)
	if err := bundle.Package(cmd.Context(), dir, t); err != nil {
		return err
	}
	fmt.Printf("saved bundle to %s\n", dir)

	if !envconfig.NoHistory() {
		if err := recordRun(name, kind, result, started); err != nil {
			// Historie ist Komfort, kein Trainingsergebnis
			fmt.Fprintf(os.Stderr, "warning: could not record run: %v\n", err)
		}
	}

	return nil
}

// finetuneOptionsFromFlags sammelt gesetzte Options-Flags ein;
// Nullwerte fuellt der Task mit Defaults auf
func finetuneOptionsFromFlags(cmd *cobra.Command) *api.FinetuneOptions {
	var opts api.FinetuneOptions
	opts.Epochs, _ = cmd.Flags().GetInt("epochs")
	opts.BatchSize, _ = cmd.Flags().GetInt("batch-size")
	opts.LearningRate, _ = cmd.Flags().GetFloat64("learning-rate")
	opts.ValidationSplit, _ = cmd.Flags().GetFloat64("validation-split")
	opts.Patience, _ = cmd.Flags().GetInt("patience")
	opts.MaxInputLength, _ = cmd.Flags().GetInt("max-input-length")
	opts.MaxOutputLength, _ = cmd.Flags().GetInt("max-output-length")
	return &opts
}

// historyPath ist die Datenbank neben dem Bundle-Verzeichnis
func historyPath() string {
	return filepath.Join(filepath.Dir(envconfig.Models()), "history.db")
}

// recordRun schreibt den Lauf in die lokale Historie
func recordRun(name string, kind api.TaskKind, result *train.Result, started time.Time) error {
	store, err := history.Open(historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	_, err = store.Record(history.Run{
		Name:        name,
		Task:        string(kind),
		BatchSize:   result.BatchSize,
		Epochs:      result.Epochs,
		Steps:       result.Steps,
		BestValLoss: result.BestValLoss,
		StartedAt:   started,
		FinishedAt:  time.Now(),
	})
	return err
}
