// cmd_bundle_ops.go - Save, Load und Convert Command Handler
// Hauptfunktionen: SaveHandler, LoadHandler, ConvertHandler
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backprop-ai/tune/bundle"
	"github.com/backprop-ai/tune/convert"
	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/ml"
	"github.com/backprop-ai/tune/model/tinyseq"
	"github.com/backprop-ai/tune/task"
	"github.com/backprop-ai/tune/tokenizer"
)

// SaveHandler exportiert ein gespeichertes Bundle in ein Verzeichnis.
// Der Export laeuft ueber den Packager, damit das Ziel verifiziert ist.
func SaveHandler(cmd *cobra.Command, args []string) error {
	name, dir := args[0], args[1]

	t, err := bundle.Load(filepath.Join(envconfig.Models(), name), ml.NewDevice())
	if err != nil {
		return err
	}

	if err := bundle.Package(cmd.Context(), dir, t); err != nil {
		return err
	}

	fmt.Printf("exported %s to %s\n", name, dir)
	return nil
}

// LoadHandler importiert ein Bundle-Verzeichnis unter einem Modellnamen
func LoadHandler(cmd *cobra.Command, args []string) error {
	dir, name := args[0], args[1]

	t, err := bundle.Load(dir, ml.NewDevice())
	if err != nil {
		return err
	}
	t.Name = name

	dst := filepath.Join(envconfig.Models(), name)
	if err := bundle.Package(cmd.Context(), dst, t); err != nil {
		return err
	}

	fmt.Printf("imported %s as %s\n", dir, name)
	return nil
}

// ConvertHandler importiert einen PyTorch-Checkpoint als Bundle
func ConvertHandler(cmd *cobra.Command, args []string) error {
	checkpoint, name := args[0], args[1]

	taskFlag, _ := cmd.Flags().GetString("task")
	kind, err := parseTaskKind(taskFlag)
	if err != nil {
		return err
	}

	tok := tokenizer.New()
	if tokPath, _ := cmd.Flags().GetString("tokenizer"); tokPath != "" {
		data, err := os.ReadFile(tokPath)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, tok); err != nil {
			return fmt.Errorf("parse tokenizer %s: %w", tokPath, err)
		}
	}

	dim, _ := cmd.Flags().GetInt("dim")
	mdl := tinyseq.New(tok, ml.NewDevice(), dim, 0)

	result, err := convert.Checkpoint(checkpoint, mdl)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d tensors\n", len(result.Imported))
	for _, skipped := range result.Skipped {
		fmt.Printf("skipped unknown tensor %s\n", skipped)
	}

	t, err := task.New(kind, mdl)
	if err != nil {
		return err
	}
	t.Name = name

	labels, _ := cmd.Flags().GetStringSlice("labels")
	maxIn, maxOut := 128, 32
	t.Restore(labels, maxIn, maxOut)

	dst := filepath.Join(envconfig.Models(), name)
	if err := bundle.Package(cmd.Context(), dst, t); err != nil {
		return err
	}

	fmt.Printf("saved bundle to %s\n", dst)
	return nil
}
