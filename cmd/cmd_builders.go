// cmd_builders.go - Command-Builder Funktionen
// Hauptfunktionen: newFinetuneCmd, newInferCmd, newServeCmd, etc.
package cmd

import (
	"github.com/spf13/cobra"
)

// newFinetuneCmd - Erstellt den finetune Command
func newFinetuneCmd() *cobra.Command {
	finetuneCmd := &cobra.Command{
		Use:   "finetune NAME EXAMPLES.json",
		Short: "Finetune a model on a JSON example file and save the bundle",
		Args:  cobra.ExactArgs(2),
		RunE:  FinetuneHandler,
	}

	finetuneCmd.Flags().String("task", "generation", "Task kind: generation, classification, vectorisation, image-classification")
	finetuneCmd.Flags().String("description", "", "Description stored in the bundle")
	finetuneCmd.Flags().Int("dim", 0, "Embedding dimension (0 uses the default)")
	finetuneCmd.Flags().Int64("seed", 0, "Seed for weight initialisation")
	finetuneCmd.Flags().Int("epochs", 0, "Number of training epochs")
	finetuneCmd.Flags().Int("batch-size", 0, "Fixed batch size (0 probes automatically)")
	finetuneCmd.Flags().Float64("learning-rate", 0, "Learning rate")
	finetuneCmd.Flags().Float64("validation-split", 0, "Fraction of examples held out for validation")
	finetuneCmd.Flags().Int("patience", 0, "Epochs without improvement before early stop")
	finetuneCmd.Flags().Int("max-input-length", 0, "Maximum input length in tokens")
	finetuneCmd.Flags().Int("max-output-length", 0, "Maximum output length in tokens")

	return finetuneCmd
}

// newInferCmd - Erstellt den infer Command
func newInferCmd() *cobra.Command {
	inferCmd := &cobra.Command{
		Use:   "infer NAME [INPUT]",
		Short: "Run inference against a model",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  InferHandler,
	}

	inferCmd.Flags().Bool("local", false, "Load the bundle locally instead of asking the server")
	inferCmd.Flags().String("image", "", "Path to an image file (image-classification models)")
	inferCmd.Flags().StringToString("option", nil, "Generation options as key=value pairs")

	return inferCmd
}

// newSaveCmd - Erstellt den save Command
func newSaveCmd() *cobra.Command {
	saveCmd := &cobra.Command{
		Use:   "save NAME DIR",
		Short: "Export a saved bundle to a directory",
		Args:  cobra.ExactArgs(2),
		RunE:  SaveHandler,
	}
	return saveCmd
}

// newLoadCmd - Erstellt den load Command
func newLoadCmd() *cobra.Command {
	loadCmd := &cobra.Command{
		Use:   "load DIR NAME",
		Short: "Import a bundle directory under a model name",
		Args:  cobra.ExactArgs(2),
		RunE:  LoadHandler,
	}
	return loadCmd
}

// newConvertCmd - Erstellt den convert Command
func newConvertCmd() *cobra.Command {
	convertCmd := &cobra.Command{
		Use:   "convert CHECKPOINT NAME",
		Short: "Import a PyTorch checkpoint as a model bundle",
		Args:  cobra.ExactArgs(2),
		RunE:  ConvertHandler,
	}

	convertCmd.Flags().String("task", "generation", "Task kind of the converted model")
	convertCmd.Flags().String("tokenizer", "", "Path to a tokenizer.json from an existing bundle")
	convertCmd.Flags().StringSlice("labels", nil, "Label set for classification models")
	convertCmd.Flags().Int("dim", 0, "Embedding dimension (0 uses the default)")

	return convertCmd
}

// newPushCmd - Erstellt den push Command
func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "push NAME",
		Short:   "Push a saved bundle to the registry",
		Args:    cobra.ExactArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    PushHandler,
	}
}

// newStatusCmd - Erstellt den status Command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status NAME",
		Short:   "Show the build status of a pushed model",
		Args:    cobra.ExactArgs(1),
		PreRunE: checkServerHeartbeat,
		RunE:    StatusHandler,
	}
}

// newRunsCmd - Erstellt den runs Command
func newRunsCmd() *cobra.Command {
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded finetuning runs",
		Args:  cobra.ExactArgs(0),
		RunE:  RunsHandler,
	}

	runsCmd.Flags().Int("limit", 20, "Maximum number of runs to show")

	return runsCmd
}

// newServeCmd - Erstellt den serve Command
func newServeCmd() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start"},
		Short:   "Start the registry server",
		Args:    cobra.ExactArgs(0),
		RunE:    ServeHandler,
	}

	serveCmd.Flags().String("upstream", "", "Upstream registry that push requests are forwarded to")

	return serveCmd
}
