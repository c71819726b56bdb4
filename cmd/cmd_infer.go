// cmd_infer.go - Infer Command Handler
// Hauptfunktionen: InferHandler, inferLocal, printInferResponse
package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/bundle"
	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/ml"
)

// InferHandler fuehrt Inferenz gegen ein Modell aus, entweder ueber
// den Server oder direkt aus dem lokalen Bundle
func InferHandler(cmd *cobra.Command, args []string) error {
	name := args[0]

	var input string
	if len(args) > 1 {
		input = args[1]
	}

	var image api.ImageData
	if imagePath, _ := cmd.Flags().GetString("image"); imagePath != "" {
		data, err := os.ReadFile(imagePath)
		if err != nil {
			return err
		}
		image = data
	}

	options := make(map[string]any)
	if raw, _ := cmd.Flags().GetStringToString("option"); len(raw) > 0 {
		for k, v := range raw {
			options[k] = parseOptionValue(v)
		}
	}

	if local, _ := cmd.Flags().GetBool("local"); local {
		return inferLocal(cmd.Context(), name, input, image, options)
	}

	if err := checkServerHeartbeat(cmd, args); err != nil {
		return err
	}

	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	resp, err := client.Infer(cmd.Context(), &api.InferRequest{
		Model:   name,
		Input:   input,
		Image:   image,
		Options: options,
	})
	if err != nil {
		return err
	}

	printInferResponse(resp)
	return nil
}

// parseOptionValue laesst JSON-Zahlen und -Booleans als solche durch
func parseOptionValue(s string) any {
	switch s {
	case "true":
		return true
	case "false":
		return false
	}

	var f float64
	if _, err := fmt.Sscanf(s, "%g", &f); err == nil {
		return f
	}
	return s
}

// inferLocal laedt das Bundle aus dem Modell-Verzeichnis und fuehrt
// die Inferenz im Prozess aus
func inferLocal(ctx context.Context, name, input string, image api.ImageData, options map[string]any) error {
	t, err := bundle.Load(filepath.Join(envconfig.Models(), name), ml.NewDevice())
	if err != nil {
		return err
	}

	switch t.Kind() {
	case api.TaskGeneration:
		opts := api.DefaultGenerateOptions()
		if err := opts.FromMap(options); err != nil {
			return err
		}
		outputs, err := t.Generate(ctx, input, &opts)
		if err != nil {
			return err
		}
		for _, out := range outputs {
			fmt.Println(out)
		}

	case api.TaskClassification:
		probs, err := t.Classify(ctx, input, nil)
		if err != nil {
			return err
		}
		printInferResponse(&api.InferResponse{Probabilities: probs})

	case api.TaskVectorisation:
		vec, err := t.Vector(ctx, input)
		if err != nil {
			return err
		}
		printInferResponse(&api.InferResponse{Vector: vec})

	case api.TaskImageClassification:
		probs, err := t.ClassifyImage(ctx, image)
		if err != nil {
			return err
		}
		printInferResponse(&api.InferResponse{Probabilities: probs})
	}

	return nil
}

// printInferResponse gibt die Antwort je nach Task-Art aus
func printInferResponse(resp *api.InferResponse) {
	switch {
	case resp.Output != "":
		fmt.Println(resp.Output)

	case resp.Probabilities != nil:
		labels := make([]string, 0, len(resp.Probabilities))
		for label := range resp.Probabilities {
			labels = append(labels, label)
		}
		sort.Slice(labels, func(i, j int) bool {
			return resp.Probabilities[labels[i]] > resp.Probabilities[labels[j]]
		})
		for _, label := range labels {
			fmt.Printf("%-24s %.4f\n", label, resp.Probabilities[label])
		}

	case resp.Vector != nil:
		fmt.Println(resp.Vector)
	}
}
