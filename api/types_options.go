// types_options.go - Options fuer Finetuning und Inferenz
// Enthaelt: FinetuneOptions, GenerateOptions, ClassifyOptions, DefaultOptions, FromMap

package api

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"
)

// FinetuneOptions steuert einen Finetuning-Lauf. Nullwerte werden durch
// [DefaultFinetuneOptions] ersetzt, bevor das Training startet.
type FinetuneOptions struct {
	// Encoding limits
	MaxInputLength  int `json:"max_input_length,omitempty"`
	MaxOutputLength int `json:"max_output_length,omitempty"`

	// Optimization
	Epochs          int     `json:"epochs,omitempty"`
	LearningRate    float64 `json:"learning_rate,omitempty"`
	ValidationSplit float64 `json:"validation_split,omitempty"`
	Patience        int     `json:"patience,omitempty"`

	// BatchSize 0 laesst den Tuner die Batch-Groesse suchen
	BatchSize int `json:"batch_size,omitempty"`
}

// DefaultFinetuneOptions ist der Standard-Satz von Optionen fuer das Finetuning;
// diese Werte werden verwendet, wenn der Benutzer keine anderen Werte explizit angibt.
func DefaultFinetuneOptions() FinetuneOptions {
	return FinetuneOptions{
		MaxInputLength:  128,
		MaxOutputLength: 32,
		Epochs:          20,
		LearningRate:    1e-2,
		ValidationSplit: 0.1,
		Patience:        3,
		BatchSize:       0, // 0 here indicates that the batch size should be probed
	}
}

// GenerateOptions steuert autoregressives Decoding.
// Bei NumBeams > 1 wird Beam Search verwendet und Sampling-Optionen werden ignoriert.
type GenerateOptions struct {
	DoSample          bool    `json:"do_sample,omitempty"`
	Temperature       float32 `json:"temperature,omitempty"`
	TopK              int     `json:"top_k,omitempty"`
	TopP              float32 `json:"top_p,omitempty"`
	NumBeams          int     `json:"num_beams,omitempty"`
	NumGenerations    int     `json:"num_generations,omitempty"`
	MinLength         int     `json:"min_length,omitempty"`
	MaxLength         int     `json:"max_length,omitempty"`
	RepetitionPenalty float32 `json:"repetition_penalty,omitempty"`
	LengthPenalty     float32 `json:"length_penalty,omitempty"`
	Seed              int     `json:"seed,omitempty"`
}

// DefaultGenerateOptions liefert deterministisches Greedy-Decoding
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		DoSample:          false,
		Temperature:       1.0,
		TopK:              40,
		TopP:              0.9,
		NumBeams:          1,
		NumGenerations:    1,
		MinLength:         1,
		MaxLength:         32,
		RepetitionPenalty: 1.0,
		LengthPenalty:     1.0,
		Seed:              -1,
	}
}

// ClassifyOptions steuert die Klassifikations-Inferenz.
// History wird in Reihenfolge vor die aktuelle Eingabe konkateniert,
// damit elliptische Folgefragen gegen den Kontext aufgeloest werden.
type ClassifyOptions struct {
	History []QA `json:"history,omitempty"`
}

// FromMap laedt GenerateOptions-Werte aus einer Map
func (opts *GenerateOptions) FromMap(m map[string]any) error {
	valueOpts := reflect.ValueOf(opts).Elem() // names of the fields in the options struct
	typeOpts := reflect.TypeOf(opts).Elem()   // types of the fields in the options struct

	// build map of json struct tags to their types
	jsonOpts := make(map[string]reflect.StructField)
	for _, field := range reflect.VisibleFields(typeOpts) {
		jsonTag := strings.Split(field.Tag.Get("json"), ",")[0]
		if jsonTag != "" {
			jsonOpts[jsonTag] = field
		}
	}

	for key, val := range m {
		opt, ok := jsonOpts[key]
		if !ok {
			slog.Warn("invalid option provided", "option", key)
			continue
		}

		field := valueOpts.FieldByName(opt.Name)
		if !field.IsValid() || !field.CanSet() || val == nil {
			continue
		}

		switch field.Kind() {
		case reflect.Int:
			switch t := val.(type) {
			case int64:
				field.SetInt(t)
			case float64:
				// when JSON unmarshals numbers, it uses float64, not int
				field.SetInt(int64(t))
			default:
				return fmt.Errorf("option %q must be of type integer", key)
			}
		case reflect.Bool:
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("option %q must be of type boolean", key)
			}
			field.SetBool(b)
		case reflect.Float32:
			f, ok := val.(float64)
			if !ok {
				return fmt.Errorf("option %q must be of type float", key)
			}
			field.SetFloat(f)
		default:
			return fmt.Errorf("unknown type for option %q", key)
		}
	}

	return nil
}
