// types.go - Core API Types (Basis-Typen, Errors, Task-Arten)
// Enthaelt: StatusError, ConfigurationError, TaskKind, Example, SimilarityPair, QA
package api

import (
	"fmt"
)

// StatusError is an error with an HTTP status code and message.
type StatusError struct {
	StatusCode   int
	Status       string
	ErrorMessage string `json:"error"`
}

func (e StatusError) Error() string {
	switch {
	case e.Status != "" && e.ErrorMessage != "":
		return fmt.Sprintf("%s: %s", e.Status, e.ErrorMessage)
	case e.Status != "":
		return e.Status
	case e.ErrorMessage != "":
		return e.ErrorMessage
	default:
		// this should not happen
		return "something went wrong, please see the registry logs for details"
	}
}

// ConfigurationError meldet fehlerhafte Optionen oder Eingaben.
// Das Feld benennt immer die betroffene Option, damit der Fehler
// beim Aufrufer zuordenbar bleibt.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e ConfigurationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// TaskKind bestimmt Encode-, Loss- und Decode-Strategie eines Tasks.
type TaskKind string

const (
	TaskGeneration          TaskKind = "generation"
	TaskClassification      TaskKind = "classification"
	TaskVectorisation       TaskKind = "vectorisation"
	TaskImageClassification TaskKind = "image-classification"
)

// Valid prueft ob die Task-Art bekannt ist
func (k TaskKind) Valid() bool {
	switch k {
	case TaskGeneration, TaskClassification, TaskVectorisation, TaskImageClassification:
		return true
	}
	return false
}

// ImageData represents the raw binary data of an image file.
type ImageData []byte

// Example ist ein einzelnes (Input, Target) Paar fuer das Finetuning.
// Welche Felder belegt sein muessen haengt von der Task-Art ab:
//
//   - Generation: Input und Target (beides Text)
//   - Classification: Input und Target (Target ist ein Label)
//   - Vectorisation: Input, Pair und Score (Ziel-Kosinus in [0,1])
//   - ImageClassification: Image und Target (Target ist ein Label)
type Example struct {
	Input  string    `json:"input,omitempty"`
	Pair   string    `json:"pair,omitempty"`
	Target string    `json:"target,omitempty"`
	Score  float64   `json:"score,omitempty"`
	Image  ImageData `json:"image,omitempty"`
}

// SimilarityPair erzeugt ein Vectorisation-Example mit Ziel-Kosinus score
func SimilarityPair(textA, textB string, score float64) Example {
	return Example{Input: textA, Pair: textB, Score: score}
}

// QA ist ein (Frage, Antwort) Paar aus vorherigem Gespraechskontext.
type QA struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}
