// types_registry.go - Typen fuer Registry-Operationen (Push, Status, Remote-Inferenz)
// Enthaelt: PushRequest, ProgressResponse, BuildStatus, InferRequest, InferResponse

package api

// PushRequest registriert ein Bundle bei der Registry.
type PushRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	TaskKind    TaskKind `json:"task_kind"`
}

// ProgressResponse meldet den Fortschritt einer Registry-Operation
type ProgressResponse struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
}

// BuildStatus ist der Build- und Verfuegbarkeitszustand eines
// hochgeladenen Bundles.
type BuildStatus struct {
	Name   string `json:"name"`
	State  string `json:"state"` // "building", "available", "failed"
	Detail string `json:"detail,omitempty"`
}

// InferRequest ist eine Remote-Inferenz-Anfrage gegen ein hochgeladenes Modell.
// Image ist nur fuer ImageClassification belegt.
type InferRequest struct {
	Model   string         `json:"model"`
	Task    TaskKind       `json:"task"`
	Input   string         `json:"input,omitempty"`
	Image   ImageData      `json:"image,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

// InferResponse ist die Antwort einer Remote-Inferenz.
// Je nach Task-Art ist Output, Probabilities oder Vector belegt.
type InferResponse struct {
	Output        string             `json:"output,omitempty"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
	Vector        []float64          `json:"vector,omitempty"`
}
