// state.go - Zustandsmaschine des Trainers
// Enthaelt: State und Uebergangs-Konstanten
package train

// State ist der Zustand eines Trainingslaufs.
//
// Uebergaenge:
//
//	Initialized -> ProbingBatchSize -> Training <-> Validating -> Finished
//
// Training und Validating wechseln sich pro Epoche ab; Finished wird
// bei Erreichen der Maximal-Epochen oder des Early-Stop-Kriteriums
// erreicht.
type State int

const (
	StateInitialized State = iota
	StateProbingBatchSize
	StateTraining
	StateValidating
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateProbingBatchSize:
		return "probing batch size"
	case StateTraining:
		return "training"
	case StateValidating:
		return "validating"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}
