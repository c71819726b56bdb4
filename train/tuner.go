// tuner.go - Automatische Batch-Size-Suche
//
// Dieses Modul enthaelt:
// - FindBatchSize: monotone exponentielle Suche mit einmaligem Halbieren
//
// Die Suche startet bei Batch-Groesse 2, verdoppelt nach jedem
// erfolgreichen Probe-Step und halbiert genau einmal zurueck, wenn der
// Geraetespeicher erschoepft ist. Zwischen letzter erfolgreicher und
// fehlgeschlagener Groesse wird nicht binaer gesucht; das akzeptiert
// eine moeglicherweise suboptimale, aber sichere Antwort. Probe-Steps
// duerfen nie in die trainierten Gewichte lecken: vor der Suche wird
// ein Snapshot gezogen und danach transaktional wiederhergestellt.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/backprop-ai/tune/dataset"
	"github.com/backprop-ai/tune/ml"
)

// MinBatchSize ist die kleinste sinnvolle Batch-Groesse fuer die
// Loss-Berechnung. Scheitert schon diese Groesse am Speicher, kann das
// Finetuning auf diesem Geraet nicht stattfinden.
const MinBatchSize = 2

// Stepper fuehrt einen Optimierungsschritt auf einem Batch aus.
// train=true akkumuliert Gradienten, train=false berechnet nur den Loss.
type Stepper interface {
	Step(batch *dataset.EncodedBatch, train bool) (float64, error)
}

// BatchFunc batcht den Trainings-Split neu mit gegebener Groesse
type BatchFunc func(size int) ([]*dataset.EncodedBatch, error)

// FindBatchSize sucht die groesste funktionierende Batch-Groesse.
// maxSize begrenzt die Suche nach oben (ueblicherweise die Groesse des
// Trainings-Splits).
func FindBatchSize(ctx context.Context, stepper Stepper, batches BatchFunc, opt *ml.Adam, params []*ml.Parameter, maxSize int) (int, error) {
	snapshot := opt.Snapshot(params)
	defer func() {
		// Rollback ist unbedingt: kein Probe-Step ist von aussen sichtbar
		opt.Restore(snapshot, params)
	}()

	var last int
	size := MinBatchSize

	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}

		bs, err := batches(size)
		if err != nil {
			return 0, err
		}
		if len(bs) == 0 {
			return 0, fmt.Errorf("batch size probe: empty training split")
		}

		opt.ZeroGrad(params)
		_, err = stepper.Step(bs[0], true)
		switch {
		case err == nil:
			opt.Step(params)
		case errors.Is(err, ml.ErrOutOfMemory):
			if last == 0 {
				return 0, fmt.Errorf("minimum batch size %d exhausts device memory: %w", MinBatchSize, err)
			}
			slog.Debug("batch size probe hit memory limit", "failed", size, "chosen", last)
			return last, nil
		default:
			// fataler Geraetefehler, nicht speicherbezogen
			return 0, err
		}

		last = size
		if size >= maxSize {
			// groesser als der Split wird ein Batch nicht
			if last > maxSize {
				last = maxSize
			}
			slog.Debug("batch size probe reached dataset size", "chosen", last)
			return last, nil
		}
		size *= 2
	}
}
