// tensor.go - Einfache Tensor-Struktur mit Geraete-Buchhaltung
//
// Dieses Modul enthaelt:
// - Tensor: dichter float64 Tensor (row-major) auf einem Device
// - NewTensor/Release: Allokation und Freigabe ueber das Geraetebudget
package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Tensor ist ein dichter row-major float64 Tensor. Aktivierungen und
// Batch-Puffer werden als Tensoren allokiert, damit das Geraetebudget
// greift; Parameter-Matrizen liegen dauerhaft auf dem Geraet.
type Tensor struct {
	Data []float64
	Rows int
	Cols int

	dev *Device
}

// NewTensor allokiert einen rows x cols Tensor auf dem Geraet.
// Schlaegt mit ErrOutOfMemory fehl, wenn das Budget nicht reicht.
func NewTensor(dev *Device, rows, cols int) (*Tensor, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid tensor shape %dx%d", rows, cols)
	}

	if err := dev.Alloc(uint64(rows*cols) * 8); err != nil {
		return nil, err
	}

	return &Tensor{
		Data: make([]float64, rows*cols),
		Rows: rows,
		Cols: cols,
		dev:  dev,
	}, nil
}

// Release gibt den Speicher des Tensors an das Geraet zurueck
func (t *Tensor) Release() {
	if t.dev != nil {
		t.dev.Free(uint64(t.Rows*t.Cols) * 8)
		t.dev = nil
	}
	t.Data = nil
}

// Row gibt die i-te Zeile als Slice zurueck (geteilt, keine Kopie)
func (t *Tensor) Row(i int) []float64 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

// Dense gibt eine gonum-Sicht auf den Tensor zurueck (geteilt, keine Kopie)
func (t *Tensor) Dense() *mat.Dense {
	return mat.NewDense(t.Rows, t.Cols, t.Data)
}
