// tensors.go - Umpacken von torch-Tensoren in zeilen-majores Layout
//
// Dieses Modul enthaelt:
// - repack: Shape-Normalisierung und Transposition
// - storageData: Zugriff auf die Storage-Varianten von gopickle
package convert

import (
	"fmt"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/pdevine/tensor"
)

// repack normalisiert einen torch-Tensor auf (rows, cols) in
// zeilen-majorem Layout. Bias-Vektoren werden als eine Zeile gefuehrt.
func repack(t *pytorch.Tensor) (int, int, []float32, error) {
	data, err := storageData(t.Source)
	if err != nil {
		return 0, 0, nil, err
	}

	switch len(t.Size) {
	case 1:
		n := t.Size[0]
		vals, err := window(data, t.StorageOffset, n)
		if err != nil {
			return 0, 0, nil, err
		}
		return 1, n, vals, nil

	case 2:
		rows, cols := t.Size[0], t.Size[1]
		vals, err := window(data, t.StorageOffset, rows*cols)
		if err != nil {
			return 0, 0, nil, err
		}

		if len(t.Stride) == 2 && t.Stride[0] == 1 && t.Stride[1] == rows {
			// spalten-major abgelegt, umpacken
			d := tensor.New(tensor.WithShape(cols, rows), tensor.WithBacking(vals))
			if err := d.T(1, 0); err != nil {
				return 0, 0, nil, err
			}
			d = d.Materialize().(*tensor.Dense)
			vals = d.Data().([]float32)
		}
		return rows, cols, vals, nil

	default:
		return 0, 0, nil, fmt.Errorf("unsupported tensor rank %d", len(t.Size))
	}
}

// window schneidet n Werte ab offset aus dem Storage
func window(data []float32, offset, n int) ([]float32, error) {
	if offset < 0 || offset+n > len(data) {
		return nil, fmt.Errorf("storage window [%d, %d) outside %d values", offset, offset+n, len(data))
	}
	return data[offset : offset+n], nil
}

// storageData holt die Rohwerte aus den Storage-Varianten
func storageData(src any) ([]float32, error) {
	switch s := src.(type) {
	case *pytorch.FloatStorage:
		return s.Data, nil
	case *pytorch.HalfStorage:
		return s.Data, nil
	case *pytorch.DoubleStorage:
		out := make([]float32, len(s.Data))
		for i, v := range s.Data {
			out[i] = float32(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %T", src)
	}
}
