// device.go - Geraeteabstraktion mit Speicherbudget
//
// Dieses Modul enthaelt:
// - Device: Ein einzelnes Rechengeraet mit Allokations-Buchhaltung
// - ErrOutOfMemory: Sentinel fuer erschoepften Geraetespeicher
//
// Das Speicherbudget bildet die knappe Ressource ab, die der
// Batch-Size-Tuner respektieren muss. Ein Budget von 0 bedeutet
// unbegrenzt (CPU-Training ohne Limit).
package ml

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/backprop-ai/tune/envconfig"
)

// ErrOutOfMemory meldet, dass eine Allokation das Geraetebudget
// ueberschreiten wuerde. Nur der Batch-Size-Tuner behandelt diesen
// Fehler; ueberall sonst ist er fatal.
var ErrOutOfMemory = errors.New("device out of memory")

// Device ist ein einzelnes Rechengeraet. Alle Tensor-Allokationen
// laufen durch die Buchhaltung, damit ein fehlgeschlagener Probe-Step
// seinen Speicher vollstaendig zurueckgibt.
type Device struct {
	mu     sync.Mutex
	name   string
	budget uint64
	used   uint64
}

// NewDevice erstellt ein Geraet mit Budget aus TUNE_DEVICE_MEMORY
func NewDevice() *Device {
	return NewDeviceWithBudget("cpu", envconfig.DeviceMemory())
}

// NewDeviceWithBudget erstellt ein Geraet mit explizitem Budget in Bytes
func NewDeviceWithBudget(name string, budget uint64) *Device {
	return &Device{name: name, budget: budget}
}

// Name gibt den Geraetenamen zurueck
func (d *Device) Name() string { return d.name }

// Alloc reserviert n Bytes. Bei Ueberschreitung des Budgets wird
// nichts reserviert und ErrOutOfMemory zurueckgegeben.
func (d *Device) Alloc(n uint64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.budget > 0 && d.used+n > d.budget {
		slog.Debug("allocation exceeds device budget", "device", d.name, "requested", n, "used", d.used, "budget", d.budget)
		return fmt.Errorf("alloc %d bytes (used %d of %d): %w", n, d.used, d.budget, ErrOutOfMemory)
	}

	d.used += n
	return nil
}

// Free gibt n Bytes zurueck
func (d *Device) Free(n uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n > d.used {
		// Buchhaltungsfehler, nicht stillschweigend verschlucken
		slog.Warn("freeing more memory than allocated", "device", d.name, "freed", n, "used", d.used)
		d.used = 0
		return
	}
	d.used -= n
}

// Used gibt die aktuell reservierten Bytes zurueck
func (d *Device) Used() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.used
}
