// device_test.go - Tests fuer die Speicher-Buchhaltung
package ml

import (
	"errors"
	"testing"
)

func TestDeviceBudget(t *testing.T) {
	dev := NewDeviceWithBudget("test", 100)

	if err := dev.Alloc(60); err != nil {
		t.Fatalf("Alloc(60) bei Budget 100: %v", err)
	}
	if got := dev.Used(); got != 60 {
		t.Errorf("Used = %d, erwartet 60", got)
	}

	err := dev.Alloc(50)
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("Alloc ueber Budget: erwartet ErrOutOfMemory, bekam %v", err)
	}

	// fehlgeschlagene Allokation darf nichts reservieren
	if got := dev.Used(); got != 60 {
		t.Errorf("Used nach fehlgeschlagener Allokation = %d, erwartet 60", got)
	}

	dev.Free(60)
	if got := dev.Used(); got != 0 {
		t.Errorf("Used nach Free = %d, erwartet 0", got)
	}
}

func TestDeviceUnlimited(t *testing.T) {
	dev := NewDeviceWithBudget("test", 0)

	if err := dev.Alloc(1 << 40); err != nil {
		t.Fatalf("Alloc ohne Budget: %v", err)
	}
}

func TestDeviceOverFree(t *testing.T) {
	dev := NewDeviceWithBudget("test", 100)

	if err := dev.Alloc(10); err != nil {
		t.Fatal(err)
	}

	// Ueber-Free wird abgefangen statt zu unterlaufen
	dev.Free(50)
	if got := dev.Used(); got != 0 {
		t.Errorf("Used nach Ueber-Free = %d, erwartet 0", got)
	}
}
