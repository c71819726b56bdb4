// config_utils.go - Utility-Funktionen und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - Bool: Boolean-Getter
// - String: String-Getter
// - Uint64: Integer-Getter mit Default-Wert
// - EnvVar: Struktur fuer Environment-Variablen-Info
// - AsMap: Gibt alle Konfigurationen als Map zurueck
package envconfig

import (
	"log/slog"
	"strconv"
)

// Bool gibt eine Funktion zurueck, die einen Bool liest (Default: false)
func Bool(k string) func() bool {
	return func() bool {
		if s := Var(k); s != "" {
			b, err := strconv.ParseBool(s)
			if err != nil {
				return true
			}
			return b
		}
		return false
	}
}

// String gibt eine Funktion zurueck, die einen String liest
func String(s string) func() string {
	return func() string {
		return Var(s)
	}
}

// Uint64 gibt eine Funktion zurueck, die einen uint64 mit Default-Wert liest
func Uint64(key string, defaultValue uint64) func() uint64 {
	return func() uint64 {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return n
			}
		}
		return defaultValue
	}
}

// EnvVar repraesentiert eine Environment-Variable mit Metadaten
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Konfigurationen als Map zurueck
// Enthaelt Namen, aktuelle Werte und Beschreibungen
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"TUNE_DEBUG":         {"TUNE_DEBUG", LogLevel(), "Show additional debug information (e.g. TUNE_DEBUG=1)"},
		"TUNE_HOST":          {"TUNE_HOST", Host(), "Address of the model registry (default 127.0.0.1:7860)"},
		"TUNE_MODELS":        {"TUNE_MODELS", Models(), "The path to the bundle directory"},
		"TUNE_DEVICE_MEMORY": {"TUNE_DEVICE_MEMORY", DeviceMemory(), "Device memory budget in bytes, 0 = unlimited"},
		"TUNE_API_KEY":       {"TUNE_API_KEY", "", "API key used when pushing to a registry"},
		"TUNE_NOHISTORY":     {"TUNE_NOHISTORY", NoHistory(), "Do not record finetuning runs locally"},
	}
}
