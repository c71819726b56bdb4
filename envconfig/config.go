// config.go - Haupt-Konfigurationsfunktionen fuer tune
//
// Dieses Modul enthaelt:
// - Host: Gibt Scheme und Host der Registry zurueck (TUNE_HOST)
// - Models: Gibt Bundle-Verzeichnis zurueck (TUNE_MODELS)
// - LogLevel: Gibt Log-Level zurueck (TUNE_DEBUG)
// - DeviceMemory: Gibt das Speicherbudget des Geraets zurueck (TUNE_DEVICE_MEMORY)
// - APIKey: Gibt den Registry-API-Key zurueck (TUNE_API_KEY)
//
// Weitere Konfigurationen sind ausgelagert:
// - config_utils.go: Utility-Funktionen und AsMap
package envconfig

import (
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Host gibt Scheme und Host der Registry zurueck
// Konfigurierbar via TUNE_HOST
// Default: http://127.0.0.1:7860
func Host() *url.URL {
	defaultPort := "7860"

	s := strings.TrimSpace(Var("TUNE_HOST"))
	scheme, hostport, ok := strings.Cut(s, "://")
	switch {
	case !ok:
		scheme, hostport = "http", s
	case scheme == "http":
		defaultPort = "80"
	case scheme == "https":
		defaultPort = "443"
	}

	hostport, path, _ := strings.Cut(hostport, "/")
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		host, port = "127.0.0.1", defaultPort
		if ip := net.ParseIP(strings.Trim(hostport, "[]")); ip != nil {
			host = ip.String()
		} else if hostport != "" {
			host = hostport
		}
	}

	if n, err := strconv.ParseInt(port, 10, 32); err != nil || n > 65535 || n < 0 {
		slog.Warn("invalid port, using default", "port", port, "default", defaultPort)
		port = defaultPort
	}

	return &url.URL{
		Scheme: scheme,
		Host:   net.JoinHostPort(host, port),
		Path:   path,
	}
}

// Models gibt das Verzeichnis fuer gespeicherte Bundles zurueck
// Konfigurierbar via TUNE_MODELS
// Default: $HOME/.tune/models
func Models() string {
	if s := Var("TUNE_MODELS"); s != "" {
		return s
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// ohne Home-Verzeichnis bleibt nur das Arbeitsverzeichnis
		return filepath.Join(".", ".tune", "models")
	}
	return filepath.Join(home, ".tune", "models")
}

// LogLevel gibt das Log-Level zurueck
// Konfigurierbar via TUNE_DEBUG
// Default: slog.LevelInfo
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("TUNE_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i)
		}
	}
	return level
}

// DeviceMemory gibt das Speicherbudget des Trainingsgeraets in Bytes zurueck
// Konfigurierbar via TUNE_DEVICE_MEMORY, 0 bedeutet unbegrenzt
var DeviceMemory = Uint64("TUNE_DEVICE_MEMORY", 0)

// APIKey gibt den API-Key fuer die Registry zurueck
// Konfigurierbar via TUNE_API_KEY
var APIKey = String("TUNE_API_KEY")

// NoHistory deaktiviert die lokale Run-Historie
// Konfigurierbar via TUNE_NOHISTORY
var NoHistory = Bool("TUNE_NOHISTORY")

// Var liest eine Environment-Variable und trimmt Whitespace und Quotes
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}
