// version.go - Versionsinformation, wird beim Release ueberschrieben
package version

var Version string = "0.0.0"
