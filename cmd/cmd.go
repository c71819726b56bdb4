// cmd.go - Haupt-CLI Setup und Root Command
// Hauptfunktionen: NewCLI, appendEnvDocs
package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/version"
)

// appendEnvDocs - Fuegt Umgebungsvariablen-Dokumentation zum Command hinzu
func appendEnvDocs(cmd *cobra.Command, envs []envconfig.EnvVar) {
	if len(envs) == 0 {
		return
	}

	envUsage := `
Environment Variables:
`
	for _, e := range envs {
		envUsage += fmt.Sprintf("      %-24s   %s\n", e.Name, e.Description)
	}

	cmd.SetUsageTemplate(cmd.UsageTemplate() + envUsage)
}

// versionHandler gibt die Version aus
func versionHandler(cmd *cobra.Command, _ []string) {
	fmt.Printf("tune version is %s\n", version.Version)
}

// checkServerHeartbeat prueft ob der Server erreichbar ist
func checkServerHeartbeat(cmd *cobra.Command, _ []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	if err := client.Heartbeat(cmd.Context()); err != nil {
		if !strings.Contains(err.Error(), " refused") {
			return err
		}
		return fmt.Errorf("could not connect to tune server at %s, is it running?", envconfig.Host())
	}
	return nil
}

// parseTaskKind validiert das --task Flag
func parseTaskKind(s string) (api.TaskKind, error) {
	kind := api.TaskKind(s)
	if !kind.Valid() {
		return "", fmt.Errorf("unknown task %q (expected generation, classification, vectorisation or image-classification)", s)
	}
	return kind, nil
}

// statusNotFound prueft auf eine 404-Antwort der Registry
func statusNotFound(err error) bool {
	var se api.StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// NewCLI - Erstellt das Haupt-CLI mit allen Commands
func NewCLI() *cobra.Command {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cobra.EnableCommandSorting = false

	rootCmd := &cobra.Command{
		Use:           "tune",
		Short:         "Finetuning engine for small task models",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		Run: func(cmd *cobra.Command, args []string) {
			if version, _ := cmd.Flags().GetBool("version"); version {
				versionHandler(cmd, args)
				return
			}

			cmd.Print(cmd.UsageString())
		},
	}

	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	finetuneCmd := newFinetuneCmd()
	inferCmd := newInferCmd()
	saveCmd := newSaveCmd()
	loadCmd := newLoadCmd()
	convertCmd := newConvertCmd()
	pushCmd := newPushCmd()
	statusCmd := newStatusCmd()
	runsCmd := newRunsCmd()
	serveCmd := newServeCmd()

	envVars := envconfig.AsMap()
	envs := []envconfig.EnvVar{envVars["TUNE_HOST"]}

	for _, cmd := range []*cobra.Command{
		finetuneCmd,
		inferCmd,
		saveCmd,
		loadCmd,
		convertCmd,
		pushCmd,
		statusCmd,
		runsCmd,
		serveCmd,
	} {
		switch cmd {
		case finetuneCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["TUNE_MODELS"],
				envVars["TUNE_DEVICE_MEMORY"],
				envVars["TUNE_NOHISTORY"],
			})
		case serveCmd:
			appendEnvDocs(cmd, []envconfig.EnvVar{
				envVars["TUNE_DEBUG"],
				envVars["TUNE_HOST"],
				envVars["TUNE_MODELS"],
				envVars["TUNE_API_KEY"],
			})
		default:
			appendEnvDocs(cmd, envs)
		}
	}

	rootCmd.AddCommand(
		serveCmd,
		finetuneCmd,
		inferCmd,
		saveCmd,
		loadCmd,
		convertCmd,
		pushCmd,
		statusCmd,
		runsCmd,
	)

	return rootCmd
}

// Execute fuehrt das CLI aus
func Execute(ctx context.Context) {
	if err := NewCLI().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
