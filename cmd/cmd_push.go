// cmd_push.go - Push und Status Command Handler
// Hauptfunktionen: PushHandler, StatusHandler
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/backprop-ai/tune/api"
	"github.com/backprop-ai/tune/format"
)

// PushHandler pusht ein gespeichertes Bundle ueber den Server
func PushHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	isTTY := term.IsTerminal(int(os.Stdout.Fd()))

	var lastStatus string
	fn := func(resp api.ProgressResponse) error {
		if resp.Total > 0 && isTTY {
			fmt.Printf("\r%s: %s / %s", resp.Status, format.HumanBytes(resp.Completed), format.HumanBytes(resp.Total))
			return nil
		}

		if resp.Status != lastStatus {
			if isTTY && lastStatus != "" {
				fmt.Println()
			}
			fmt.Println(resp.Status)
			lastStatus = resp.Status
		}
		return nil
	}

	req := api.PushRequest{Name: args[0]}
	if err := client.Push(cmd.Context(), &req, fn); err != nil {
		return err
	}
	if isTTY {
		fmt.Println()
	}
	return nil
}

// StatusHandler zeigt den Build-Zustand eines gepushten Modells
func StatusHandler(cmd *cobra.Command, args []string) error {
	client, err := api.ClientFromEnvironment()
	if err != nil {
		return err
	}

	status, err := client.Status(cmd.Context(), args[0])
	if err != nil {
		if statusNotFound(err) {
			return fmt.Errorf("model %q is not known to the registry", args[0])
		}
		return err
	}

	fmt.Printf("%s: %s\n", status.Name, status.State)
	if status.Detail != "" {
		fmt.Println(status.Detail)
	}
	return nil
}
