// cmd_runs.go - Runs Command Handler
// Hauptfunktionen: RunsHandler
package cmd

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/backprop-ai/tune/history"
)

// RunsHandler listet die aufgezeichneten Finetuning-Laeufe
func RunsHandler(cmd *cobra.Command, args []string) error {
	store, err := history.Open(historyPath())
	if err != nil {
		return err
	}
	defer store.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Runs(limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"NAME", "TASK", "BATCH", "EPOCHS", "STEPS", "BEST VAL LOSS", "STARTED"})
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetColumnSeparator("")

	for _, r := range runs {
		table.Append([]string{
			r.Name,
			r.Task,
			fmt.Sprintf("%d", r.BatchSize),
			fmt.Sprintf("%d", r.Epochs),
			fmt.Sprintf("%d", r.Steps),
			fmt.Sprintf("%.4f", r.BestValLoss),
			r.StartedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	table.Render()

	return nil
}
