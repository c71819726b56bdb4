// cmd_serve.go - Serve Command Handler
// Hauptfunktionen: ServeHandler
package cmd

import (
	"net"
	"net/url"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/registry"
	"github.com/backprop-ai/tune/task"
)

// ServeHandler startet den Registry-Server
func ServeHandler(cmd *cobra.Command, args []string) error {
	var upstream *url.URL
	if s, _ := cmd.Flags().GetString("upstream"); s != "" {
		u, err := url.Parse(s)
		if err != nil {
			return err
		}
		upstream = u
	}

	ln, err := net.Listen("tcp", envconfig.Host().Host)
	if err != nil {
		return err
	}

	dir := filepath.Join(filepath.Dir(envconfig.Models()), "registry")
	return registry.Serve(ln, dir, task.NewRegistry(), upstream)
}
