package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/backprop-ai/tune/cmd"
	"github.com/backprop-ai/tune/envconfig"
	"github.com/backprop-ai/tune/logutil"
)

func main() {
	slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	cmd.Execute(context.Background())
}
