package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/papercomputeco/pmassist/cmd/pmassist/bootstrap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewPMAssistCmd().ExecuteContext(ctx); err != nil {
		if bootstrap.IsMissingKey(err) {
			fmt.Fprintln(os.Stderr, "Create a key at https://aistudio.google.com/apikey and export it, or set gemini.api_key_env.")
		}
		stop()
		os.Exit(1)
	}
}
