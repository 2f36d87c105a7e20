// Package main implements the runtime launcher for launcher-based RMM
// components. The agent sets environment variables and runs this binary;
// it fetches the named script from the component repository, executes it
// under the category's timeout budget, and exits with the translated code.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rmmdeploy/internal/launcher"
)

func main() {
	settings, err := launcher.LoadSettings()
	if err != nil {
		log.Printf("[ERROR] %v", err)
		os.Exit(launcher.ExitMissingInput)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	os.Exit(launcher.New(settings).Run(ctx))
}
