// Command migrate copies vector collections from Weaviate into Zilliz
// Cloud. See the subcommand help for the row-insert, bulk-import, preview,
// download and dataset-patch modes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/nucleus/vector-migrate/internal/cli"
)

func main() {
	// First SIGINT/SIGTERM cancels the run context so the pipeline stops
	// at the next batch boundary; a second signal kills the process.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		os.Exit(1)
	}
}
