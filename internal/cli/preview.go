package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nucleus/vector-migrate/internal/endpoint"
	"github.com/nucleus/vector-migrate/internal/schema"
)

func init() {
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Inspect source collections without writing anything",
		Long: "Lists the collections that would migrate, their property mapping, " +
			"row counts and a sampled vector dimension. Touches only the source.",
		Run: runPreview,
	}
	RootCmd.AddCommand(cmd)
}

func runPreview(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("load configuration", err)
	}

	source, err := openSource(cfg)
	if err != nil {
		exitErr("open source", err)
	}
	defer source.Close()

	ctx := cmd.Context()
	names, err := resolveCollections(ctx, source)
	if err != nil {
		exitErr("resolve collections", err)
	}

	fmt.Printf("Source: %s (%d collections)\n\n", cfg.WeaviateEndpoint, len(names))
	for _, name := range names {
		fmt.Printf("%s\n", name)

		count, err := source.Count(ctx, name)
		if err != nil {
			fmt.Printf("  rows: unknown (%v)\n", err)
		} else {
			fmt.Printf("  rows: %d\n", count)
		}

		raw, err := source.GetSchema(ctx, name)
		if err != nil {
			fmt.Printf("  schema: unavailable (%v)\n", err)
			fmt.Println()
			continue
		}
		desc := schema.Analyze(raw)
		fmt.Printf("  properties: %d\n", len(desc.Fields))
		for _, f := range desc.Fields {
			renamed := ""
			if f.SafeName != f.OriginalName {
				renamed = fmt.Sprintf(" -> %s", f.SafeName)
			}
			fmt.Printf("    %-24s %s%s\n", f.OriginalName, strings.ToLower(f.DeclaredType), renamed)
		}

		if dim := sampleDimension(ctx, source, name); dim > 0 {
			fmt.Printf("  vector dimension: %d\n", dim)
		} else {
			fmt.Printf("  vector dimension: unknown (no sampled vector)\n")
		}
		fmt.Println()
	}
	_ = os.Stdout.Sync()
}

// sampleDimension reads one record and reports its vector length.
func sampleDimension(ctx context.Context, source endpoint.SourceStore, name string) int {
	page, err := source.FetchPage(ctx, name, "", 1)
	if err != nil || page == nil || len(page.Records) == 0 {
		return 0
	}
	return len(page.Records[0].Vector)
}
