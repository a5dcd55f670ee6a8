package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arithx/update-engine/internal/adapter/sqlite"
	"github.com/arithx/update-engine/internal/logger"
)

func newTransfersCmd(configPath *string, verbose *bool) *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "transfers",
		Short: "List recent transfer records",
		RunE: func(c *cobra.Command, args []string) error {
			cfg, _, err := setup(*configPath, *verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			path := dbPath
			if path == "" {
				path = cfg.Database.Path
			}
			if path == "" {
				return fmt.Errorf("no transfer store: set --db or database.path")
			}

			store, err := sqlite.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open transfer store: %w", err)
			}
			defer store.Close()

			transfers, err := store.List(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DESTINATION\tSTATUS\tRECEIVED\tEXPECTED\tUPDATED")
			for _, t := range transfers {
				expected := "-"
				if t.ExpectedSize > 0 {
					expected = humanize.IBytes(t.ExpectedSize)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					t.DestinationPath,
					t.Status,
					humanize.IBytes(t.BytesDownloaded),
					expected,
					humanize.Time(t.UpdatedAt),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "Path to the transfer store database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of records to list")

	return cmd
}
