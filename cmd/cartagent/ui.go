package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"cartagent/internal/config"
	"cartagent/internal/ui"
)

func newUICmd() *cobra.Command {
	var (
		host        string
		port        int
		historyPath string
	)

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Serve the web form for starting cart runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			// The server reads history through the same store the runs
			// write to; one connection to the sqlite file.
			store := openHistory(historyPath)

			opts := runOptions{maxSteps: 25, store: store}
			launcher := func(ctx context.Context, cfg *config.Config, logf func(string, ...any)) error {
				return runCart(ctx, cfg, opts, logf)
			}

			srv := ui.NewServer(launcher, store, logger)
			return srv.Run(fmt.Sprintf("%s:%d", host, port))
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "interface to listen on")
	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&historyPath, "history", "cartagent.db", "path to the run history database (empty disables)")
	return cmd
}
