package main

import (
	"os"

	"github.com/spf13/cobra"

	"davlibrary/internal/library"
	"davlibrary/internal/storage"
)

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy the current catalog into the snapshot database",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := library.NewSyncer(a.catalog, store, a.logger).Run(cmd.Context())
			if run != nil {
				if perr := printJSON(cmd.OutOrStdout(), run); perr != nil {
					return perr
				}
			}
			return err
		},
	}
}
