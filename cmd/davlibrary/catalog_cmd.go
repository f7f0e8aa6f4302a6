package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Check that the WebDAV server and media paths are reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}

			result := a.catalog.TestConnection(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), result.Message)
			if !result.Success {
				return errors.New("connection test failed")
			}
			return nil
		},
	}
}

func newLibrariesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "libraries",
		Short: "List configured libraries with their video counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.catalog.FetchLibraries(cmd.Context()))
		},
	}
}

func newMoviesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "movies",
		Short: "List movies found in the movie libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.catalog.FetchMovies(cmd.Context()))
		},
	}
}

func newSeriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "series",
		Short: "List series found in the TV libraries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.catalog.FetchSeries(cmd.Context()))
		},
	}
}

func newSeasonsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seasons <series-id>",
		Short: "List the seasons of a series",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}

			seasons, err := a.catalog.FetchSeasons(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), seasons)
		},
	}
}

func newEpisodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "episodes <series-id> [season-id]",
		Short: "List the episodes of a series or of one of its seasons",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(os.Stderr)
			if err != nil {
				return err
			}

			var seasonID string
			if len(args) == 2 {
				seasonID = args[1]
			}

			episodes, err := a.catalog.FetchEpisodes(cmd.Context(), args[0], seasonID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), episodes)
		},
	}
}
