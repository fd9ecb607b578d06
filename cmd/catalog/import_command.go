package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Clark-Hu/movie-catalog/internal/catalog"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	var path string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load genres and movies from a TOML file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(path) == "" {
				return errors.New("--file is required")
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open catalog file: %w", err)
			}
			defer f.Close()

			file, err := parseCatalogFile(f)
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "Parsed %d genres and %d movies\n", len(file.Genres), len(file.Movies))
				return nil
			}

			return ctx.withService(cmd.Context(), func(svc *catalog.Service) error {
				summary, err := importCatalog(cmd.Context(), svc, file)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d genres and %d movies\n", summary.Genres, summary.Movies)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "TOML catalog file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Parse the file without writing to the database")
	return cmd
}
