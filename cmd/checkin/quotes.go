package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tbourn/couple-checkin/internal/repo"
	"github.com/tbourn/couple-checkin/internal/services"
)

// quoteFile is the import format:
//
//	quotes:
//	  - message: "Love is patient."
//	    source: "1 Corinthians 13:4"
type quoteFile struct {
	Quotes []services.QuoteInput `yaml:"quotes"`
}

func parseQuotes(r io.Reader) ([]services.QuoteInput, error) {
	var f quoteFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("parse quotes: %w", err)
	}
	return f.Quotes, nil
}

func newQuotesCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Manage the inspirational quote table",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Insert or update quotes from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in, err := parseQuotes(f)
			if err != nil {
				return err
			}

			db, err := openDB(cmd.Context(), a)
			if err != nil {
				return err
			}
			defer repo.Close(db)

			svc := &services.QuoteService{DB: db}
			n, err := svc.Import(cmd.Context(), in)
			if err != nil {
				return err
			}
			log.Info().Int("written", n).Int("read", len(in)).Msg("quotes imported")
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d quotes\n", n)
			return nil
		},
	})
	return cmd
}
