package cmd

import (
	"github.com/spf13/cobra"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the board listings into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(cmd.Context())
		defer p.Close()

		_, err := p.Scrape(cmd.Context())
		return err
	},
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the PDF posting of every scraped job",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(cmd.Context())
		defer p.Close()

		_, err := p.Download(cmd.Context())
		return err
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract posting fields from the downloaded PDFs",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(cmd.Context())
		defer p.Close()

		_, err := p.Extract(cmd.Context())
		return err
	},
}

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Join listings with postings and write the processed dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := newPipeline(cmd.Context())
		defer p.Close()

		_, err := p.Preprocess(cmd.Context())
		return err
	},
}

func init() {
	rootCmd.AddCommand(scrapeCmd, downloadCmd, extractCmd, preprocessCmd)
}
