package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-medreport/internal/pipeline"
	"github.com/a3tai/mcp-medreport/internal/reports"
)

var (
	labelWrite bool
	batchQuery string
)

var featuresCmd = &cobra.Command{
	Use:   "features <report.pdf>",
	Short: "Print the full text feature records of a report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.engine.ProcessFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.Empty {
			return fmt.Errorf("no text found in %s", args[0])
		}
		_, err = io.WriteString(cmd.OutOrStdout(), res.Features+"\n")
		return err
	},
}

var labelCmd = &cobra.Command{
	Use:   "label <report.pdf>",
	Short: "Label a report and print its TEI",
	Long: `Label a report and print its TEI.

Without a configured tagger the TEI holds the unlabeled text. With --write the
training files are written to the output directory instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.engine.ProcessFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if res.Empty {
			return fmt.Errorf("no text found in %s", args[0])
		}

		if !labelWrite {
			_, err = io.WriteString(cmd.OutOrStdout(), res.TEI())
			return err
		}
		if err := a.cfg.EnsureOutputDirectory(); err != nil {
			return err
		}
		files, err := pipeline.WriteTrainingFiles(a.cfg.OutputDirectory, res)
		if err != nil {
			return err
		}
		for _, f := range files {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
		return nil
	},
}

var batchCmd = &cobra.Command{
	Use:   "batch [directory]",
	Short: "Write the training files of every report of a directory",
	Long: `Write the training files of every report of a directory.

The directory defaults to --dir. Reports are processed --workers at a time and
a failing report does not stop the others; the command fails when any report
failed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.close()

		directory := a.cfg.InputDirectory
		if len(args) == 1 {
			directory = args[0]
		}
		files, err := reports.NewSearch(a.cfg.MaxFileSize).Find(directory, batchQuery, 0)
		if err != nil {
			return err
		}
		if err := a.cfg.EnsureOutputDirectory(); err != nil {
			return err
		}

		batch := &pipeline.Batch{
			Processor: a.engine,
			OutputDir: a.cfg.OutputDirectory,
			Workers:   a.cfg.Workers,
			Logger:    a.logger.Named("batch"),
		}
		report, err := batch.Run(cmd.Context(), reports.Paths(files))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d report(s), %d processed, %d without text, %d file(s) written to %s\n",
			len(files), report.Processed, report.Empty, len(report.Files), a.cfg.OutputDirectory)
		for _, e := range report.Errors.Errors() {
			fmt.Fprintf(out, "  %s: %v\n", e.Document, e)
		}
		if report.Errors.Len() > 0 {
			return fmt.Errorf("%s", report.Errors.Summary())
		}
		return nil
	},
}

func init() {
	labelCmd.Flags().BoolVar(&labelWrite, "write", false, "Write the training files to the output directory")
	batchCmd.Flags().StringVar(&batchQuery, "query", "", "Only process reports whose name matches")
}
