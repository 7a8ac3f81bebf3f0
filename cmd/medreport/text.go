package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-medreport/internal/alignment"
	"github.com/a3tai/mcp-medreport/internal/features"
	"github.com/a3tai/mcp-medreport/internal/layout"
	"github.com/a3tai/mcp-medreport/internal/lexicon"
	"github.com/a3tai/mcp-medreport/internal/pagerange"
)

var pagesCmd = &cobra.Command{
	Use:   "pages <range>...",
	Short: "Normalise page ranges to the first--last form",
	Example: `  medreport pages 433-8 L74-5
  433--438
  L74--75`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, raw := range args {
			if _, err := fmt.Fprintln(cmd.OutOrStdout(), pagerange.Normalize(raw)); err != nil {
				return err
			}
		}
		return nil
	},
}

var datelineCmd = &cobra.Command{
	Use:   "dateline [file]",
	Short: "Featurise dateline training lines read from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lex, err := loadLexicon(cmd)
		if err != nil {
			return err
		}
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		out := features.NewDatelineBuilder(lex).Build(features.DatelineLines(string(data)))
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	},
}

var nerCmd = &cobra.Command{
	Use:   "ner [file]",
	Short: "Featurise plain text, read from a file or stdin, for the NER model",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lex, err := loadLexicon(cmd)
		if err != nil {
			return err
		}
		data, err := readInput(cmd, args)
		if err != nil {
			return err
		}

		out, err := features.NewNERBuilder(lex).Build(layout.TextTokens(string(data)), nil)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	},
}

var alignCmd = &cobra.Command{
	Use:   "align <features> <labeled>",
	Short: "Attach the labels of an annotated token file to raw feature records",
	Long: `Attach the labels of an annotated token file to raw feature records.

<features> holds one feature record per line, <labeled> one "token label" pair
per line. The labeled records are printed; the command fails when the two
files drift too far apart.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readLines(args[0])
		if err != nil {
			return err
		}
		labeled, err := readLines(args[1])
		if err != nil {
			return err
		}

		res, err := alignment.New(nil).Align(raw, labeled)
		if err != nil {
			return err
		}
		if _, err := io.WriteString(cmd.OutOrStdout(), res.String()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "%d matched, %d reused, %d dropped\n", res.Matched, res.Reused, res.Dropped)
		if !res.Accepted {
			return fmt.Errorf("document rejected: %d unmatched records at the end", res.Consecutive)
		}
		return nil
	},
}

func loadLexicon(cmd *cobra.Command) (*lexicon.Lexicon, error) {
	lexPath, _ := cmd.Flags().GetString("lexicon")
	return lexicon.Load(lexPath)
}

// readInput reads the file named by args, or stdin without arguments.
func readInput(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(cmd.InOrStdin())
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := strings.TrimRight(string(data), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}
