package main

import (
	"context"
	"fmt"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-medreport/internal/config"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "medreport",
	Short: "Structure medical report PDFs into TEI training data",
	Long: `medreport reads medical report PDFs, builds the feature records of their
text, labels them with a sequence labelling model and writes the result as TEI.

The commands run the pipeline once; serve exposes it as an MCP server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.medreport/config.yaml)",
	)
	config.DefineFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(serveCmd, featuresCmd, labelCmd, batchCmd, pagesCmd, datelineCmd, nerCmd, alignCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		printVersion(cmd)
	},
}

// printVersion prints version information
func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "medreport %s\n", version)
	fmt.Fprintf(out, "  Build Time: %s\n", buildTime)
	fmt.Fprintf(out, "  Git Commit: %s\n", gitCommit)
	fmt.Fprintf(out, "  Built with: %s\n", runtime.Version())
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	failOn(err)
}
