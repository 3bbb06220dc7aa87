// Package cli implements the command-line interface for flash.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runpod/flash/internal/output"
	"github.com/runpod/flash/internal/updatecheck"
	"github.com/runpod/flash/internal/version"
)

// Global flags
var (
	projectPath string
	configPath  string
	jsonOutput  bool
	noColor     bool
	quiet       bool
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "flash",
	Short: "Deploy and dispatch serverless compute resources",
	Long: `flash turns functions and classes annotated in your project into
deployed serverless endpoints and dispatches calls to them.

It builds a manifest of queue and load-balanced resources, deploys them
through the control plane, and generates local stubs that make a remote
call look like a regular function call.`,
	Version: version.String(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format := output.FormatText
		if jsonOutput {
			format = output.FormatJSON
		}

		verbosity := output.VerbosityNormal
		if quiet {
			verbosity = output.VerbosityQuiet
		} else if verbose {
			verbosity = output.VerbosityVerbose
		}

		output.Configure(output.Config{
			Format:    format,
			Verbosity: verbosity,
			NoColor:   noColor,
			Writer:    os.Stdout,
			ErrWriter: os.Stderr,
		})

		if projectPath == "" {
			var err error
			projectPath, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current directory: %w", err)
			}
		}

		updatecheck.StartBackground(version.Version)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() error {
	defer updatecheck.PrintNoticeIfAny()
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectPath, "project", "p", "", "project directory (default: current directory)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "manifest", "m", "", "path to the flash manifest (default: auto-detect)")

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "minimal output (errors only)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(appCmd)
	rootCmd.AddCommand(envCmd)
}
