// Package cli implements ga4ctl, the operator CLI for a running GA4 insights
// server.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1

	defaultServer = "http://localhost:8010"
)

// Run executes ga4ctl with os.Args and returns the process exit code.
func Run() ExitCode {
	return run(os.Args[1:], os.Stdout, os.Stderr)
}

func run(args []string, stdout, stderr io.Writer) ExitCode {
	rootCmd := NewRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

// NewRootCmd builds the command tree writing to stdout and stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ga4ctl",
		Short:         "Query a GA4 insights server from the command line.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	server := os.Getenv("GA4CTL_SERVER")
	if server == "" {
		server = defaultServer
	}
	rootCmd.PersistentFlags().StringP("server", "s", server, "base URL of the GA4 insights server (env GA4CTL_SERVER)")
	rootCmd.PersistentFlags().Duration("timeout", 90*time.Second, "request timeout")

	rootCmd.AddCommand(
		NewQueryCmd().Command(),
		NewAskCmd().Command(),
		NewSchemaCmd().Command(),
	)
	return rootCmd
}

// clientFor builds a client from the root persistent flags.
func clientFor(cmd *cobra.Command) (*client, error) {
	server, err := cmd.Root().PersistentFlags().GetString("server")
	if err != nil {
		return nil, fmt.Errorf("failed to get server flag: %w", err)
	}
	timeout, err := cmd.Root().PersistentFlags().GetDuration("timeout")
	if err != nil {
		return nil, fmt.Errorf("failed to get timeout flag: %w", err)
	}
	return newClient(server, timeout), nil
}
