package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/platformbuilds/ga4-insights/internal/assistant/summariser"
)

type AskCmd struct{}

func NewAskCmd() *AskCmd {
	return &AskCmd{}
}

func (c *AskCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:     "ask <question>",
		Short:   "Ask a question about GA4 traffic in plain language",
		Example: `  ga4ctl ask "Which cities had the highest bounce rate last week?"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question cannot be empty")
			}

			cl, err := clientFor(cmd)
			if err != nil {
				return err
			}

			answer, err := cl.Ask(cmd.Context(), question)
			if err != nil {
				// the report was fetched even though the answer was not written
				if fb := fallbackOf(err); fb != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "Summary unavailable, showing report data:")
					fmt.Fprintln(cmd.OutOrStdout(), summariser.FallbackText(fb))
				}
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
