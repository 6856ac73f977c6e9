package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platformbuilds/ga4-insights/internal/assistant/summariser"
	"github.com/platformbuilds/ga4-insights/internal/models"
)

type QueryCmd struct{}

func NewQueryCmd() *QueryCmd {
	return &QueryCmd{}
}

func (c *QueryCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run a structured GA4 report",
		Example: `  ga4ctl query --metrics activeUsers,bounceRate --dimensions city --start 7daysAgo --end today
  ga4ctl query --metrics sessions --dimensions date --start 2024-06-01 --end 2024-06-07 --filter deviceCategory=mobile`,
		RunE: func(cmd *cobra.Command, args []string) error {
			metrics, err := cmd.Flags().GetStringSlice("metrics")
			if err != nil {
				return fmt.Errorf("failed to get metrics flag: %w", err)
			}
			dimensions, err := cmd.Flags().GetStringSlice("dimensions")
			if err != nil {
				return fmt.Errorf("failed to get dimensions flag: %w", err)
			}
			start, err := cmd.Flags().GetString("start")
			if err != nil {
				return fmt.Errorf("failed to get start flag: %w", err)
			}
			end, err := cmd.Flags().GetString("end")
			if err != nil {
				return fmt.Errorf("failed to get end flag: %w", err)
			}
			filters, err := cmd.Flags().GetStringToString("filter")
			if err != nil {
				return fmt.Errorf("failed to get filter flag: %w", err)
			}
			plain, err := cmd.Flags().GetBool("plain")
			if err != nil {
				return fmt.Errorf("failed to get plain flag: %w", err)
			}

			cl, err := clientFor(cmd)
			if err != nil {
				return err
			}

			req := models.GA4Request{
				Metrics:    metrics,
				Dimensions: dimensions,
				StartDate:  start,
				EndDate:    end,
				Filters:    filters,
			}
			result, err := cl.Query(cmd.Context(), req)
			if err != nil {
				return err
			}

			if plain {
				fmt.Fprintln(cmd.OutOrStdout(), summariser.FallbackText(result))
				return nil
			}
			renderReport(cmd.OutOrStdout(), append(append([]string{}, dimensions...), metrics...), result)
			return nil
		},
	}

	cmd.Flags().StringSliceP("metrics", "m", nil, "metric names, comma separated")
	cmd.Flags().StringSliceP("dimensions", "d", nil, "dimension names, comma separated")
	cmd.Flags().String("start", "7daysAgo", "start date (YYYY-MM-DD, today, yesterday, NdaysAgo)")
	cmd.Flags().String("end", "today", "end date (YYYY-MM-DD, today, yesterday, NdaysAgo)")
	cmd.Flags().StringToStringP("filter", "f", nil, "dimension=substring filter, repeatable")
	cmd.Flags().Bool("plain", false, "print plain text instead of a table")
	_ = cmd.MarkFlagRequired("metrics")
	_ = cmd.MarkFlagRequired("dimensions")

	return cmd
}
