package cli

import (
	"github.com/spf13/cobra"
)

type SchemaCmd struct{}

func NewSchemaCmd() *SchemaCmd {
	return &SchemaCmd{}
}

func (c *SchemaCmd) Command() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "List the metrics, dimensions and filter keys the server accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cl, err := clientFor(cmd)
			if err != nil {
				return err
			}
			s, err := cl.Schema(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			renderList(out, "Metrics", s.Metrics)
			renderList(out, "Dimensions", s.Dimensions)
			renderList(out, "Filter keys", s.FilterKeys)
			return nil
		},
	}
}
