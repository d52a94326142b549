package cli

import (
	"encoding/json"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newTypeNamesCommand(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:     "typenames",
		Aliases: []string{"types"},
		Short:   "List the feature types advertised by GetCapabilities",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := outputFormat(v)
			if err != nil {
				return err
			}
			client, err := newClient(cmd, v)
			if err != nil {
				return err
			}
			names, err := client.GetTypeNames(cmd.Context())
			if err != nil {
				return fmt.Errorf("get type names: %w", err)
			}

			out := cmd.OutOrStdout()
			if format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(names)
			}
			table := tablewriter.NewWriter(out)
			table.Header("#", "Type name")
			for i, n := range names {
				_ = table.Append(fmt.Sprint(i+1), n)
			}
			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}
			return nil
		},
	}
}
