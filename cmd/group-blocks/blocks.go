package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joestump/group-blocks/internal/block"
	"github.com/joestump/group-blocks/internal/config"
)

func newBlocksCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "blocks",
		Short: "List the configured add content blocks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			reg, err := block.NewRegistry(cfg.Blocks, nil, block.DefaultRoutes())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tADMIN LABEL\tPLUGIN\tACCOUNT PERMISSION\tGROUP PERMISSION")
			for _, b := range reg.List() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					b.ID(), b.Type.AdminLabel(), b.Type.PluginID(),
					b.Type.AccountPermission(), b.Type.GroupPermission())
			}
			return w.Flush()
		},
	}
}
