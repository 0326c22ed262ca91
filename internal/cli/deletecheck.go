package cli

import (
	"github.com/spf13/cobra"
)

func newDeleteCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deletecheck",
		Short: "Deletion check commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Trigger one deletion check run, as the external scheduler would",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result TriggerResult

			if err := client.Post(cmd.Context(), "/internal/scheduler/delete-check", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	})

	return cmd
}
