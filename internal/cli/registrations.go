package cli

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newRegistrationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "registrations",
		Aliases: []string{"reg"},
		Short:   "Deletion check registration commands",
	}

	cmd.AddCommand(newRegistrationsAddCmd())
	cmd.AddCommand(newRegistrationsRemoveCmd())
	cmd.AddCommand(newRegistrationsListCmd())

	return cmd
}

func newRegistrationsAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <key>",
		Short: "Register an account ID or username for deletion checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"key": args[0]}

			if err := client.Post(cmd.Context(), "/api/v1/deletecheck/registrations", req, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Registered %s", args[0]))
			return nil
		},
	}
}

func newRegistrationsRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Stop deletion checks for an identifier",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/deletecheck/registrations/" + url.PathEscape(args[0])

			if err := client.Delete(cmd.Context(), path); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Unregistered %s", args[0]))
			return nil
		},
	}
}

func newRegistrationsListCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registrations last checked before a point in time",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/deletecheck/registrations"
			if olderThan > 0 {
				cutoff := time.Now().Add(-olderThan).UnixMilli()
				path += "?stale_before=" + strconv.FormatInt(cutoff, 10)
			}

			var result RegistrationList

			if err := client.Get(cmd.Context(), path, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "Only show registrations last checked at least this long ago (e.g. 24h)")

	return cmd
}
