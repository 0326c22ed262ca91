package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/spf13/cobra"
)

func newLevelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Level storage commands",
	}

	cmd.AddCommand(newLevelsGetCmd())
	cmd.AddCommand(newLevelsPutCmd())
	cmd.AddCommand(newLevelsDeleteCmd())
	cmd.AddCommand(newLevelsListCmd())

	return cmd
}

func levelPath(name string) string {
	return "/api/v1/levels/" + url.PathEscape(name)
}

func newLevelsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <name>",
		Short: "Get a level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Level

			if err := client.Get(cmd.Context(), levelPath(args[0]), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newLevelsPutCmd() *cobra.Command {
	var owner, file string

	cmd := &cobra.Command{
		Use:   "put <name>",
		Short: "Create or replace a level from a JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readLevelData(file)
			if err != nil {
				return err
			}

			req := map[string]any{"owner": owner, "data": json.RawMessage(data)}
			var result Level

			if err := client.Put(cmd.Context(), levelPath(args[0]), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Registered identifier that owns the level")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSON file with the level data")

	return cmd
}

func readLevelData(file string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if file == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(file)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read level data: %w", err)
	}
	if !json.Valid(data) {
		return nil, errors.New("level data is not valid JSON")
	}
	return data, nil
}

func newLevelsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete(cmd.Context(), levelPath(args[0])); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Deleted level %s", args[0]))
			return nil
		},
	}
}

func newLevelsListCmd() *cobra.Command {
	var owner string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List levels owned by an identifier",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result LevelList

			if err := client.Get(cmd.Context(), "/api/v1/levels?owner="+url.QueryEscape(owner), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Owner identifier")
	_ = cmd.MarkFlagRequired("owner")

	return cmd
}
