package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/devilmonastery/infohunter/internal/api"
	"github.com/devilmonastery/infohunter/internal/pkg/format"
)

func newSettingsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage backend system configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configuration keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			configs, err := getCliContext(cmd).Service.ListConfigs(cmd.Context())
			if err != nil {
				return err
			}
			if len(configs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No settings")
				return nil
			}
			sort.Slice(configs, func(i, j int) bool { return configs[i].Key < configs[j].Key })
			t := newTable(cmd.OutOrStdout(), "KEY", "VALUE", "DESCRIPTION")
			for _, c := range configs {
				desc := ""
				if c.Description != nil {
					desc = *c.Description
				}
				t.row(c.Key, format.Truncate(compactJSON(c.Value), 60), format.Truncate(desc, 40))
			}
			return t.flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get KEY",
		Short: "Show one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := getCliContext(cmd).Service.GetConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(c.Value, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	})

	var description string
	set := &cobra.Command{
		Use:   "set KEY JSON",
		Short: "Set a configuration value (admin)",
		Example: `  infohunter settings set notify_mode '{"mode": "top_list", "top_n": 10}'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var value map[string]any
			if err := json.Unmarshal([]byte(args[1]), &value); err != nil {
				return fmt.Errorf("value must be a JSON object: %w", err)
			}
			resp, err := getCliContext(cmd).Service.UpdateConfig(cmd.Context(), args[0],
				api.ConfigUpdate{Value: value, Description: description})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: %s\n", resp.Key, resp.Status)
			return nil
		},
	}
	set.Flags().StringVar(&description, "description", "", "Description of the setting")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete KEY",
		Short: "Delete a configuration value (admin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := getCliContext(cmd).Service.DeleteConfig(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", args[0])
			return nil
		},
	})

	return cmd
}

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
