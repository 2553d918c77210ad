package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect live call sessions",
	Long:  `List, inspect, and remove sessions held by the configured store. Useful with the redis store.`,
}

var sessionsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = c.close() }()

		ids, err := c.store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No active sessions found.")
			return nil
		}
		fmt.Fprintln(out, "Active Sessions:")
		for _, id := range ids {
			fmt.Fprintln(out, "- "+id)
		}
		return nil
	},
}

var sessionsInspectCmd = &cobra.Command{
	Use:   "inspect <call-id>",
	Short: "Print a session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = c.close() }()

		sess, err := c.store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session '%s': %w", args[0], err)
		}
		data, err := json.MarshalIndent(sess, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <call-id>...",
	Short: "Remove sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = c.close() }()

		for _, id := range args {
			if err := c.store.Delete(cmd.Context(), id); err != nil {
				return fmt.Errorf("failed to remove session '%s': %w", id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", id)
		}
		return nil
	},
}

func openStore(cmd *cobra.Command) (*components, error) {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return buildStore(cmd.Context(), cfg)
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsLsCmd, sessionsInspectCmd, sessionsRmCmd)
}
