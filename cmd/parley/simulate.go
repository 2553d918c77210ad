package main

import (
	"os"

	"github.com/aretw0/parley"
	"github.com/aretw0/parley/pkg/observability"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Play a call from the terminal",
	Long: `Drives the call flow from stdin: answer the menu with a digit or a language
name, then speak by typing. An empty line simulates silence; "exit" hangs up.
Use --backend fake to try the flow without an API key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		svc, closeStore, err := buildService(cmd.Context(), cfg, logger, observability.Hooks(nil, logger))
		if err != nil {
			return err
		}
		defer func() { _ = closeStore() }()

		callID, _ := cmd.Flags().GetString("call-id")
		if callID == "" {
			callID = "SIM-" + uuid.NewString()
		}
		showVoice, _ := cmd.Flags().GetBool("voices")

		sim := &parley.Simulator{
			Input:     os.Stdin,
			Output:    cmd.OutOrStdout(),
			CallID:    callID,
			ShowVoice: showVoice,
		}
		return sim.Run(cmd.Context(), svc)
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().String("call-id", "", "Call id to simulate (default: random)")
	simulateCmd.Flags().Bool("voices", false, "Show the voice and locale of every prompt")
	simulateCmd.Flags().String("single-language", "", "Skip the language menu and use this locale key")
}
