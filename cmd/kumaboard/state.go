package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/kumaboard/internal/repository"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the persisted guild players",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := repository.OpenDB(cfg.DataDir)
		if err != nil {
			return err
		}
		defer db.Close()

		states, err := openStore(cfg, db).Load(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(states)
	},
}
