package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sonroyaalmerol/kumaboard/internal/sound"
)

var soundsCmd = &cobra.Command{
	Use:   "sounds",
	Short: "List the sounds in SOUNDS_DIR",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		catalog := sound.NewCatalog()
		if err := catalog.Initialize(cfg.SoundsDir); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, name := range catalog.Names() {
			s, _ := catalog.GetByName(name)
			fmt.Fprintf(out, "%s\t%s\n", name, s.Filename())
		}
		fmt.Fprintf(out, "%d sounds in %s\n", catalog.Len(), catalog.Path())
		return nil
	},
}
