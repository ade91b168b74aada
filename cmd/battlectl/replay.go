package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-battle-client/internal/battle"
	"github.com/DoyleJ11/arena-battle-client/internal/config"
	"github.com/DoyleJ11/arena-battle-client/internal/journal"
)

var replayJSON bool

var replayCmd = &cobra.Command{
	Use:   "replay [battle-id]",
	Short: "Print the archived turn log of a battle",
	Long: `Print the archived turn log of a finished battle. Without an id, list the
archived battles, most recent first.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print entries as JSON")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("BATTLE_DATABASE_URL is not set")
	}
	store, err := journal.Open(cfg.DatabaseURL, zap.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if len(args) == 0 {
		ids, err := store.Battles(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	}

	entries, err := store.Load(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no archived log for %s", args[0])
	}
	if replayJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	_, err = fmt.Fprint(out, battle.Render(entries))
	return err
}
