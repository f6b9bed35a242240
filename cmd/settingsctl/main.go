// Command settingsctl reads and edits a settings store on disk.
package main

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stevemurr/simple-settings-store/app"
	"github.com/stevemurr/simple-settings-store/config"
	"github.com/stevemurr/simple-settings-store/logging"
	"github.com/stevemurr/simple-settings-store/settings"
)

// opened is the store opened by the root command for the running subcommand.
var opened *app.App

var rootCmd = &cobra.Command{
	Use:               "settingsctl",
	Short:             "Inspect and edit a settings store",
	Long:              "Reads and writes the local and sync settings documents directly on disk, using the same backends as the server.",
	SilenceUsage:      true,
	PersistentPreRunE: openStore,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("backend", "", "Store backend for the local area (json, sqlite, pebble, memory); defaults to STORE_BACKEND")
	f.String("sync-backend", "", "Store backend for the sync area, or 'none'; defaults to SYNC_BACKEND")
	f.String("data-dir", "", "Data directory; defaults to DATA_DIR")
	f.String("schema", "", "Schema registry file; defaults to SCHEMA_FILE")
	f.String("env-file", ".env", "Env file to load before reading the environment")

	rootCmd.AddCommand(itemsCmd)
	rootCmd.AddCommand(prefCmd)
	rootCmd.AddCommand(athleteCmd)
}

func openStore(cmd *cobra.Command, args []string) error {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetString("backend"); v != "" {
		cfg.Backend = v
	}
	if v, _ := cmd.Flags().GetString("sync-backend"); v != "" {
		cfg.SyncBackend = v
	}
	if v, _ := cmd.Flags().GetString("data-dir"); v != "" {
		cfg.DataDir = v
	}
	if v, _ := cmd.Flags().GetString("schema"); v != "" {
		cfg.SchemaFile = v
	}

	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	opened, err = app.Open(cfg, logging.Component(log, "settingsctl"))
	return err
}

// scopeFor returns the scope named by the command's --area flag.
func scopeFor(cmd *cobra.Command) (*settings.Scope, error) {
	name, _ := cmd.Flags().GetString("area")
	a, err := settings.ParseArea(name)
	if err != nil {
		return nil, err
	}
	return opened.Settings.Area(a), nil
}

func main() {
	err := rootCmd.Execute()
	if opened != nil {
		if cerr := opened.Close(); cerr != nil {
			pterm.Error.Printf("close store: %v\n", cerr)
		}
	}
	if err != nil {
		os.Exit(1)
	}
}
