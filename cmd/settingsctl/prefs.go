package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stevemurr/simple-settings-store/settings"
)

// PrefsCmd handles preference and athlete info operations.
type PrefsCmd struct {
	settings *settings.Store
}

// GetPreference prints the preference at a dot path.
func (c PrefsCmd) GetPreference(ctx context.Context, path, output string) error {
	if err := validateOutput(output); err != nil {
		return err
	}
	v, err := c.settings.GetPreference(ctx, path)
	if err != nil {
		return err
	}
	if output == "json" {
		return printJSON(v)
	}
	if v == nil {
		pterm.Info.Printf("Preference %s is not set\n", path)
		return nil
	}
	fmt.Println(formatValue(v))
	return nil
}

// SetPreference stores the preference at a dot path.
func (c PrefsCmd) SetPreference(ctx context.Context, path, value string, asString bool) error {
	v, err := parseValue(value, asString)
	if err != nil {
		return err
	}
	if err := c.settings.SetPreference(ctx, path, v); err != nil {
		return err
	}
	pterm.Success.Printf("Set preference %s\n", path)
	return nil
}

// GetAthlete prints the stored info for an athlete.
func (c PrefsCmd) GetAthlete(ctx context.Context, id, output string) error {
	if err := validateOutput(output); err != nil {
		return err
	}
	info, err := c.settings.GetAthleteInfo(ctx, id)
	if err != nil {
		return err
	}
	if output == "json" {
		return printJSON(info)
	}
	if info == nil {
		pterm.Info.Printf("No info stored for athlete %s\n", id)
		return nil
	}
	return printDocument(info)
}

// UpdateAthlete merges a JSON object into the info for an athlete.
func (c PrefsCmd) UpdateAthlete(ctx context.Context, id, patch, output string) error {
	if err := validateOutput(output); err != nil {
		return err
	}
	p, err := parsePatch(patch)
	if err != nil {
		return err
	}
	merged, err := c.settings.UpdateAthleteInfo(ctx, id, p)
	if err != nil {
		return err
	}
	if output == "json" {
		return printJSON(merged)
	}
	return printDocument(merged)
}

var prefCmd = &cobra.Command{
	Use:     "pref",
	Aliases: []string{"prefs", "preference"},
	Short:   "Read and write preferences",
}

var prefGetCmd = &cobra.Command{
	Use:   "get <dot.path>",
	Short: "Show a preference",
	Args:  cobra.ExactArgs(1),
	RunE:  runPrefGet,
}

var prefSetCmd = &cobra.Command{
	Use:   "set <dot.path> <json-value>",
	Short: "Set a preference",
	Args:  cobra.ExactArgs(2),
	RunE:  runPrefSet,
}

var athleteCmd = &cobra.Command{
	Use:   "athlete",
	Short: "Read and update per-athlete info",
}

var athleteGetCmd = &cobra.Command{
	Use:   "get <athlete-id>",
	Short: "Show stored info for an athlete",
	Args:  cobra.ExactArgs(1),
	RunE:  runAthleteGet,
}

var athleteUpdateCmd = &cobra.Command{
	Use:   "update <athlete-id> <json-object>",
	Short: "Merge fields into an athlete's info",
	Args:  cobra.ExactArgs(2),
	RunE:  runAthleteUpdate,
}

func init() {
	prefCmd.AddCommand(prefGetCmd)
	prefCmd.AddCommand(prefSetCmd)
	athleteCmd.AddCommand(athleteGetCmd)
	athleteCmd.AddCommand(athleteUpdateCmd)

	prefGetCmd.Flags().StringP("output", "o", "", "Output format (json)")
	prefSetCmd.Flags().Bool("string", false, "Store the value as a plain string instead of parsing JSON")
	athleteGetCmd.Flags().StringP("output", "o", "", "Output format (json)")
	athleteUpdateCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func runPrefGet(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	c := PrefsCmd{settings: opened.Settings}
	return c.GetPreference(cmd.Context(), args[0], output)
}

func runPrefSet(cmd *cobra.Command, args []string) error {
	asString, _ := cmd.Flags().GetBool("string")
	c := PrefsCmd{settings: opened.Settings}
	return c.SetPreference(cmd.Context(), args[0], args[1], asString)
}

func runAthleteGet(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	c := PrefsCmd{settings: opened.Settings}
	return c.GetAthlete(cmd.Context(), args[0], output)
}

func runAthleteUpdate(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	c := PrefsCmd{settings: opened.Settings}
	return c.UpdateAthlete(cmd.Context(), args[0], args[1], output)
}
