package main

import (
	"context"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/stevemurr/simple-settings-store/settings"
)

// ItemsCmd handles raw document operations on one area.
type ItemsCmd struct {
	scope *settings.Scope
}

// ItemsGetInput holds input for reading keys.
type ItemsGetInput struct {
	Keys   []string
	Output string
}

// Get prints the requested keys, or the whole document when none are given.
func (c ItemsCmd) Get(ctx context.Context, in ItemsGetInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	doc, err := c.scope.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(in.Keys) > 0 {
		picked := make(map[string]any, len(in.Keys))
		for _, k := range in.Keys {
			if v, ok := doc[k]; ok {
				picked[k] = v
			}
		}
		doc = picked
	}
	if in.Output == "json" {
		return printJSON(doc)
	}
	return printDocument(doc)
}

// ItemsSetInput holds input for writing one key.
type ItemsSetInput struct {
	Key      string
	Value    string
	AsString bool
}

// Set stores one value.
func (c ItemsCmd) Set(ctx context.Context, in ItemsSetInput) error {
	v, err := parseValue(in.Value, in.AsString)
	if err != nil {
		return err
	}
	if err := c.scope.Set(ctx, in.Key, v); err != nil {
		return err
	}
	pterm.Success.Printf("Set %s in %s\n", in.Key, c.scope.Area())
	return nil
}

// Remove deletes keys.
func (c ItemsCmd) Remove(ctx context.Context, keys []string) error {
	if err := c.scope.Remove(ctx, keys...); err != nil {
		return err
	}
	pterm.Success.Printf("Removed %d key(s) from %s\n", len(keys), c.scope.Area())
	return nil
}

// Clear erases the document. Confirm must be set.
func (c ItemsCmd) Clear(ctx context.Context, confirm bool) error {
	if !confirm {
		return fmt.Errorf("refusing to clear the %s area without --yes", c.scope.Area())
	}
	if err := c.scope.Clear(ctx); err != nil {
		return err
	}
	pterm.Success.Printf("Cleared %s\n", c.scope.Area())
	return nil
}

// ItemsUpdateInput holds input for a nested update.
type ItemsUpdateInput struct {
	Path   string
	Patch  string
	Unset  []string
	Output string
}

// Update merges a JSON object patch into the object at a dot path. Keys in
// Unset are deleted from that object.
func (c ItemsCmd) Update(ctx context.Context, in ItemsUpdateInput) error {
	if err := validateOutput(in.Output); err != nil {
		return err
	}
	patch := settings.Patch{}
	if in.Patch != "" {
		p, err := parsePatch(in.Patch)
		if err != nil {
			return err
		}
		patch = p
	}
	for _, k := range in.Unset {
		patch[k] = settings.Undefined
	}
	merged, err := c.scope.Update(ctx, in.Path, patch)
	if err != nil {
		return err
	}
	if in.Output == "json" {
		return printJSON(merged)
	}
	return printDocument(merged)
}

var itemsCmd = &cobra.Command{
	Use:     "items",
	Aliases: []string{"item"},
	Short:   "Read and write raw settings keys",
}

var itemsGetCmd = &cobra.Command{
	Use:   "get [key...]",
	Short: "Show keys, or the whole document",
	RunE:  runItemsGet,
}

var itemsSetCmd = &cobra.Command{
	Use:   "set <key> <json-value>",
	Short: "Store a value",
	Args:  cobra.ExactArgs(2),
	RunE:  runItemsSet,
}

var itemsRemoveCmd = &cobra.Command{
	Use:     "rm <key>...",
	Aliases: []string{"remove"},
	Short:   "Remove keys",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runItemsRemove,
}

var itemsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase every key in the area",
	Args:  cobra.NoArgs,
	RunE:  runItemsClear,
}

var itemsUpdateCmd = &cobra.Command{
	Use:   "update <dot.path> [json-object]",
	Short: "Merge a JSON object into the object at a dot path",
	Long:  "Shallow-merges the patch into the object at the path, creating missing objects along the way. Use --unset to delete keys from that object.",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runItemsUpdate,
}

func init() {
	itemsCmd.PersistentFlags().String("area", "local", "Settings area (local, sync)")
	itemsCmd.AddCommand(itemsGetCmd)
	itemsCmd.AddCommand(itemsSetCmd)
	itemsCmd.AddCommand(itemsRemoveCmd)
	itemsCmd.AddCommand(itemsClearCmd)
	itemsCmd.AddCommand(itemsUpdateCmd)

	itemsGetCmd.Flags().StringP("output", "o", "", "Output format (json)")
	itemsSetCmd.Flags().Bool("string", false, "Store the value as a plain string instead of parsing JSON")
	itemsClearCmd.Flags().Bool("yes", false, "Confirm clearing the area")
	itemsUpdateCmd.Flags().StringSlice("unset", nil, "Keys to delete from the target object")
	itemsUpdateCmd.Flags().StringP("output", "o", "", "Output format (json)")
}

func itemsFor(cmd *cobra.Command) (ItemsCmd, error) {
	sc, err := scopeFor(cmd)
	if err != nil {
		return ItemsCmd{}, err
	}
	return ItemsCmd{scope: sc}, nil
}

func runItemsGet(cmd *cobra.Command, args []string) error {
	c, err := itemsFor(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	return c.Get(cmd.Context(), ItemsGetInput{Keys: args, Output: output})
}

func runItemsSet(cmd *cobra.Command, args []string) error {
	c, err := itemsFor(cmd)
	if err != nil {
		return err
	}
	asString, _ := cmd.Flags().GetBool("string")
	return c.Set(cmd.Context(), ItemsSetInput{Key: args[0], Value: args[1], AsString: asString})
}

func runItemsRemove(cmd *cobra.Command, args []string) error {
	c, err := itemsFor(cmd)
	if err != nil {
		return err
	}
	return c.Remove(cmd.Context(), args)
}

func runItemsClear(cmd *cobra.Command, args []string) error {
	c, err := itemsFor(cmd)
	if err != nil {
		return err
	}
	yes, _ := cmd.Flags().GetBool("yes")
	return c.Clear(cmd.Context(), yes)
}

func runItemsUpdate(cmd *cobra.Command, args []string) error {
	c, err := itemsFor(cmd)
	if err != nil {
		return err
	}
	unset, _ := cmd.Flags().GetStringSlice("unset")
	output, _ := cmd.Flags().GetString("output")
	in := ItemsUpdateInput{Path: args[0], Unset: unset, Output: output}
	if len(args) == 2 {
		in.Patch = args[1]
	}
	return c.Update(cmd.Context(), in)
}
