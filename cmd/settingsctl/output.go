package main

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/pterm/pterm"
	"github.com/samber/lo"
)

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

// formatValue renders a stored value for a table cell.
func formatValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// printDocument prints a document as a Key/Value table in key order.
func printDocument(doc map[string]any) error {
	if len(doc) == 0 {
		pterm.Info.Println("No settings stored")
		return nil
	}
	keys := lo.Keys(doc)
	slices.Sort(keys)

	rows := pterm.TableData{{"Key", "Value"}}
	for _, k := range keys {
		rows = append(rows, []string{k, formatValue(doc[k])})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

// parseValue decodes a command-line JSON argument. With asString set the
// argument is taken verbatim.
func parseValue(arg string, asString bool) (any, error) {
	if asString {
		return arg, nil
	}
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err != nil {
		return nil, fmt.Errorf("value %q is not valid JSON (use --string for plain text): %w", arg, err)
	}
	return v, nil
}

// parsePatch decodes a command-line JSON object argument.
func parsePatch(arg string) (map[string]any, error) {
	var patch map[string]any
	if err := json.Unmarshal([]byte(arg), &patch); err != nil || patch == nil {
		return nil, fmt.Errorf("patch %q must be a JSON object", arg)
	}
	return patch, nil
}

func validateOutput(output string) error {
	if output != "" && output != "json" {
		return fmt.Errorf("unsupported --output value: use 'json'")
	}
	return nil
}
