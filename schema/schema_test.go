package schema_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/simple-settings-store/schema"
)

var preferencesSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"theme": map[string]any{"type": "string", "enum": []any{"light", "dark"}},
		"kudoAllFilters": map[string]any{
			"type":     "array",
			"items":    map[string]any{"type": "string", "minLength": float64(1)},
			"maxItems": float64(3),
		},
		"ftp": map[string]any{
			"type":             "integer",
			"exclusiveMinimum": float64(0),
			"maximum":          float64(2000),
		},
		"weight": map[string]any{"type": []any{"number", "null"}},
		"units": map[string]any{
			"type":     "object",
			"required": []any{"distance"},
			"properties": map[string]any{
				"distance": map[string]any{"type": "string", "maxLength": float64(8)},
			},
			"additionalProperties": false,
		},
	},
	"additionalProperties": map[string]any{"type": "boolean"},
}

func TestValidateNilSchema(t *testing.T) {
	assert.NoError(t, schema.Validate(nil, map[string]any{"anything": "goes"}, ""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		value any
		ok    bool
	}{
		{"empty object", map[string]any{}, true},
		{"not an object", "dark", false},
		{"enum match", map[string]any{"theme": "dark"}, true},
		{"enum miss", map[string]any{"theme": "blue"}, false},
		{"array ok", map[string]any{"kudoAllFilters": []any{"run", "ride"}}, true},
		{"array too long", map[string]any{"kudoAllFilters": []any{"a", "b", "c", "d"}}, false},
		{"array item too short", map[string]any{"kudoAllFilters": []any{""}}, false},
		{"array item wrong type", map[string]any{"kudoAllFilters": []any{float64(1)}}, false},
		{"integer from float", map[string]any{"ftp": float64(250)}, true},
		{"integer from go int", map[string]any{"ftp": 250}, true},
		{"fractional integer", map[string]any{"ftp": 250.5}, false},
		{"exclusive minimum", map[string]any{"ftp": float64(0)}, false},
		{"maximum", map[string]any{"ftp": float64(2001)}, false},
		{"type list number", map[string]any{"weight": 71.5}, true},
		{"type list null", map[string]any{"weight": nil}, true},
		{"type list miss", map[string]any{"weight": "heavy"}, false},
		{"nested ok", map[string]any{"units": map[string]any{"distance": "km"}}, true},
		{"nested required", map[string]any{"units": map[string]any{}}, false},
		{"nested additional", map[string]any{"units": map[string]any{"distance": "km", "x": "y"}}, false},
		{"nested max length", map[string]any{"units": map[string]any{"distance": "kilometres"}}, false},
		{"additional schema ok", map[string]any{"dashboard-disable-kudoall": true}, true},
		{"additional schema miss", map[string]any{"dashboard-disable-kudoall": "yes"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := schema.Validate(preferencesSchema, tc.value, "preferences")
			if tc.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, schema.ErrViolation)
			assert.Contains(t, err.Error(), "preferences")
		})
	}
}

func TestRegistryCheck(t *testing.T) {
	reg := schema.Registry{"preferences": preferencesSchema}

	assert.NoError(t, reg.Check("preferences", map[string]any{"theme": "light"}))
	assert.ErrorIs(t, reg.Check("preferences", map[string]any{"theme": 1}), schema.ErrViolation)
	assert.NoError(t, reg.Check("athlete_info", "no schema registered"))

	var empty schema.Registry
	assert.NoError(t, empty.Check("preferences", 1))
}

func TestLoadRegistry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schemas.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"options": {"type": "object", "required": ["enabled"]}
	}`), 0o644))

	reg, err := schema.LoadRegistry(path)
	require.NoError(t, err)
	assert.NoError(t, reg.Check("options", map[string]any{"enabled": true}))
	assert.ErrorIs(t, reg.Check("options", map[string]any{}), schema.ErrViolation)

	require.NoError(t, os.WriteFile(path, []byte(`[1, 2]`), 0o644))
	_, err = schema.LoadRegistry(path)
	assert.Error(t, err)

	_, err = schema.LoadRegistry(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
