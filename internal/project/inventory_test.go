package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultInventoryPath(t *testing.T) {
	path := DefaultInventoryPath()
	assert.Equal(t, "inventory.json", filepath.Base(path))
	assert.Equal(t, ".slabnest", filepath.Base(filepath.Dir(path)))
}

func TestInventoryRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.json")
	inv := model.Inventory{
		Tools:  []model.ToolProfile{model.NewToolProfile("Compression 8mm", 8, 2500, 600, 18000, 5, 18, 9)},
		Stocks: []model.StockPreset{model.NewStockPresetWithPrice("Birch 2500x1250", 2500, 1250, "Plywood", 95.5)},
	}
	require.NoError(t, SaveInventory(path, inv))

	loaded, err := LoadInventory(path)
	require.NoError(t, err)
	assert.Equal(t, inv, loaded)
}

func TestLoadInventoryWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "inventory.json")

	inv, err := LoadInventory(path)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultInventory().ToolNames(), inv.ToolNames())
	assert.NotEmpty(t, inv.Stocks)

	again, err := LoadInventory(path)
	require.NoError(t, err)
	assert.Equal(t, inv, again, "second load reads the file written by the first")
}

func TestLoadInventoryInvalidJSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "inventory.json", "{tools")
	_, err := LoadInventory(path)
	assert.Error(t, err)
}

func TestImportInventorySkipsKnownIDs(t *testing.T) {
	dir := t.TempDir()
	existing := model.Inventory{
		Tools:  []model.ToolProfile{{ID: "t1", Name: "Existing Mill", ToolDiameter: 6}},
		Stocks: []model.StockPreset{{ID: "s1", Name: "Existing Plywood", Width: 2440, Height: 1220}},
	}
	src := filepath.Join(dir, "import.json")
	require.NoError(t, ExportInventory(src, model.Inventory{
		Tools: []model.ToolProfile{
			{ID: "t1", Name: "Duplicate Mill", ToolDiameter: 6},
			{ID: "t2", Name: "New Mill", ToolDiameter: 3},
		},
		Stocks: []model.StockPreset{{ID: "s2", Name: "New MDF", Width: 1220, Height: 610}},
	}))

	merged, err := ImportInventory(src, existing)
	require.NoError(t, err)
	assert.Equal(t, []string{"Existing Mill", "New Mill"}, merged.ToolNames())
	assert.Equal(t, []string{"Existing Plywood", "New MDF"}, merged.StockNames())
	assert.Len(t, existing.Tools, 1, "the input inventory is not modified")
}

func TestImportInventoryErrors(t *testing.T) {
	dir := t.TempDir()
	existing := model.DefaultInventory()

	merged, err := ImportInventory(filepath.Join(dir, "missing.json"), existing)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, existing, merged)

	bad := writeFile(t, dir, "bad.json", "{")
	merged, err = ImportInventory(bad, existing)
	assert.Error(t, err)
	assert.Equal(t, existing, merged)
}
