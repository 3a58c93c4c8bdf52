package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/SlabNest/internal/model"
)

// DefaultInventoryPath returns ~/.slabnest/inventory.json.
func DefaultInventoryPath() string {
	return filepath.Join(DefaultConfigDir(), "inventory.json")
}

// SaveInventory writes the tools and stock presets to path.
func SaveInventory(path string, inv model.Inventory) error {
	return writeJSON(path, inv)
}

// LoadInventory reads the inventory at path. The first load writes the
// default inventory so users have a file to edit.
func LoadInventory(path string) (model.Inventory, error) {
	var inv model.Inventory
	found, err := readJSON(path, &inv)
	if err != nil {
		return model.Inventory{}, fmt.Errorf("load inventory: %w", err)
	}
	if !found {
		inv = model.DefaultInventory()
		return inv, SaveInventory(path, inv)
	}
	return inv, nil
}

// ExportInventory writes inv to a file for sharing.
func ExportInventory(path string, inv model.Inventory) error {
	return SaveInventory(path, inv)
}

// ImportInventory merges the inventory at path into existing. Entries whose
// ID is already known are skipped; on error existing is returned unchanged.
func ImportInventory(path string, existing model.Inventory) (model.Inventory, error) {
	var imported model.Inventory
	found, err := readJSON(path, &imported)
	if err == nil && !found {
		err = os.ErrNotExist
	}
	if err != nil {
		return existing, fmt.Errorf("import inventory %s: %w", path, err)
	}

	return model.Inventory{
		Tools:  mergeByID(existing.Tools, imported.Tools, func(t model.ToolProfile) string { return t.ID }),
		Stocks: mergeByID(existing.Stocks, imported.Stocks, func(s model.StockPreset) string { return s.ID }),
	}, nil
}
