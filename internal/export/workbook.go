package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Workbook sheet names.
const (
	placementsSheet = "Placements"
	sheetsSheet     = "Sheets"
	unplacedSheet   = "Unplaced"
	offcutsSheet    = "Offcuts"
)

// ExportWorkbook writes the placements, per-sheet statistics and unplaced
// parts of a job to an Excel workbook.
func ExportWorkbook(path string, job Job) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), placementsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]interface{}{{"UUID", "Part", "Sheet", "X (mm)", "Y (mm)", "Rotation (deg)"}}
	for _, p := range job.Result.Placed {
		rows = append(rows, []interface{}{p.UUID, p.PartID, p.BinID + 1, p.X, p.Y, p.Rotation})
	}
	if err := writeRows(f, placementsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	rows = [][]interface{}{{"Sheet", "Parts", "Used area (mm2)", "Total area (mm2)", "Efficiency (%)"}}
	stats := SheetStats(job)
	for _, st := range stats {
		rows = append(rows, []interface{}{st.Index + 1, st.Parts, round2(st.UsedArea), round2(st.TotalArea), round2(100 * st.Efficiency)})
	}
	if err := writeRows(f, sheetsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(offcutsSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	rows = [][]interface{}{{"ID", "Sheet", "X (mm)", "Y (mm)", "Width (mm)", "Height (mm)", "Value"}}
	for _, st := range stats {
		for _, o := range st.Offcuts {
			rows = append(rows, []interface{}{o.ID, o.BinID + 1, round2(o.X), round2(o.Y), round2(o.Width), round2(o.Height), round2(o.PricePerSheet)})
		}
	}
	if err := writeRows(f, offcutsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(unplacedSheet); err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}
	rows = [][]interface{}{{"Part", "Unplaced"}}
	order, counts := FailedCounts(job.Result)
	for _, id := range order {
		rows = append(rows, []interface{}{id, counts[id]})
	}
	if err := writeRows(f, unplacedSheet, rows); err != nil {
		return err
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
