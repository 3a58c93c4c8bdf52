package export

import (
	"path/filepath"
	"testing"

	"github.com/piwi3910/SlabNest/internal/model"
	"github.com/xuri/excelize/v2"
)

func TestExportWorkbook(t *testing.T) {
	job := buildTestJob(t, model.StrategyGuillotine)
	path := filepath.Join(t.TempDir(), "placements.xlsx")

	if err := ExportWorkbook(path, job); err != nil {
		t.Fatalf("ExportWorkbook returned error: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("cannot reopen workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(placementsSheet)
	if err != nil {
		t.Fatalf("read placements: %v", err)
	}
	if len(rows) != len(job.Result.Placed)+1 {
		t.Errorf("expected %d placement rows, got %d", len(job.Result.Placed)+1, len(rows))
	}
	if rows[1][0] != job.Result.Placed[0].UUID {
		t.Errorf("expected first UUID %s, got %s", job.Result.Placed[0].UUID, rows[1][0])
	}

	rows, err = f.GetRows(sheetsSheet)
	if err != nil {
		t.Fatalf("read sheets: %v", err)
	}
	if len(rows) != job.Result.TotalBins+1 {
		t.Errorf("expected %d sheet rows, got %d", job.Result.TotalBins+1, len(rows))
	}

	rows, err = f.GetRows(offcutsSheet)
	if err != nil {
		t.Fatalf("read offcuts: %v", err)
	}
	want := 1
	for _, st := range SheetStats(job) {
		want += len(st.Offcuts)
	}
	if len(rows) != want {
		t.Errorf("expected %d offcut rows, got %d", want, len(rows))
	}

	rows, err = f.GetRows(unplacedSheet)
	if err != nil {
		t.Fatalf("read unplaced: %v", err)
	}
	if len(rows) != 2 || rows[1][0] != "huge" || rows[1][1] != "1" {
		t.Errorf("expected the oversized part listed once, got %v", rows)
	}
}

func TestRound2(t *testing.T) {
	if got := round2(12.3456); got != 12.35 {
		t.Errorf("expected 12.35, got %v", got)
	}
}
