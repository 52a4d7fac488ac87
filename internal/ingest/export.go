package ingest

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"gradlist/internal"
	"gradlist/internal/namelist"
)

func exportRows(tracks map[string]internal.DegreeEntry) []internal.NamelistExportRow {
	degrees := make([]string, 0, len(tracks))
	for degree := range tracks {
		degrees = append(degrees, degree)
	}
	sort.Strings(degrees)

	out := make([]internal.NamelistExportRow, 0, len(degrees))
	for _, degree := range degrees {
		entry := tracks[degree]
		out = append(out, internal.NamelistExportRow{
			Degree:    degree,
			NameCount: len(namelist.SplitNames(entry.Names)),
			HasNames:  entry.HasNames,
			Names:     entry.Names,
		})
	}
	return out
}

func writeExportXLSX(rows []internal.NamelistExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{"degree", "name_count", "has_names", "names"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.Degree)
		set(2, row.NameCount)
		set(3, row.HasNames)
		set(4, row.Names)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
