package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// WriteXLSX writes the lead and opportunity grids to a local XLSX
// snapshot, one sheet per grid, mirroring the spreadsheet layout.
func WriteXLSX(path string, leadGrid, oppGrid [][]string) error {
	f := xlsx.NewFile()

	for _, s := range []struct {
		name string
		grid [][]string
	}{
		{"Leads", leadGrid},
		{"Opportunities", oppGrid},
	} {
		sheet, err := f.AddSheet(s.name)
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %s", s.name)
		}
		for _, row := range s.grid {
			r := sheet.AddRow()
			for _, cell := range row {
				r.AddCell().Value = cell
			}
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save xlsx")
	}
	return nil
}
