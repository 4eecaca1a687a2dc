package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestWriteXLSX(t *testing.T) {
	t.Parallel()

	leadGrid := [][]string{
		{"Display Name", "Status"},
		{"Acme", "Qualified"},
	}
	oppGrid := [][]string{
		{"Lead Name", "Value"},
		{"Acme", "250000"},
	}

	path := filepath.Join(t.TempDir(), "leads.xlsx")
	require.NoError(t, WriteXLSX(path, leadGrid, oppGrid))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 2)
	assert.Equal(t, "Leads", f.Sheets[0].Name)
	assert.Equal(t, "Opportunities", f.Sheets[1].Name)
	assert.Equal(t, "Acme", f.Sheets[0].Rows[1].Cells[0].Value)
	assert.Equal(t, "250000", f.Sheets[1].Rows[1].Cells[1].Value)
}
