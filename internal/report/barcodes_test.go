package report

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/dosing-console/internal/domain/formulas"
)

func TestFormulaBarcodesSkipsRowsWithoutBarcode(t *testing.T) {
	buf, err := FormulaBarcodes([]formulas.Formula{
		{Name: "Vitamin mix", Code: "VM-1", BarcodeID: "BC0001"},
		{Name: "No barcode", Code: "NB-1"},
		{Name: "Mineral mix", Code: "MM-2", BarcodeID: "BC0002"},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)

	require.Len(t, rows, 3) // header + two barcode rows
	assert.Equal(t, []string{"Name", "Code", "Barcode ID", "Scannable Barcode"}, rows[0])
	assert.Equal(t, "Vitamin mix", rows[1][0])
	assert.Equal(t, "BC0002", rows[2][2])
}

func TestFormulaBarcodesEmptyList(t *testing.T) {
	buf, err := FormulaBarcodes(nil)
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())
}
