// Package report builds the spreadsheet exports the console serves for
// download: formulas and production orders with scannable Code128 barcodes.
package report

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/dosing-console/internal/domain/formulas"
	"github.com/Spok95/dosing-console/internal/domain/production"
)

const (
	barcodeWidth  = 200
	barcodeHeight = 60
)

// FormulaBarcodes renders one row per formula that has a barcode id, with
// the scannable image embedded next to it.
func FormulaBarcodes(list []formulas.Formula) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := []interface{}{"Name", "Code", "Barcode ID", "Scannable Barcode"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	row := 2
	for _, item := range list {
		if item.BarcodeID == "" {
			continue
		}
		values := []interface{}{item.Name, item.Code, item.BarcodeID}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
		// Text columns stay even when the image fails to render.
		_ = embedBarcode(f, sheet, fmt.Sprintf("D%d", row), item.BarcodeID)
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// OrderBarcodes renders one row per production order that has a barcode id.
func OrderBarcodes(list []production.Order) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := []interface{}{"Order Number", "Barcode ID", "Scannable Barcode"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, err
	}

	row := 2
	for _, item := range list {
		if item.BarcodeID == "" {
			continue
		}
		values := []interface{}{item.OrderNumber, item.BarcodeID}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, err
		}
		_ = embedBarcode(f, sheet, fmt.Sprintf("C%d", row), item.BarcodeID)
		row++
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func embedBarcode(f *excelize.File, sheet, cell, id string) error {
	code, err := code128.Encode(id)
	if err != nil {
		return err
	}
	scaled, err := barcode.Scale(code, barcodeWidth, barcodeHeight)
	if err != nil {
		return err
	}
	img := &bytes.Buffer{}
	if err := png.Encode(img, scaled); err != nil {
		return err
	}
	return f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
		Extension: ".png",
		File:      img.Bytes(),
	})
}
