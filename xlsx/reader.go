// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xlsx

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/xuri/excelize/v2"
)

var _ = (sheetrange.Reader)(Reader{})

// Reader reads every sheet of an xlsx workbook, in workbook order.
//
// Cells keep their stored type: numbers are read as sheetrange.Number,
// date formatted numbers as time.Time, booleans as bool,
// text (even if it looks like a number) as string.
type Reader struct{}

// Read parses r. Any excelize error is returned as *sheetrange.MalformedWorkbookError.
func (Reader) Read(r io.Reader) (sheetrange.Workbook, error) {
	var wb sheetrange.Workbook
	f, err := excelize.OpenReader(r)
	if err != nil {
		return wb, &sheetrange.MalformedWorkbookError{Format: sheetrange.FormatXLSX, Err: err}
	}
	defer f.Close()
	sr := sheetReader{f: f, dates: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		sr.date1904 = *props.Date1904
	}
	for _, name := range f.GetSheetList() {
		raw, err := sr.read(name)
		if err != nil {
			return wb, &sheetrange.MalformedWorkbookError{
				Format: sheetrange.FormatXLSX,
				Err:    fmt.Errorf("sheet %q: %w", name, err),
			}
		}
		wb.Sheets = append(wb.Sheets, sheetrange.NewTable(name, raw))
	}
	return wb, nil
}

type sheetReader struct {
	f        *excelize.File
	dates    map[int]bool // style ID: has a date number format
	date1904 bool
}

func (sr sheetReader) read(sheet string) ([][]any, error) {
	shown, err := sr.f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	stored, err := sr.f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}
	raw := make([][]any, len(shown))
	for i, row := range shown {
		raw[i] = make([]any, len(row))
		for j, s := range row {
			var v string
			if i < len(stored) && j < len(stored[i]) {
				v = stored[i][j]
			}
			if s == "" && v == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			if raw[i][j], err = sr.cell(sheet, axis, s, v); err != nil {
				return nil, fmt.Errorf("%s: %w", axis, err)
			}
		}
	}
	return raw, nil
}

// cell returns the value of the cell, shown being its formatted text,
// stored its raw value.
func (sr sheetReader) cell(sheet, axis, shown, stored string) (any, error) {
	typ, err := sr.f.GetCellType(sheet, axis)
	if err != nil {
		return nil, err
	}
	switch typ {
	case excelize.CellTypeBool:
		return stored == "1" || strings.EqualFold(stored, "true"), nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	default: // shared, inline and formula strings, errors, ISO dates
		return sheetrange.Text(shown), nil
	}
	n, err := strconv.ParseFloat(stored, 64)
	if err != nil {
		return sheetrange.Text(shown), nil
	}
	style, err := sr.f.GetCellStyle(sheet, axis)
	if err != nil {
		return nil, err
	}
	isDate, ok := sr.dates[style]
	if !ok {
		st, err := sr.f.GetStyle(style)
		if err != nil {
			return nil, err
		}
		var code string
		if st.CustomNumFmt != nil {
			code = *st.CustomNumFmt
		}
		isDate = sheetrange.IsDateFormat(st.NumFmt, code)
		sr.dates[style] = isDate
	}
	if isDate {
		if t, err := excelize.ExcelDateToTime(n, sr.date1904); err == nil {
			return t, nil
		}
		return sheetrange.Text(shown), nil
	}
	return sheetrange.Number(stored), nil
}
