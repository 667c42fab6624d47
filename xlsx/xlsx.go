// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsx reads and writes Office Open XML workbooks with excelize.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/xuri/excelize/v2"
)

var (
	_ = (sheetrange.Writer)((*XLSXWriter)(nil))
	_ = (sheetrange.Merger)((*XLSXWriter)(nil))
)

type XLSXWriter struct {
	w      io.Writer
	xl     *excelize.File
	styles map[string]int
	sheets []string
	mu     sync.Mutex
}

type XLSXSheet struct {
	xl   *excelize.File
	Name string
	row  int
	mu   sync.Mutex
}

// NewWriter returns a new sheetrange.Writer.
//
// This writer allows concurrent writes to separate sheets.
//
// This writer collects everything in memory, so big sheets may impose problems.
func NewWriter(w io.Writer) *XLSXWriter {
	return &XLSXWriter{w: w, xl: excelize.NewFile()}
}

// Close writes the workbook to the underlying io.Writer.
func (xlw *XLSXWriter) Close() error {
	if xlw == nil {
		return nil
	}
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	xl, w := xlw.xl, xlw.w
	xlw.xl, xlw.w = nil, nil
	if xl == nil || w == nil {
		return nil
	}
	_, err := xl.WriteTo(w)
	return errors.Join(err, xl.Close())
}

func (xlw *XLSXWriter) NewSheet(name string, columns []sheetrange.Column) (sheetrange.Sheet, error) {
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	if xlw.xl == nil {
		return nil, errors.New("writer is closed")
	}
	xlw.sheets = append(xlw.sheets, name)
	if len(xlw.sheets) == 1 { // first
		if err := xlw.xl.SetSheetName("Sheet1", name); err != nil {
			return nil, fmt.Errorf("%q: %w", name, err)
		}
	} else if _, err := xlw.xl.NewSheet(name); err != nil {
		return nil, fmt.Errorf("%q: %w", name, err)
	}
	var hasHeader bool
	for i, c := range columns {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if s, err := xlw.getStyle(c.Column); err != nil {
			return nil, err
		} else if s != 0 {
			if err = xlw.xl.SetColStyle(name, col, s); err != nil {
				return nil, err
			}
		}
		if s, err := xlw.getStyle(c.Header); err != nil {
			return nil, err
		} else if s != 0 {
			if err = xlw.xl.SetCellStyle(name, col+"1", col+"1", s); err != nil {
				return nil, err
			}
		}
		if c.Name != "" {
			hasHeader = true
			if err = xlw.xl.SetCellStr(name, col+"1", c.Name); err != nil {
				return nil, err
			}
		}
	}
	xls := &XLSXSheet{xl: xlw.xl, Name: name}
	if hasHeader {
		xls.row++
	}
	return xls, nil
}

// getStyle returns the cached style ID, 0 for the default style.
func (xlw *XLSXWriter) getStyle(style sheetrange.Style) (int, error) {
	if !style.FontBold && !style.Center && style.Format == "" {
		return 0, nil
	}
	k := fmt.Sprintf("%t\t%t\t%s", style.FontBold, style.Center, style.Format)
	if s, ok := xlw.styles[k]; ok {
		return s, nil
	}
	var st excelize.Style
	if style.FontBold {
		st.Font = &excelize.Font{Bold: true}
	}
	if style.Center {
		st.Alignment = &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	}
	if style.Format != "" {
		st.CustomNumFmt = &style.Format
	}
	s, err := xlw.xl.NewStyle(&st)
	if err != nil {
		return 0, err
	}
	if xlw.styles == nil {
		xlw.styles = make(map[string]int)
	}
	xlw.styles[k] = s
	return s, nil
}

// MergeAndCenter merges every run of two or more equal cells of the
// 1-based column col, below the header, and centers the merged cells.
//
// Returns all the blocks found, merged or not.
func (xlw *XLSXWriter) MergeAndCenter(sheet string, col int) ([]sheetrange.MergeBlock, error) {
	xlw.mu.Lock()
	defer xlw.mu.Unlock()
	if xlw.xl == nil {
		return nil, errors.New("writer is closed")
	}
	colName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return nil, err
	}
	rows, err := xlw.xl.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}
	values := make([]any, 0, len(rows)-1)
	for _, row := range rows[1:] {
		var v any
		if col <= len(row) && row[col-1] != "" {
			v = row[col-1]
		}
		values = append(values, v)
	}
	blocks := sheetrange.MergeBlocks(values, 2)
	center, err := xlw.getStyle(sheetrange.Style{Center: true})
	if err != nil {
		return blocks, err
	}
	for _, b := range blocks {
		if b.Len() < 2 {
			continue
		}
		top, bottom := colName+strconv.Itoa(b.First), colName+strconv.Itoa(b.Last)
		if err := xlw.xl.MergeCell(sheet, top, bottom); err != nil {
			return blocks, fmt.Errorf("merge %s:%s: %w", top, bottom, err)
		}
		if err := xlw.xl.SetCellStyle(sheet, top, bottom, center); err != nil {
			return blocks, fmt.Errorf("center %s:%s: %w", top, bottom, err)
		}
	}
	return blocks, nil
}

// MaxRowCount is the number of maximum rows.
const MaxRowCount = 1_048_576

func (xls *XLSXSheet) Close() error { return nil }

// AppendRow writes the values into the next row.
// nil values leave the cell blank, sheetrange.Number is written as a number,
// time.Time as a date.
func (xls *XLSXSheet) AppendRow(values ...any) error {
	xls.mu.Lock()
	defer xls.mu.Unlock()
	if xls.row >= MaxRowCount {
		return sheetrange.ErrTooManyRows
	}
	xls.row++
	for i, v := range values {
		if v == nil {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(i+1, xls.row)
		if err != nil {
			return fmt.Errorf("%d/%d: %w", i, xls.row, err)
		}
		switch x := v.(type) {
		case string:
			if x == "" {
				continue
			}
			err = xls.xl.SetCellStr(xls.Name, axis, x)
		case sheetrange.Number:
			var f float64
			if f, err = strconv.ParseFloat(string(x), 64); err == nil {
				err = xls.xl.SetCellFloat(xls.Name, axis, f, -1, 64)
			} else {
				err = xls.xl.SetCellStr(xls.Name, axis, string(x))
			}
		case time.Time:
			if x.IsZero() {
				continue
			}
			// a number with a date format
			err = xls.xl.SetCellValue(xls.Name, axis, x)
		case fmt.Stringer:
			err = xls.xl.SetCellStr(xls.Name, axis, x.String())
		default:
			err = xls.xl.SetCellValue(xls.Name, axis, v)
		}
		if err != nil {
			return fmt.Errorf("%s[%s]: %w", xls.Name, axis, err)
		}
	}
	return nil
}
