// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xls reads legacy BIFF (Excel 97-2003) workbooks.
package xls

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/extrame/xls"
)

var _ = (sheetrange.Reader)(Reader{})

// ErrNoWorkbookStream is returned for OLE2 files without a BIFF workbook stream
// (e.g. a .doc renamed to .xls).
var ErrNoWorkbookStream = errors.New("no Workbook stream in the OLE2 container")

// Reader reads every sheet of an xls workbook, in workbook order.
type Reader struct {
	// Charset of BIFF5 strings, defaults to utf-8.
	Charset string
}

// Read parses r. Any parser error is returned as *sheetrange.MalformedWorkbookError.
//
// Cells keep their stored type: numbers are read as sheetrange.Number,
// date formatted numbers as time.Time, booleans as bool,
// text (even if it looks like a number) as string.
func (rd Reader) Read(r io.Reader) (sheetrange.Workbook, error) {
	var wb sheetrange.Workbook
	b, err := io.ReadAll(r)
	if err != nil {
		return wb, err
	}
	stream, err := workbookStream(b)
	if err != nil {
		return wb, &sheetrange.MalformedWorkbookError{Format: sheetrange.FormatXLS, Err: err}
	}
	if wb, err = rd.parse(b, stream); err != nil {
		return wb, &sheetrange.MalformedWorkbookError{Format: sheetrange.FormatXLS, Err: err}
	}
	return wb, nil
}

func (rd Reader) parse(b, stream []byte) (wb sheetrange.Workbook, err error) {
	// the BIFF parser panics on truncated records
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse: %v", r)
		}
	}()
	charset := rd.Charset
	if charset == "" {
		charset = "utf-8"
	}
	enc, err := sheetrange.GetEncoding(charset)
	if err != nil {
		return wb, err
	}
	g, err := readGlobals(stream, enc)
	if err != nil {
		return wb, err
	}
	book, err := xls.OpenReader(bytes.NewReader(b), charset)
	if err != nil {
		return wb, err
	}
	if book == nil {
		return wb, ErrNoWorkbookStream
	}
	if book.NumSheets() != len(g.sheets) {
		return wb, fmt.Errorf("%d sheets parsed, %d listed", book.NumSheets(), len(g.sheets))
	}
	for i := range book.NumSheets() {
		sh := book.GetSheet(i)
		if sh == nil {
			continue
		}
		sc, err := g.readSheet(stream, g.sheets[i])
		if err != nil {
			return wb, fmt.Errorf("sheet %q: %w", sh.Name, err)
		}
		wb.Sheets = append(wb.Sheets, sheetrange.NewTable(sh.Name, sc.rows(sh)))
	}
	return wb, nil
}

// rows returns the cells of sh: the typed ones from sc, the text of the others.
func (sc *sheetCells) rows(sh *xls.WorkSheet) [][]any {
	n := max(int(sh.MaxRow), sc.maxRow) + 1
	raw := make([][]any, n)
	for r := range n {
		row := rowAt(sh, r)
		width := sc.width[uint16(r)]
		if row != nil {
			width = max(width, row.LastCol())
		}
		if width == 0 {
			continue
		}
		cells := make([]any, width)
		for c := range width {
			if v, ok := sc.values[cellKey{uint16(r), uint16(c)}]; ok {
				cells[c] = v
			} else if row != nil {
				cells[c] = sheetrange.Text(row.Col(c))
			}
		}
		raw[r] = cells
	}
	return raw
}

// rowAt returns nil for a row without any record.
func rowAt(sh *xls.WorkSheet, r int) (row *xls.Row) {
	// WorkSheet.Row dereferences the missing row
	defer func() {
		if recover() != nil {
			row = nil
		}
	}()
	return sh.Row(r)
}
