// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package sheetrange extracts a natural row range from every sheet of a
// workbook, tags the rows with their sheet name and concatenates them into
// a single summary sheet.
package sheetrange

import (
	"errors"
	"io"
)

// Writer writes the spreadsheet consisting of the sheets created
// with NewSheet. The write finishes when Close is called.
//
// The writer SHOULD allow writing to separate sheets concurrently,
// and document if it does not provide this functionality.
type Writer interface {
	io.Closer
	NewSheet(name string, cols []Column) (Sheet, error)
}

// Sheet should be Closed when finished.
type Sheet interface {
	io.Closer
	AppendRow(values ...any) error
}

// Merger is implemented by Writers which can collapse runs of equal
// values in a column into merged, centered cells.
type Merger interface {
	MergeAndCenter(sheet string, col int) ([]MergeBlock, error)
}

// Style is a style for a column/row/cell.
type Style struct {
	// Format is the number format
	Format string
	// FontBold is true if the font is bold
	FontBold bool
	// Center aligns horizontally and vertically.
	Center bool
}

// Column contains the Name of the column and header's style and column's style.
type Column struct {
	Name           string
	Header, Column Style
}

var ErrTooManyRows = errors.New("too many rows")

// Number is a string that contains a number.
type Number string

// Reader parses a workbook into its sheets, in workbook order.
type Reader interface {
	Read(r io.Reader) (Workbook, error)
}

// Workbook is the ordered list of sheets of a parsed file.
type Workbook struct {
	Sheets []Table
}

// Table is one sheet: its name, the header row and the data rows below it.
//
// Rows are padded to len(Header); a cell is nil, a string or a Number.
type Table struct {
	Name   string
	Header []string
	Rows   [][]any
}

// ResultTable is the concatenation of all extracted rows.
// Columns[0] is always CategoryColumn.
type ResultTable struct {
	Columns []string
	Rows    [][]any
}

// WriteSheet writes t as sheet into w, with a bold header.
func (t ResultTable) WriteSheet(w Writer, sheet string) error {
	cols := make([]Column, len(t.Columns))
	for i, c := range t.Columns {
		cols[i].Name = c
		cols[i].Header.FontBold = true
	}
	sh, err := w.NewSheet(sheet, cols)
	if err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := sh.AppendRow(row...); err != nil {
			sh.Close()
			return err
		}
	}
	return sh.Close()
}
