// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetrange

import (
	"fmt"
	"strings"
)

// Format is an accepted input container.
type Format string

const (
	// FormatXLSX is the Office Open XML workbook (zip container).
	FormatXLSX Format = "xlsx"
	// FormatXLS is the legacy BIFF workbook (OLE2 container).
	FormatXLS Format = "xls"
)

// UnsupportedFormatError is returned for files that are neither .xls nor .xlsx.
type UnsupportedFormatError struct {
	Name string
	Ext  string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return fmt.Sprintf("%q: unsupported file format, only .xls or .xlsx files are accepted", e.Name)
	}
	return fmt.Sprintf("%q: unsupported file format %q, only .xls or .xlsx files are accepted", e.Name, e.Ext)
}

// NoDataError is returned when no sheet has any data row inside the range.
type NoDataError struct {
	StartRow, EndRow int
	Sheets           int
}

func (e *NoDataError) Error() string {
	return fmt.Sprintf("no data in rows %d-%d of %d sheet(s): check the row range or the source workbook",
		e.StartRow, e.EndRow, e.Sheets)
}

// MalformedWorkbookError wraps the parser's error for a file which
// cannot be read as the format its name claims.
type MalformedWorkbookError struct {
	Format Format
	Err    error
}

func (e *MalformedWorkbookError) Error() string {
	return fmt.Sprintf("malformed %s workbook: %v", e.Format, e.Err)
}

func (e *MalformedWorkbookError) Unwrap() error { return e.Err }

// RangeError reports unusable row bounds.
type RangeError struct {
	StartRow, EndRow int
	// Invalid is the given text if it is not a row number at all.
	Invalid string
}

func (e *RangeError) Error() string {
	if e.Invalid != "" {
		return fmt.Sprintf("row %q is not a number", e.Invalid)
	}
	if e.StartRow < 1 {
		return fmt.Sprintf("start row %d: rows are numbered from 1", e.StartRow)
	}
	return fmt.Sprintf("end row %d must not be less than start row %d", e.EndRow, e.StartRow)
}

// FormatOf returns the Format for the file name's extension.
func FormatOf(name string) (Format, error) {
	ext := ""
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext = strings.ToLower(name[i+1:])
	}
	switch Format(ext) {
	case FormatXLSX, FormatXLS:
		return Format(ext), nil
	}
	return "", &UnsupportedFormatError{Name: name, Ext: ext}
}
