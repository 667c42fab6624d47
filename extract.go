// Copyright 2020, Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetrange

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	// CategoryColumn holds the sheet name of each extracted row.
	CategoryColumn = "category"
	// SummarySheet is the name of the single output sheet.
	SummarySheet = "汇总"
	// ContentType is the MIME type of the produced file.
	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	DefaultStartRow = 17
	DefaultEndRow   = 22
)

// Params are the user supplied extraction settings.
//
// StartRow and EndRow are natural (1-based, inclusive) row numbers,
// row 1 being the header.
type Params struct {
	StartRow, EndRow int
	// MergeCategories collapses runs of equal category cells.
	MergeCategories bool
	// Strict skips sheets which do not reach EndRow instead of clamping.
	Strict bool
}

// DefaultParams returns rows 17-22 with merging.
func DefaultParams() Params {
	return Params{StartRow: DefaultStartRow, EndRow: DefaultEndRow, MergeCategories: true}
}

// Validate returns a *RangeError for unusable bounds.
func (p Params) Validate() error {
	if p.StartRow < 1 || p.EndRow < p.StartRow {
		return &RangeError{StartRow: p.StartRow, EndRow: p.EndRow}
	}
	return nil
}

// RowRange returns the [lo,hi) slice bounds into the header-less data rows
// of a sheet having n data rows.
//
// The header is never selected, even when start < 2.
// ok is false when the sheet contributes no rows.
func RowRange(start, end, n int, strict bool) (lo, hi int, ok bool) {
	lo = max(start, 2) - 2
	hi = end - 1
	if strict && hi > n {
		return 0, 0, false
	}
	hi = min(hi, n)
	if lo >= n || hi <= lo {
		return 0, 0, false
	}
	return lo, hi, true
}

// Tag returns rows [lo,hi) of t with the category column in front,
// set to the sheet name. An existing category column is dropped.
func Tag(t Table, lo, hi int) Table {
	drop := -1
	for i, h := range t.Header {
		if h == CategoryColumn {
			drop = i
			break
		}
	}
	header := make([]string, 0, len(t.Header)+1)
	header = append(header, CategoryColumn)
	for i, h := range t.Header {
		if i != drop {
			header = append(header, h)
		}
	}
	rows := make([][]any, 0, hi-lo)
	for _, src := range t.Rows[lo:hi] {
		row := make([]any, 1, len(header))
		row[0] = t.Name
		for i, v := range src {
			if i != drop {
				row = append(row, v)
			}
		}
		for len(row) < len(header) {
			row = append(row, nil)
		}
		rows = append(rows, row)
	}
	return Table{Name: t.Name, Header: header, Rows: rows}
}

// Concat stacks the tagged parts in order.
//
// Columns are matched by name: the result has the union of the parts'
// headers in first-seen order, missing cells are nil.
func Concat(parts []Table) ResultTable {
	var res ResultTable
	index := make(map[string]int)
	for _, p := range parts {
		for _, h := range p.Header {
			if _, ok := index[h]; !ok {
				index[h] = len(res.Columns)
				res.Columns = append(res.Columns, h)
			}
		}
	}
	for _, p := range parts {
		pos := make([]int, len(p.Header))
		for i, h := range p.Header {
			pos[i] = index[h]
		}
		for _, src := range p.Rows {
			row := make([]any, len(res.Columns))
			for i, v := range src {
				row[pos[i]] = v
			}
			res.Rows = append(res.Rows, row)
		}
	}
	return res
}

// Extract applies the row range to every sheet of wb, tags and concatenates
// the contributions.
//
// Returns *NoDataError if no sheet has any row in the range.
func Extract(ctx context.Context, wb Workbook, p Params, logger *slog.Logger) (ResultTable, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parts := make([]Table, 0, len(wb.Sheets))
	for _, t := range wb.Sheets {
		if err := ctx.Err(); err != nil {
			return ResultTable{}, err
		}
		lo, hi, ok := RowRange(p.StartRow, p.EndRow, len(t.Rows), p.Strict)
		if !ok {
			logger.Debug("skip sheet", "sheet", t.Name, "rows", len(t.Rows))
			continue
		}
		logger.Debug("extract", "sheet", t.Name, "from", lo+2, "to", hi+1)
		parts = append(parts, Tag(t, lo, hi))
	}
	if len(parts) == 0 {
		return ResultTable{}, &NoDataError{StartRow: p.StartRow, EndRow: p.EndRow, Sheets: len(wb.Sheets)}
	}
	return Concat(parts), nil
}

// NewTable builds a Table from raw rows, the first being the header.
//
// Blank header cells are named "Unnamed: i", repeated names get a ".n"
// suffix (then ".n.m" if that is taken, too). Rows are padded (and the header extended) to the widest row.
// Trailing empty rows are dropped.
func NewTable(name string, raw [][]any) Table {
	t := Table{Name: name}
	for len(raw) != 0 && isEmptyRow(raw[len(raw)-1]) {
		raw = raw[:len(raw)-1]
	}
	if len(raw) == 0 {
		return t
	}
	width := 0
	for _, r := range raw {
		width = max(width, len(r))
	}
	counts := make(map[string]int, width)
	t.Header = make([]string, width)
	for i := range width {
		var h string
		if i < len(raw[0]) {
			h = cellString(raw[0][i])
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		// a suffixed name may itself be taken: suffix again until unused
		for n := counts[h]; n > 0; n = counts[h] {
			counts[h] = n + 1
			h += "." + strconv.Itoa(n)
		}
		counts[h] = 1
		t.Header[i] = h
	}
	t.Rows = make([][]any, 0, len(raw)-1)
	for _, r := range raw[1:] {
		row := make([]any, width)
		copy(row, r)
		t.Rows = append(t.Rows, row)
	}
	return t
}

// Text returns the cell value of a text cell: nil for blank, s otherwise.
func Text(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func cellString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case Number:
		return string(x)
	case time.Time:
		return FormatTime(x)
	default:
		return fmt.Sprint(x)
	}
}

func isEmptyRow(row []any) bool {
	for _, v := range row {
		if cellString(v) != "" {
			return false
		}
	}
	return true
}

// OutputName returns the download file name: name with ".xlsx" appended
// if missing, or "提取_<start>-<end>.xlsx" for an empty name.
func OutputName(name string, p Params) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Sprintf("提取_%d-%d.xlsx", p.StartRow, p.EndRow)
	}
	if !strings.HasSuffix(strings.ToLower(name), ".xlsx") {
		name += ".xlsx"
	}
	return name
}
