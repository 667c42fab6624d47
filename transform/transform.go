// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package transform runs one extraction request: bytes in, xlsx bytes out.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/UNO-SOFT/sheetrange/xls"
	"github.com/UNO-SOFT/sheetrange/xlsx"
	"github.com/gabriel-vasile/mimetype"
)

// Request holds the uploaded file and the settings of one call.
type Request struct {
	FileName string
	Data     []byte
	Params   sheetrange.Params
	// OutputName is the requested download name, may be empty.
	OutputName string
}

// Output is the produced workbook.
type Output struct {
	Name        string
	ContentType string
	Data        []byte
	Rows        int
	Blocks      []sheetrange.MergeBlock
}

// Transformer is safe for concurrent use: every call is independent.
type Transformer struct {
	Logger *slog.Logger
}

// New returns a Transformer logging to logger (slog.Default() if nil).
func New(logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{Logger: logger}
}

// Read detects the format of the file and parses it.
func (t *Transformer) Read(name string, data []byte) (sheetrange.Workbook, error) {
	format, err := sheetrange.FormatOf(name)
	if err != nil {
		return sheetrange.Workbook{}, err
	}
	mt := mimetype.Detect(data)
	t.Logger.Debug("read", "file", name, "format", format, "mime", mt.String(), "size", len(data))
	if err := checkMIME(format, mt); err != nil {
		return sheetrange.Workbook{}, err
	}
	var rd sheetrange.Reader = xlsx.Reader{}
	if format == sheetrange.FormatXLS {
		rd = xls.Reader{}
	}
	return rd.Read(bytes.NewReader(data))
}

// Table parses the file and extracts the rows, without serializing them.
func (t *Transformer) Table(ctx context.Context, req Request) (sheetrange.ResultTable, error) {
	if err := req.Params.Validate(); err != nil {
		return sheetrange.ResultTable{}, err
	}
	wb, err := t.Read(req.FileName, req.Data)
	if err != nil {
		return sheetrange.ResultTable{}, err
	}
	return sheetrange.Extract(ctx, wb, req.Params, t.Logger)
}

// Transform parses the file, extracts the rows, writes them to the summary
// sheet and merges the category cells if requested.
//
// Nothing is returned on error, never a partial result.
func (t *Transformer) Transform(ctx context.Context, req Request) (*Output, error) {
	res, err := t.Table(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	w := xlsx.NewWriter(&buf)
	if err := res.WriteSheet(w, sheetrange.SummarySheet); err != nil {
		w.Close()
		return nil, fmt.Errorf("write %q: %w", sheetrange.SummarySheet, err)
	}
	out := Output{
		Name:        sheetrange.OutputName(req.OutputName, req.Params),
		ContentType: sheetrange.ContentType,
		Rows:        len(res.Rows),
	}
	if req.Params.MergeCategories {
		if out.Blocks, err = w.MergeAndCenter(sheetrange.SummarySheet, 1); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	out.Data = buf.Bytes()
	t.Logger.Info("transformed", "file", req.FileName, "rows", out.Rows, "blocks", len(out.Blocks), "size", len(out.Data))
	return &out, nil
}

// checkMIME rejects content which contradicts the extension.
func checkMIME(format sheetrange.Format, mt *mimetype.MIME) error {
	var want string
	switch format {
	case sheetrange.FormatXLSX:
		want = "application/zip"
	case sheetrange.FormatXLS:
		want = "application/x-ole-storage"
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is(want) {
			return nil
		}
	}
	return &sheetrange.MalformedWorkbookError{
		Format: format,
		Err:    fmt.Errorf("content is %s, not %s", mt.String(), want),
	}
}
