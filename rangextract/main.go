// Copyright 2021 Tamas Gulacsi. All rights reserved.

// Command rangextract extracts a row range from every sheet of a workbook
// into a single summary sheet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/UNO-SOFT/sheetrange/transform"
	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	def := sheetrange.DefaultParams()
	fs := flag.NewFlagSet("rangextract", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	flagStart := fs.Int("start", def.StartRow, "first row to extract (natural row number, row 1 is the header)")
	flagEnd := fs.Int("end", def.EndRow, "last row to extract (inclusive)")
	flagMerge := fs.Bool("merge", def.MergeCategories, "merge adjacent equal category cells and center them")
	flagStrict := fs.Bool("strict", def.Strict, "skip sheets not reaching the end row instead of clamping")
	flagOut := fs.String("o", "", "output file name (default 提取_<start>-<end>.xlsx); .csv writes CSV, - writes to stdout")
	flagEnc := fs.String("charset", sheetrange.EncName, "csv output charset name")

	app := ffcli.Command{Name: "rangextract", FlagSet: fs,
		ShortUsage: "rangextract [flags] input.xlsx|input.xls",
		Options:    []ff.Option{ff.WithEnvVarPrefix("RANGEXTRACT")},
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return flag.ErrHelp
			}
			inp := args[0]
			b, err := os.ReadFile(inp)
			if err != nil {
				return err
			}
			req := transform.Request{
				FileName: filepath.Base(inp),
				Data:     b,
				Params: sheetrange.Params{
					StartRow: *flagStart, EndRow: *flagEnd,
					MergeCategories: *flagMerge, Strict: *flagStrict,
				},
				OutputName: *flagOut,
			}
			tr := transform.New(logger)

			if strings.HasSuffix(strings.ToLower(*flagOut), ".csv") {
				res, err := tr.Table(ctx, req)
				if err != nil {
					return err
				}
				return writeFile(*flagOut, func(w io.Writer) error {
					cw, err := sheetrange.NewCSVWriter(w, *flagEnc)
					if err != nil {
						return err
					}
					if err := res.WriteSheet(cw, sheetrange.SummarySheet); err != nil {
						cw.Close()
						return err
					}
					return cw.Close()
				})
			}

			out, err := tr.Transform(ctx, req)
			if err != nil {
				return err
			}
			fn := out.Name
			if *flagOut == "-" {
				fn = "-"
			}
			logger.Info("write", "file", fn, "rows", out.Rows)
			return writeFile(fn, func(w io.Writer) error {
				_, err := w.Write(out.Data)
				return err
			})
		},
	}

	if err := app.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := app.Run(ctx); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(os.Stderr, app.ShortUsage)
			fs.PrintDefaults()
		}
		return err
	}
	return nil
}

func writeFile(fn string, write func(io.Writer) error) error {
	if fn == "" || fn == "-" {
		return write(os.Stdout)
	}
	fh, err := os.Create(fn)
	if err != nil {
		return err
	}
	if err := write(fh); err != nil {
		fh.Close()
		os.Remove(fn)
		return err
	}
	return fh.Close()
}
