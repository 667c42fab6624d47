package sheetrange

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

var EncName = "utf-8"

func init() {
	EncName = os.Getenv("LANG")
	if i := strings.IndexByte(EncName, '.'); i >= 0 {
		EncName = strings.ToLower(EncName[i+1:])
	}
	if EncName == "" {
		EncName = "utf-8"
	}
}

func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, err)
	}
	return enc, err
}

var _ = (Writer)((*CSVWriter)(nil))

// CSVWriter writes one sheet as CSV, in the given charset.
//
// It does NOT allow more than one sheet.
type CSVWriter struct {
	cw    *csv.Writer
	tw    *transform.Writer
	sheet string
}

// NewCSVWriter returns a Writer encoding to encName (utf-8 if empty).
func NewCSVWriter(w io.Writer, encName string) (*CSVWriter, error) {
	enc, err := GetEncoding(encName)
	if err != nil {
		return nil, err
	}
	cw := &CSVWriter{}
	if enc != nil {
		cw.tw = transform.NewWriter(w, enc.NewEncoder())
		w = cw.tw
	}
	cw.cw = csv.NewWriter(w)
	return cw, nil
}

func (cw *CSVWriter) NewSheet(name string, cols []Column) (Sheet, error) {
	if cw.sheet != "" {
		return nil, fmt.Errorf("%q: csv holds only one sheet (already has %q)", name, cw.sheet)
	}
	cw.sheet = name
	header := make([]string, len(cols))
	for i, c := range cols {
		header[i] = c.Name
	}
	if err := cw.cw.Write(header); err != nil {
		return nil, err
	}
	return csvSheet{cw: cw.cw}, nil
}

func (cw *CSVWriter) Close() error {
	cw.cw.Flush()
	err := cw.cw.Error()
	if cw.tw != nil {
		err = errors.Join(err, cw.tw.Close())
	}
	return err
}

type csvSheet struct {
	cw *csv.Writer
}

func (cs csvSheet) Close() error { return nil }
func (cs csvSheet) AppendRow(values ...any) error {
	rec := make([]string, len(values))
	for i, v := range values {
		rec[i] = cellString(v)
	}
	return cs.cw.Write(rec)
}
