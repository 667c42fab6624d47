// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package xls

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"unicode/utf16"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/richardlehane/mscfb"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
)

// BIFF record types.
const (
	recFormula    = 0x0006
	recEOF        = 0x000A
	recDateMode   = 0x0022
	recBoundSheet = 0x0085
	recMulRK      = 0x00BD
	recMulBlank   = 0x00BE
	recXF         = 0x00E0
	recLabelSST   = 0x00FD
	recBlank      = 0x0201
	recNumber     = 0x0203
	recLabel      = 0x0204
	recBoolErr    = 0x0205
	recString     = 0x0207
	recRK         = 0x027E
	recFormat     = 0x041E
	recBOF        = 0x0809
)

var le = binary.LittleEndian

// workbookStream returns the BIFF stream of the OLE2 container b.
func workbookStream(b []byte) (stream []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("container: %v", r)
		}
	}()
	doc, err := mscfb.New(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	for entry, err := doc.Next(); err == nil; entry, err = doc.Next() {
		switch entry.Name {
		case "Workbook", "Book":
			return io.ReadAll(entry)
		}
	}
	return nil, ErrNoWorkbookStream
}

// records calls fn with each record from off up to the first EOF record.
func records(stream []byte, off int, fn func(id uint16, data []byte)) error {
	for off+4 <= len(stream) {
		id, size := le.Uint16(stream[off:]), int(le.Uint16(stream[off+2:]))
		off += 4
		if off+size > len(stream) {
			return fmt.Errorf("record %#04x at %d: %w", id, off-4, io.ErrUnexpectedEOF)
		}
		if id == recEOF {
			return nil
		}
		fn(id, stream[off:off+size])
		off += size
	}
	return nil
}

// globals is what the text oriented parser does not expose about a
// workbook: the number formats, needed to tell dates from numbers.
type globals struct {
	enc      encoding.Encoding // of BIFF5 byte strings, nil for as-is
	biff8    bool
	date1904 bool
	formats  map[uint16]string // format code by format ID
	xfFormat []uint16          // format ID by XF index
	sheets   []int             // stream offset of each sheet, in workbook order
}

func readGlobals(stream []byte, enc encoding.Encoding) (*globals, error) {
	g := globals{enc: enc, formats: make(map[uint16]string)}
	err := records(stream, 0, func(id uint16, data []byte) {
		switch id {
		case recBOF:
			g.biff8 = len(data) >= 2 && le.Uint16(data) == 0x0600
		case recDateMode:
			g.date1904 = len(data) >= 2 && le.Uint16(data) == 1
		case recBoundSheet:
			if len(data) >= 4 {
				g.sheets = append(g.sheets, int(le.Uint32(data)))
			}
		case recXF:
			if len(data) >= 4 {
				g.xfFormat = append(g.xfFormat, le.Uint16(data[2:]))
			}
		case recFormat:
			if len(data) >= 3 {
				cchSize := 1
				if g.biff8 {
					cchSize = 2
				}
				g.formats[le.Uint16(data)] = g.text(data[2:], cchSize)
			}
		}
	})
	return &g, err
}

// text decodes a string with a cchSize long character count:
// an XLUnicodeString in BIFF8, a byte string in BIFF5.
func (g *globals) text(b []byte, cchSize int) string {
	if len(b) < cchSize {
		return ""
	}
	n := int(b[0])
	if cchSize == 2 {
		n = int(le.Uint16(b))
	}
	b = b[cchSize:]
	if !g.biff8 {
		b = b[:min(n, len(b))]
		if g.enc != nil {
			if d, err := g.enc.NewDecoder().Bytes(b); err == nil {
				return string(d)
			}
		}
		return string(b)
	}
	if len(b) == 0 {
		return ""
	}
	flags := b[0]
	b = b[1:]
	if flags&0x08 != 0 { // rich text runs
		b = b[min(2, len(b)):]
	}
	if flags&0x04 != 0 { // phonetic
		b = b[min(4, len(b)):]
	}
	if flags&0x01 == 0 {
		b = b[:min(n, len(b))]
		u := make([]uint16, len(b))
		for i, c := range b {
			u[i] = uint16(c)
		}
		return string(utf16.Decode(u))
	}
	u := make([]uint16, min(n, len(b)/2))
	for i := range u {
		u[i] = le.Uint16(b[2*i:])
	}
	return string(utf16.Decode(u))
}

// number returns f as time.Time if the XF has a date format,
// as sheetrange.Number otherwise.
func (g *globals) number(f float64, xf uint16) any {
	if int(xf) < len(g.xfFormat) {
		id := g.xfFormat[xf]
		if sheetrange.IsDateFormat(int(id), g.formats[id]) {
			if t, err := excelize.ExcelDateToTime(f, g.date1904); err == nil {
				return t
			}
		}
	}
	return sheetrange.Number(strconv.FormatFloat(f, 'f', -1, 64))
}

type cellKey struct{ row, col uint16 }

// sheetCells holds the cells whose value is stored as something else than
// a shared or inline string, and the extent of every row.
type sheetCells struct {
	values map[cellKey]any
	width  map[uint16]int
	maxRow int
}

func (sc *sheetCells) touch(row, col uint16) {
	sc.width[row] = max(sc.width[row], int(col)+1)
	sc.maxRow = max(sc.maxRow, int(row))
}

func (sc *sheetCells) set(row, col uint16, v any) {
	sc.touch(row, col)
	sc.values[cellKey{row, col}] = v
}

var errorCodes = map[byte]string{
	0x00: "#NULL!", 0x07: "#DIV/0!", 0x0F: "#VALUE!", 0x17: "#REF!",
	0x1D: "#NAME?", 0x24: "#NUM!", 0x2A: "#N/A",
}

// readSheet scans the sheet substream starting at off.
func (g *globals) readSheet(stream []byte, off int) (*sheetCells, error) {
	if off < 0 || off >= len(stream) {
		return nil, fmt.Errorf("sheet offset %d out of the %d long stream", off, len(stream))
	}
	sc := sheetCells{values: make(map[cellKey]any), width: make(map[uint16]int)}
	var pending *cellKey // formula waiting for its STRING record
	err := records(stream, off, func(id uint16, data []byte) {
		if id == recString {
			if pending != nil {
				sc.values[*pending] = sheetrange.Text(g.text(data, 2))
				pending = nil
			}
			return
		}
		if len(data) < 4 {
			return
		}
		row, col := le.Uint16(data), le.Uint16(data[2:])
		switch id {
		case recNumber:
			if len(data) >= 14 {
				sc.set(row, col, g.number(math.Float64frombits(le.Uint64(data[6:])), le.Uint16(data[4:])))
			}
		case recRK:
			if len(data) >= 10 {
				sc.set(row, col, g.number(rk(le.Uint32(data[6:])), le.Uint16(data[4:])))
			}
		case recMulRK:
			for i := range (len(data) - 6) / 6 {
				p := data[4+6*i:]
				sc.set(row, col+uint16(i), g.number(rk(le.Uint32(p[2:])), le.Uint16(p)))
			}
		case recFormula:
			if len(data) < 14 {
				return
			}
			res := data[6:14]
			if res[6] != 0xFF || res[7] != 0xFF {
				sc.set(row, col, g.number(math.Float64frombits(le.Uint64(res)), le.Uint16(data[4:])))
				return
			}
			sc.set(row, col, nil)
			switch res[0] {
			case 0:
				pending = &cellKey{row, col}
			case 1:
				sc.set(row, col, res[2] != 0)
			case 2:
				sc.set(row, col, sheetrange.Text(errorCodes[res[2]]))
			}
		case recBoolErr:
			if len(data) >= 8 {
				if data[7] == 0 {
					sc.set(row, col, data[6] != 0)
				} else {
					sc.set(row, col, sheetrange.Text(errorCodes[data[6]]))
				}
			}
		case recMulBlank:
			if len(data) >= 6 {
				sc.touch(row, le.Uint16(data[len(data)-2:]))
			}
		case recLabelSST, recLabel, recBlank:
			sc.touch(row, col)
		}
	})
	return &sc, err
}

// rk decodes an RK number.
func rk(v uint32) float64 {
	var f float64
	if v&0x02 != 0 {
		f = float64(int32(v) >> 2)
	} else {
		f = math.Float64frombits(uint64(v&0xFFFFFFFC) << 32)
	}
	if v&0x01 != 0 {
		f /= 100
	}
	return f
}
