package xls

import (
	"bytes"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	fh, err := os.Open("testdata/sample.xls")
	require.NoError(t, err)
	defer fh.Close()
	wb, err := Reader{}.Read(fh)
	require.NoError(t, err)
	require.Len(t, wb.Sheets, 2)

	jan := wb.Sheets[0]
	assert.Equal(t, "一月", jan.Name)
	assert.Equal(t, []string{"id", "name", "amount", "qty", "date", "ok"}, jan.Header)
	require.Len(t, jan.Rows, 4)

	// text cells stay text, whatever they look like
	assert.Equal(t, []any{"110101199001011234", "张三", sheetrange.Number("1234.5"), sheetrange.Number("7")},
		jan.Rows[0][:4])
	assert.Equal(t, true, jan.Rows[0][5])
	assert.Equal(t, []any{"1.10", "李四", sheetrange.Number("99"), sheetrange.Number("3")},
		jan.Rows[1][:4])
	assert.Nil(t, jan.Rows[1][5])

	for i, want := range map[int]string{0: "2024-01-01", 1: "2024-02-01 12:00:00"} {
		d, ok := jan.Rows[i][4].(time.Time)
		require.True(t, ok, "row %d: %#v", i, jan.Rows[i][4])
		assert.Equal(t, want, sheetrange.FormatTime(d))
	}

	// row 4 has no records at all
	assert.Equal(t, []any{nil, nil, nil, nil, nil, nil}, jan.Rows[2])

	// LABEL, string and number formula results, RK float, boolean
	assert.Equal(t, []any{"007", "王五", sheetrange.Number("20.25"), sheetrange.Number("0.5"), nil, false},
		jan.Rows[3])

	feb := wb.Sheets[1]
	assert.Equal(t, "二月", feb.Name)
	assert.Equal(t, []string{"id", "name", "amount"}, feb.Header)
	assert.Equal(t, [][]any{{"X1", "孙七", sheetrange.Number("8")}}, feb.Rows)
}

func TestReadNotOLE(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty": nil,
		"text":  []byte(strings.Repeat("not an ole2 compound file ", 40)),
		"zip":   append([]byte("PK\x03\x04"), bytes.Repeat([]byte{0}, 600)...),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Reader{}.Read(bytes.NewReader(data))
			var me *sheetrange.MalformedWorkbookError
			require.ErrorAs(t, err, &me)
			assert.Equal(t, sheetrange.FormatXLS, me.Format)
			assert.Contains(t, err.Error(), "xls")
		})
	}
}

func TestWorkbookStreamTruncatedHeader(t *testing.T) {
	// a valid OLE2 signature followed by garbage
	b := append([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}, bytes.Repeat([]byte{0xFF}, 504)...)
	_, err := workbookStream(b)
	assert.Error(t, err)
}

func TestReadSheetOffset(t *testing.T) {
	g := globals{biff8: true}
	_, err := g.readSheet([]byte{0x09, 0x08, 0, 0}, 10)
	assert.Error(t, err)
}

func TestRecordsTruncated(t *testing.T) {
	// NUMBER record claiming 14 bytes, having 2
	err := records([]byte{0x03, 0x02, 14, 0, 1, 2}, 0, func(uint16, []byte) {})
	assert.Error(t, err)
}

func TestRK(t *testing.T) {
	for _, tc := range []struct {
		rk   uint32
		want float64
	}{
		{rk: 7<<2 | 2, want: 7},
		{rk: 1234<<2 | 3, want: 12.34},
		{rk: 0x3FE00000, want: 0.5},
		{rk: 0x3FF00001, want: 0.01},
		{rk: uint32(0xFFFFFFFC) | 2, want: -1},
	} {
		assert.InDelta(t, tc.want, rk(tc.rk), 1e-12, "%#x", tc.rk)
	}
}

func TestIsDateFormatXF(t *testing.T) {
	g := globals{
		formats:  map[uint16]string{164: `yyyy\-mm\-dd`, 165: `#,##0.00" 元"`},
		xfFormat: []uint16{0, 14, 164, 165},
	}
	assert.Equal(t, sheetrange.Number("45292"), g.number(45292, 0))
	assert.IsType(t, time.Time{}, g.number(45292, 1))
	assert.IsType(t, time.Time{}, g.number(45292, 2))
	assert.Equal(t, sheetrange.Number("1234.5"), g.number(1234.5, 3))
	assert.Equal(t, sheetrange.Number("1"), g.number(1, 99))
}
