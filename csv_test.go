package sheetrange

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult() ResultTable {
	return ResultTable{
		Columns: []string{CategoryColumn, "名称", "qty"},
		Rows: [][]any{
			{"一月", "苹果", Number("3")},
			{"一月", nil, Number("1.5")},
		},
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	cw, err := NewCSVWriter(&buf, "utf-8")
	require.NoError(t, err)
	require.NoError(t, testResult().WriteSheet(cw, SummarySheet))
	require.NoError(t, cw.Close())
	assert.Equal(t, "category,名称,qty\n一月,苹果,3\n一月,,1.5\n", buf.String())

	_, err = cw.NewSheet("second", nil)
	assert.Error(t, err)
}

func TestCSVWriterCharset(t *testing.T) {
	var buf bytes.Buffer
	cw, err := NewCSVWriter(&buf, "gbk")
	require.NoError(t, err)
	require.NoError(t, testResult().WriteSheet(cw, SummarySheet))
	require.NoError(t, cw.Close())

	enc, err := GetEncoding("gbk")
	require.NoError(t, err)
	require.NotNil(t, enc)
	b, err := enc.NewDecoder().Bytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "category,名称,qty\n一月,苹果,3\n一月,,1.5\n", string(b))
	assert.NotEqual(t, string(b), buf.String())
}

func TestGetEncoding(t *testing.T) {
	enc, err := GetEncoding("UTF-8")
	assert.NoError(t, err)
	assert.Nil(t, enc)

	_, err = GetEncoding("no-such-charset")
	assert.Error(t, err)
}
