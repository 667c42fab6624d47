package web

import (
	"bytes"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func testWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"id", "value"}))
	for r := 2; r <= 6; r++ {
		cell, err := excelize.CoordinatesToCellName(1, r)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &[]any{"x", r}))
	}
	var buf bytes.Buffer
	_, err := f.WriteTo(&buf)
	require.NoError(t, err)
	return buf.Bytes()
}

func upload(t *testing.T, h http.Handler, fileName string, data []byte, fields map[string][]string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestForm(t *testing.T) {
	h := (&Server{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, `name="start_row" min="2" value="17"`)
	assert.Contains(t, body, `name="end_row" min="2" value="22"`)
	assert.Contains(t, body, ` checked>`)
}

func TestExtract(t *testing.T) {
	h := (&Server{}).Handler()
	rec := upload(t, h, "data.xlsx", testWorkbook(t), map[string][]string{
		"start_row":        {"2"},
		"end_row":          {"4"},
		"merge_categories": {"false", "true"},
		"file_name":        {"汇总结果"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, sheetrange.ContentType, rec.Header().Get("Content-Type"))
	_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	assert.Equal(t, "汇总结果.xlsx", params["filename"])

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	cells, err := f.GetMergeCells(sheetrange.SummarySheet)
	require.NoError(t, err)
	require.Len(t, cells, 1)
	assert.Equal(t, "A2", cells[0].GetStartAxis())
	assert.Equal(t, "A4", cells[0].GetEndAxis())
}

func TestExtractMergeCategories(t *testing.T) {
	h := (&Server{}).Handler()
	for _, tt := range []struct {
		name   string
		values []string
		merged bool
	}{
		{"unchecked", []string{"false"}, false},
		{"checked", []string{"false", "true"}, true},
		{"last value wins", []string{"true", "false"}, false},
		{"browser default", []string{"false", "on"}, true},
		{"missing", nil, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			fields := map[string][]string{"start_row": {"2"}, "end_row": {"4"}}
			if tt.values != nil {
				fields["merge_categories"] = tt.values
			}
			rec := upload(t, h, "data.xlsx", testWorkbook(t), fields)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
			require.NoError(t, err)
			defer f.Close()
			cells, err := f.GetMergeCells(sheetrange.SummarySheet)
			require.NoError(t, err)
			if !tt.merged {
				assert.Empty(t, cells)
				return
			}
			require.Len(t, cells, 1)
			assert.Equal(t, "A2", cells[0].GetStartAxis())
			assert.Equal(t, "A4", cells[0].GetEndAxis())
		})
	}
}

func TestExtractTooLarge(t *testing.T) {
	h := (&Server{MaxUpload: 1 << 10}).Handler()
	rec := upload(t, h, "data.xlsx", bytes.Repeat([]byte("x"), 8<<10), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "文件过大")
}

func TestExtractNotMultipart(t *testing.T) {
	h := (&Server{}).Handler()
	req := httptest.NewRequest(http.MethodPost, "/extract", strings.NewReader("start_row=2"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "表单无效")
	assert.NotContains(t, rec.Body.String(), "文件过大")
}

func TestExtractErrors(t *testing.T) {
	h := (&Server{}).Handler()
	tests := []struct {
		name     string
		file     string
		data     []byte
		fields   map[string][]string
		wantCode int
		wantText string
	}{
		{"no file", "", nil, nil, http.StatusBadRequest, "请先上传"},
		{"unsupported", "data.csv", []byte("a,b"), nil, http.StatusUnsupportedMediaType, "unsupported file format"},
		{"malformed", "data.xlsx", []byte("garbage"), nil, http.StatusBadRequest, "malformed xlsx workbook"},
		{"no data", "data.xlsx", testWorkbook(t), nil, http.StatusUnprocessableEntity, "check the row range"},
		{"bad range", "data.xlsx", testWorkbook(t), map[string][]string{"start_row": {"5"}, "end_row": {"3"}},
			http.StatusBadRequest, "must not be less than"},
		{"start not a number", "data.xlsx", testWorkbook(t), map[string][]string{"start_row": {"abc"}},
			http.StatusBadRequest, "is not a number"},
		{"end not a number", "data.xlsx", testWorkbook(t), map[string][]string{"start_row": {"2"}, "end_row": {"4.5"}},
			http.StatusBadRequest, "is not a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := upload(t, h, tt.file, tt.data, tt.fields)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			assert.Contains(t, rec.Body.String(), tt.wantText)
			assert.Contains(t, rec.Body.String(), `<form`)
		})
	}
}

func TestHealth(t *testing.T) {
	h := (&Server{}).Handler()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"status":"healthy"`))
}
