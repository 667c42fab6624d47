// Copyright 2020, 2023 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package web serves the upload form and returns the extracted workbook.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/UNO-SOFT/sheetrange"
	"github.com/UNO-SOFT/sheetrange/transform"
)

// DefaultMaxUpload is the default upload size limit.
const DefaultMaxUpload = 32 << 20

// Server holds nothing between requests but its settings.
type Server struct {
	Transformer *transform.Transformer
	Logger      *slog.Logger
	MaxUpload   int64
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Transformer == nil {
		s.Transformer = transform.New(s.Logger)
	}
	if s.MaxUpload <= 0 {
		s.MaxUpload = DefaultMaxUpload
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/", s.handleForm)
	r.Post("/extract", s.handleExtract)
	r.Get("/healthz", s.handleHealth)
	return gzhttp.GzipHandler(r)
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	p := sheetrange.DefaultParams()
	s.renderForm(w, http.StatusOK, FormData{StartRow: p.StartRow, EndRow: p.EndRow, Merge: p.MergeCategories})
}

func (s *Server) renderForm(w http.ResponseWriter, code int, data FormData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(code)
	WriteFormPage(w, data)
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	logger := s.Logger.With("request", middleware.GetReqID(r.Context()))
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxUpload)
	if err := r.ParseMultipartForm(s.MaxUpload); err != nil {
		logger.Warn("parse form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.renderError(w, http.StatusRequestEntityTooLarge, FormData{},
				fmt.Errorf("文件过大（上限 %d 字节）", tooLarge.Limit))
			return
		}
		s.renderError(w, http.StatusBadRequest, FormData{}, errors.New("表单无效"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	p, data, err := formParams(r)
	if err != nil {
		s.renderError(w, statusOf(err), data, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.renderError(w, http.StatusBadRequest, data, errors.New("请先上传 Excel 文件（.xls / .xlsx）"))
		return
	}
	b, err := io.ReadAll(file)
	file.Close()
	if err != nil {
		s.renderError(w, http.StatusBadRequest, data, err)
		return
	}

	start := time.Now()
	out, err := s.Transformer.Transform(r.Context(), transform.Request{
		FileName:   header.Filename,
		Data:       b,
		Params:     p,
		OutputName: data.FileName,
	})
	if err != nil {
		logger.Warn("transform", "file", header.Filename, "error", err)
		s.renderError(w, statusOf(err), data, err)
		return
	}
	logger.Info("extract", "file", header.Filename, "rows", out.Rows, "dur", time.Since(start))

	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Name}))
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Data)))
	if _, err := w.Write(out.Data); err != nil {
		logger.Warn("write response", "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, code int, data FormData, err error) {
	if data.StartRow == 0 && data.EndRow == 0 {
		p := sheetrange.DefaultParams()
		data.StartRow, data.EndRow, data.Merge = p.StartRow, p.EndRow, p.MergeCategories
	}
	data.Error = err.Error()
	s.renderForm(w, code, data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// formParams reads the settings, falling back to the defaults for
// missing values. A row number which is not an integer is a *sheetrange.RangeError.
func formParams(r *http.Request) (sheetrange.Params, FormData, error) {
	p := sheetrange.DefaultParams()
	data := FormData{FileName: r.FormValue("file_name")}
	var err error
	for _, f := range []struct {
		name string
		dst  *int
	}{{"start_row", &p.StartRow}, {"end_row", &p.EndRow}} {
		v := strings.TrimSpace(r.FormValue(f.name))
		if v == "" {
			continue
		}
		i, convErr := strconv.Atoi(v)
		if convErr != nil {
			if err == nil {
				err = &sheetrange.RangeError{Invalid: v}
			}
			continue
		}
		*f.dst = i
	}
	// the form sends a hidden "false" before the checkbox: the last value wins
	if vs := r.Form["merge_categories"]; len(vs) != 0 {
		if b, parseErr := strconv.ParseBool(vs[len(vs)-1]); parseErr == nil {
			p.MergeCategories = b
		} else {
			p.MergeCategories = vs[len(vs)-1] == "on"
		}
	}
	p.Strict, _ = strconv.ParseBool(r.FormValue("strict"))
	data.StartRow, data.EndRow, data.Merge = p.StartRow, p.EndRow, p.MergeCategories
	return p, data, err
}

func statusOf(err error) int {
	var (
		noData      *sheetrange.NoDataError
		unsupported *sheetrange.UnsupportedFormatError
		malformed   *sheetrange.MalformedWorkbookError
		rangeErr    *sheetrange.RangeError
	)
	switch {
	case errors.As(err, &noData):
		return http.StatusUnprocessableEntity
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case errors.As(err, &malformed), errors.As(err, &rangeErr):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
